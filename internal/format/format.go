// Package format converts raw counters from the backend into short
// human-readable strings for the dashboard and CLI tables.
package format

import "fmt"

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// Bytes formats a byte count using binary (1024) steps.
// Whole bytes print without decimals ("512B"), larger units with one ("1.5GB").
// Negative counts render as "0B".
func Bytes(n int64) string {
	if n < 0 {
		return "0B"
	}

	v := float64(n)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}

	if i == 0 {
		return fmt.Sprintf("%d%s", n, byteUnits[0])
	}
	return fmt.Sprintf("%.1f%s", v, byteUnits[i])
}

// SplitUptime decomposes seconds into days, hours, minutes and seconds.
// Fractions are truncated and negative input is treated as zero.
func SplitUptime(seconds float64) (d, h, m, s int64) {
	total := int64(seconds)
	if total < 0 {
		total = 0
	}
	s = total % 60
	m = (total / 60) % 60
	h = (total / 3600) % 24
	d = total / 86400
	return d, h, m, s
}

// Uptime formats seconds as "HH:MM:SS", prefixed with "Nd " once it spans a day.
func Uptime(seconds float64) string {
	d, h, m, s := SplitUptime(seconds)
	if d > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", d, h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Rate formats a bytes-per-second rate as a human-readable string.
func Rate(bytesPerSecond float64) string {
	if bytesPerSecond < 1024 {
		return fmt.Sprintf("%.0f B/s", bytesPerSecond)
	} else if bytesPerSecond < 1024*1024 {
		return fmt.Sprintf("%.1f KB/s", bytesPerSecond/1024)
	} else if bytesPerSecond < 1024*1024*1024 {
		return fmt.Sprintf("%.1f MB/s", bytesPerSecond/(1024*1024))
	}
	return fmt.Sprintf("%.1f GB/s", bytesPerSecond/(1024*1024*1024))
}

// LoadAvg formats a load average triple, or "N/A" when the platform has none.
func LoadAvg(load *[3]float64) string {
	if load == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f %.2f %.2f", load[0], load[1], load[2])
}

// Power formats package power draw in watts, or "N/A" when unavailable.
func Power(watts *float64) string {
	if watts == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f W", *watts)
}

// OptionalBytes formats an optional byte counter, returning "" when absent.
func OptionalBytes(n *int64) string {
	if n == nil {
		return ""
	}
	return Bytes(*n)
}
