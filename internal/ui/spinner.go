package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// Spinner animation frames - braille scan pattern.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Spinner shows an animated line while a one-shot command waits on the
// backend, then replaces it with a final status line.
type Spinner struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	frame    int
	start    time.Time
	stop     chan struct{}
	done     chan struct{}
	running  bool
	lastLen  int
	animated bool
}

// NewSpinner creates a spinner writing to w. When animate is false (output
// is not a terminal) only the final line is printed.
func NewSpinner(w io.Writer, label string, animate bool) *Spinner {
	return &Spinner{w: w, label: label, animated: animate}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.start = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	animated := s.animated
	s.mu.Unlock()

	if !animated {
		close(s.done)
		return
	}
	s.render()
	go s.animate()
}

// Success stops the spinner and prints a success line with detail.
func (s *Spinner) Success(detail string) {
	s.finish(SuccessStyle().Render(SymbolComplete), detail)
}

// Fail stops the spinner and prints a failure line with detail.
func (s *Spinner) Fail(detail string) {
	s.finish(ErrorStyle().Render(SymbolFail), detail)
}

// Elapsed returns the time since Start.
func (s *Spinner) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.start.IsZero() {
		return 0
	}
	return time.Since(s.start)
}

func (s *Spinner) halt() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()
	<-done
}

func (s *Spinner) finish(symbol, detail string) {
	elapsed := s.Elapsed()
	s.halt()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()

	line := symbol + " " + s.label
	if detail != "" {
		line += " " + detail
	}
	fmt.Fprintf(s.w, "%s %s\n", line, MutedStyle().Render(formatDuration(elapsed)))
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.mu.Unlock()
			s.render()
		}
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()

	color := GradientColors[(s.frame/2)%len(GradientColors)]
	line := fmt.Sprintf("%s %s...", lipgloss.NewStyle().Foreground(color).Render(spinnerFrames[s.frame]), s.label)
	s.clearLocked()
	fmt.Fprint(s.w, line)
	s.lastLen = lipgloss.Width(line)
}

func (s *Spinner) clearLocked() {
	if s.lastLen > 0 {
		fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.lastLen)+"\r")
		s.lastLen = 0
	}
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}

// TUISpinner is the frame set for bubbles/spinner in the dashboard.
var TUISpinner = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}
