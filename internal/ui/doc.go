// Package ui provides the styled terminal output shared by diagterm's
// one-shot commands and its dashboard.
//
// # Color Scheme
//
// A neon palette (pink, cyan, purple, green) carries branding; the semantic
// colors carry meaning:
//
//	ColorSuccess (green)  - healthy, connected, granted
//	ColorWarning (amber)  - degraded, high-risk prompts
//	ColorError   (red)    - failures
//	ColorMuted   (gray)   - labels, timing
//
// ApplyColorMode maps the output.color setting onto lipgloss's color
// profile; DisableColors forces monochrome for --no-color.
//
// # Components
//
//	Spinner          - animated wait line for connect and run
//	RenderGauge      - threshold-colored percentage bar
//	Sparkline        - block-character history line
//	RenderSimpleTable, RenderKeyValues - plain CLI tables
package ui
