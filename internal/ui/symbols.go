package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓"
	SymbolFail     = "✗"
	SymbolPending  = "○"
	SymbolProgress = "◐"
	SymbolComplete = "●"
	SymbolSkipped  = "⊘"
	SymbolWarning  = "⚠"
	SymbolLock     = "🔒"
	SymbolBullet   = "•"
)
