package logging

// LogEntry represents a structured log record with fields relevant to
// evolutionary optimization runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Evolution-specific fields
	ExpertType string // The expert type being evolved
	Generation int    // Generation index, -1 when not applicable

	// General structured data
	Fields map[string]interface{}
}
