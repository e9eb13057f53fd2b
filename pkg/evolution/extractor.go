package evolution

import (
	"regexp"
	"strings"
)

// Concepts holds the role/skills/goal fragments extracted from a prompt.
// Empty fields mean the pattern did not match.
type Concepts struct {
	Role   string
	Skills string
	Goal   string
}

// Default fallback literals used when extraction finds nothing.
const (
	defaultRole   = "expert"
	defaultSkills = "analysis"
	defaultGoal   = "providing insights"
)

// WithDefaults returns a copy with empty fields replaced by the fixed
// fallback literals.
func (c Concepts) WithDefaults() Concepts {
	if c.Role == "" {
		c.Role = defaultRole
	}
	if c.Skills == "" {
		c.Skills = defaultSkills
	}
	if c.Goal == "" {
		c.Goal = defaultGoal
	}
	return c
}

// ConceptExtractor extracts prompt concepts for template-based operators.
// The default implementation is regex-based; callers may plug in something
// smarter as long as the fallback literals stay intact.
type ConceptExtractor interface {
	Extract(prompt string) Concepts
}

var (
	rolePattern   = regexp.MustCompile(`(?i)(?:you are|as an?)\s+([^,.]+)`)
	skillsPattern = regexp.MustCompile(`(?i)(?:expert in|specializing in|skilled in|skilled at)\s+([^,.]+)`)
	goalPattern   = regexp.MustCompile(`(?i)(?:focus on|focusing on|objective is|objective:|goal is|goal:)\s*([^,.]+)`)
)

// RegexExtractor is the default best-effort concept extractor.
type RegexExtractor struct{}

// NewRegexExtractor returns the default extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract implements ConceptExtractor.
func (e *RegexExtractor) Extract(prompt string) Concepts {
	var c Concepts
	if m := rolePattern.FindStringSubmatch(prompt); m != nil {
		c.Role = strings.TrimSpace(m[1])
	}
	if m := skillsPattern.FindStringSubmatch(prompt); m != nil {
		c.Skills = strings.TrimSpace(m[1])
	}
	if m := goalPattern.FindStringSubmatch(prompt); m != nil {
		c.Goal = strings.TrimSpace(m[1])
	}
	return c
}
