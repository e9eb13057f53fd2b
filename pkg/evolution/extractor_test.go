package evolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegexExtractorMatchesCommonPhrasings(t *testing.T) {
	e := NewRegexExtractor()

	c := e.Extract("You are a senior data engineer, skilled in SQL and Python. Focus on query performance.")
	assert.Equal(t, "senior data engineer", c.Role, "role capture stops at punctuation")
	assert.Equal(t, "SQL and Python", c.Skills)
	assert.Equal(t, "query performance", c.Goal)

	c = e.Extract("As an auditor. Your objective is completeness.")
	assert.Equal(t, "auditor", c.Role)
	assert.Equal(t, "completeness", c.Goal)
}

func TestRegexExtractorEmptyOnNoMatch(t *testing.T) {
	e := NewRegexExtractor()

	c := e.Extract("Summarize the document.")
	assert.Empty(t, c.Role)
	assert.Empty(t, c.Skills)
	assert.Empty(t, c.Goal)

	withDefaults := c.WithDefaults()
	assert.Equal(t, "expert", withDefaults.Role)
	assert.Equal(t, "analysis", withDefaults.Skills)
	assert.Equal(t, "providing insights", withDefaults.Goal)
}
