package evolution

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestCrossover(seed int64) *Crossover {
	return NewCrossover(nil, rand.New(rand.NewSource(seed)))
}

func TestUniformCrossoverLengthBound(t *testing.T) {
	c := newTestCrossover(1)

	a := "One. Two. Three. Four. Five."
	b := "Alpha. Beta."
	maxLen := len(splitSentences(a))

	for i := 0; i < 50; i++ {
		child := c.Apply(context.Background(), a, b, CrossoverUniform)
		assert.LessOrEqual(t, len(splitSentences(child)), maxLen)
	}
}

func TestUniformCrossoverSentencesComeFromParents(t *testing.T) {
	c := newTestCrossover(2)

	a := "One. Two. Three."
	b := "Alpha. Beta. Gamma."
	parentSentences := map[string]bool{}
	for _, s := range append(splitSentences(a), splitSentences(b)...) {
		parentSentences[s] = true
	}

	child := c.Apply(context.Background(), a, b, CrossoverUniform)
	for _, s := range splitSentences(child) {
		assert.True(t, parentSentences[s], "unexpected sentence %q", s)
	}
}

func TestSinglePointCrossoverComposition(t *testing.T) {
	c := newTestCrossover(3)

	a := "A1. A2. A3."
	b := "B1. B2. B3."

	// Head from A, tail from B: the result always has B's sentence count.
	for i := 0; i < 20; i++ {
		child := c.Apply(context.Background(), a, b, CrossoverSinglePoint)
		assert.Len(t, splitSentences(child), len(splitSentences(b)))
	}
}

func TestMultiPointCrossoverLengthBound(t *testing.T) {
	c := newTestCrossover(4)

	a := "One. Two. Three. Four."
	b := "Alpha. Beta."
	maxLen := len(splitSentences(a))

	for i := 0; i < 50; i++ {
		child := c.Apply(context.Background(), a, b, CrossoverMultiPoint)
		assert.LessOrEqual(t, len(splitSentences(child)), maxLen)
	}
}

func TestSemanticCrossoverCombinesConcepts(t *testing.T) {
	c := newTestCrossover(5)

	a := "As an engineer. Focus on speed."
	b := "You are skilled in mathematics. Your goal is precision."

	child := c.Apply(context.Background(), a, b, CrossoverSemantic)

	// Role and skills prefer parent A (falling back to B); the goal
	// prefers parent B.
	assert.Equal(t, "You are a engineer specializing in mathematics. Precision", child)
}

func TestSemanticCrossoverFallsBackToDefaults(t *testing.T) {
	c := newTestCrossover(6)

	child := c.Apply(context.Background(), "do stuff", "make things", CrossoverSemantic)
	assert.Equal(t, "You are a expert specializing in analysis. Providing insights", child)
}

func TestUnknownCrossoverStrategyReturnsFirstParent(t *testing.T) {
	c := newTestCrossover(7)

	a := "One. Two."
	child := c.Apply(context.Background(), a, "Alpha. Beta.", CrossoverStrategy("telepathic"))
	assert.Equal(t, a, child)
}
