package evolution

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/foxruv/iris-go/pkg/logging"
)

// Crossover combines two parent prompts into one child prompt. All
// strategies operate on sentence lists split on ". ".
type Crossover struct {
	extractor ConceptExtractor
	rng       *rand.Rand
}

// NewCrossover creates a crossover operator.
func NewCrossover(extractor ConceptExtractor, rng *rand.Rand) *Crossover {
	if extractor == nil {
		extractor = NewRegexExtractor()
	}
	return &Crossover{
		extractor: extractor,
		rng:       rng,
	}
}

// Apply combines promptA and promptB using the given strategy. Unknown
// strategies are a documented no-op returning promptA unchanged.
func (c *Crossover) Apply(ctx context.Context, promptA, promptB string, strategy CrossoverStrategy) string {
	switch strategy {
	case CrossoverUniform:
		return c.uniform(promptA, promptB)
	case CrossoverSinglePoint:
		return c.singlePoint(promptA, promptB)
	case CrossoverMultiPoint:
		return c.multiPoint(promptA, promptB)
	case CrossoverSemantic:
		return c.semantic(promptA, promptB)
	default:
		logging.GetLogger().Warn(ctx, "Unknown crossover strategy %q, returning first parent unchanged", strategy)
		return promptA
	}
}

// uniform takes each sentence from parent A or B with equal probability.
func (c *Crossover) uniform(promptA, promptB string) string {
	a := splitSentences(promptA)
	b := splitSentences(promptB)

	length := len(a)
	if len(b) > length {
		length = len(b)
	}

	child := make([]string, 0, length)
	for i := 0; i < length; i++ {
		if c.rng.Float64() < 0.5 {
			if i < len(a) {
				child = append(child, a[i])
			} else if i < len(b) {
				child = append(child, b[i])
			}
		} else {
			if i < len(b) {
				child = append(child, b[i])
			} else if i < len(a) {
				child = append(child, a[i])
			}
		}
	}
	return joinSentences(child)
}

// singlePoint splits both parents at one random point within the shorter
// parent and concatenates A's head with B's tail.
func (c *Crossover) singlePoint(promptA, promptB string) string {
	a := splitSentences(promptA)
	b := splitSentences(promptB)

	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	if minLen == 0 {
		return promptA
	}

	point := c.rng.Intn(minLen + 1)
	child := make([]string, 0, point+len(b)-point)
	child = append(child, a[:point]...)
	child = append(child, b[point:]...)
	return joinSentences(child)
}

// multiPoint walks the indices, switching the active parent with 30%
// probability at each step and emitting from the active parent when that
// index exists in it.
func (c *Crossover) multiPoint(promptA, promptB string) string {
	a := splitSentences(promptA)
	b := splitSentences(promptB)

	length := len(a)
	if len(b) > length {
		length = len(b)
	}

	child := make([]string, 0, length)
	fromA := true
	for i := 0; i < length; i++ {
		if c.rng.Float64() < 0.3 {
			fromA = !fromA
		}
		if fromA {
			if i < len(a) {
				child = append(child, a[i])
			}
		} else {
			if i < len(b) {
				child = append(child, b[i])
			}
		}
	}
	return joinSentences(child)
}

// semantic extracts role/skills/goal from both parents and recombines them
// into a fixed template. Role and skills prefer parent A, the goal prefers
// parent B; unmatched fields fall through to the other parent and then to
// the fixed defaults.
func (c *Crossover) semantic(promptA, promptB string) string {
	ca := c.extractor.Extract(promptA)
	cb := c.extractor.Extract(promptB)

	combined := Concepts{
		Role:   firstNonEmpty(ca.Role, cb.Role),
		Skills: firstNonEmpty(ca.Skills, cb.Skills),
		Goal:   firstNonEmpty(cb.Goal, ca.Goal),
	}.WithDefaults()

	return fmt.Sprintf("You are a %s specializing in %s. %s", combined.Role, combined.Skills, capitalizeSentence(combined.Goal))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
