package evolution

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/foxruv/iris-go/pkg/llm"
	"github.com/foxruv/iris-go/pkg/logging"
)

// SnapshotSource exposes the slice of history that lineage mutation needs.
// *Store satisfies it.
type SnapshotSource interface {
	LatestSnapshot() *GenerationSnapshot
}

// Mutator applies one of six mutation strategies to a prompt. The
// LLM-backed strategies (lamarckian, semantic_rewrite) degrade to
// deterministic transforms when the collaborator is nil, unhealthy, or
// returns an error; no strategy ever fails.
type Mutator struct {
	collaborator llm.Collaborator // optional
	extractor    ConceptExtractor
	history      SnapshotSource
	rng          *rand.Rand
}

// NewMutator creates a mutator. collaborator may be nil.
func NewMutator(collaborator llm.Collaborator, extractor ConceptExtractor, history SnapshotSource, rng *rand.Rand) *Mutator {
	if extractor == nil {
		extractor = NewRegexExtractor()
	}
	return &Mutator{
		collaborator: collaborator,
		extractor:    extractor,
		history:      history,
		rng:          rng,
	}
}

// Mutate transforms the prompt with the given strategy and returns the new
// prompt plus the applied tag. Unknown strategies are a documented no-op:
// the input comes back unchanged.
func (m *Mutator) Mutate(ctx context.Context, prompt string, strategy MutationStrategy) (string, MutationStrategy) {
	switch strategy {
	case MutationZeroOrder:
		return m.zeroOrder(prompt), strategy
	case MutationFirstOrder:
		return m.firstOrder(prompt), strategy
	case MutationLineage:
		return m.lineage(prompt), strategy
	case MutationHypermutation:
		return m.hypermutation(prompt), strategy
	case MutationLamarckian:
		return m.lamarckian(ctx, prompt), strategy
	case MutationSemanticRewrite:
		return m.semanticRewrite(ctx, prompt), strategy
	default:
		logging.GetLogger().Warn(ctx, "Unknown mutation strategy %q, returning prompt unchanged", strategy)
		return prompt, strategy
	}
}

// zeroOrder discards the prompt's structure and rebuilds it from extracted
// role/skills/goal concepts using one of three fixed templates.
func (m *Mutator) zeroOrder(prompt string) string {
	c := m.extractor.Extract(prompt).WithDefaults()

	switch m.rng.Intn(3) {
	case 0:
		return fmt.Sprintf("You are a highly skilled %s. Your expertise includes %s. Focus on %s.", c.Role, c.Skills, c.Goal)
	case 1:
		return fmt.Sprintf("As an experienced %s with deep knowledge of %s, your objective is %s.", c.Role, c.Skills, c.Goal)
	default:
		return fmt.Sprintf("You are a %s specializing in %s. Your primary goal is %s.", c.Role, c.Skills, c.Goal)
	}
}

var (
	detailClauses = []string{
		", paying close attention to detail",
		", considering all relevant context",
		", with thorough reasoning",
	}
	clarityClauses = []string{
		", stated clearly and concisely",
		", explained in plain terms",
	}
	modalUpgrades = [][2]string{
		{"can", "must"},
		{"may", "should"},
	}
)

// firstOrder applies one or two random sentence-level edits.
func (m *Mutator) firstOrder(prompt string) string {
	sentences := splitSentences(prompt)
	if len(sentences) == 0 {
		return prompt
	}

	edits := 1 + m.rng.Intn(2)
	for i := 0; i < edits; i++ {
		idx := m.rng.Intn(len(sentences))
		sentences[idx] = m.transformSentence(sentences[idx])
	}
	return joinSentences(sentences)
}

func (m *Mutator) transformSentence(sentence string) string {
	switch m.rng.Intn(4) {
	case 0: // emphasize the first word
		words := strings.Fields(sentence)
		if len(words) == 0 {
			return sentence
		}
		words[0] = strings.ToUpper(words[0])
		return strings.Join(words, " ")
	case 1: // append a detail clause
		return sentence + detailClauses[m.rng.Intn(len(detailClauses))]
	case 2: // strengthen modal verbs
		out := sentence
		for _, pair := range modalUpgrades {
			out = replaceWord(out, pair[0], pair[1])
		}
		return out
	default: // append a clarity clause
		return sentence + clarityClauses[m.rng.Intn(len(clarityClauses))]
	}
}

// replaceWord swaps whole-word occurrences only, so "can" never rewrites
// "scan".
func replaceWord(sentence, from, to string) string {
	words := strings.Fields(sentence)
	for i, w := range words {
		if w == from {
			words[i] = to
		}
	}
	return strings.Join(words, " ")
}

// lineage blends the prompt with a random individual from the immediately
// preceding generation snapshot: the first half of the current prompt's
// sentences followed by the last half of the historical prompt's sentences,
// the split computed from the current prompt's sentence count. Without any
// prior snapshot the prompt comes back unchanged.
func (m *Mutator) lineage(prompt string) string {
	snap := m.history.LatestSnapshot()
	if snap == nil || len(snap.Population) == 0 {
		return prompt
	}

	ancestor := snap.Population[m.rng.Intn(len(snap.Population))]

	current := splitSentences(prompt)
	historical := splitSentences(ancestor.Prompt)
	half := len(current) / 2

	blended := make([]string, 0, len(current))
	blended = append(blended, current[:half]...)
	if half < len(historical) {
		blended = append(blended, historical[half:]...)
	}
	if len(blended) == 0 {
		return prompt
	}
	return joinSentences(blended)
}

// hypermutation applies first_order repeatedly, 2-4 times.
func (m *Mutator) hypermutation(prompt string) string {
	rounds := 2 + m.rng.Intn(3)
	out := prompt
	for i := 0; i < rounds; i++ {
		out = m.firstOrder(out)
	}
	return out
}

var improvementClauses = []string{
	"more specific",
	"clearer instructions",
	"better examples",
	"stronger constraints",
}

// lamarckian asks the collaborator to refine the prompt directly; when the
// collaborator is absent or unwell it appends a fixed improvement note.
func (m *Mutator) lamarckian(ctx context.Context, prompt string) string {
	if m.collaborator != nil && m.collaborator.IsHealthy(ctx) {
		pred, err := m.collaborator.Predict(ctx,
			"Improve the clarity and specificity of this prompt while maintaining the core role",
			prompt)
		if err == nil && pred.ImprovedPrompt != "" {
			return pred.ImprovedPrompt
		}
		if err != nil {
			logging.GetLogger().Warn(ctx, "Lamarckian mutation falling back: %v", err)
		}
	}

	clause := improvementClauses[m.rng.Intn(len(improvementClauses))]
	return fmt.Sprintf("%s\n\nNote: Focus on being %s.", prompt, clause)
}

// semanticRewrite asks the collaborator for a persuasive rewrite, falling
// back to zero_order when that is not possible.
func (m *Mutator) semanticRewrite(ctx context.Context, prompt string) string {
	if m.collaborator != nil && m.collaborator.IsHealthy(ctx) {
		pred, err := m.collaborator.Predict(ctx,
			"Rewrite this prompt to be more persuasive and authoritative",
			prompt)
		if err == nil && pred.ImprovedPrompt != "" {
			return pred.ImprovedPrompt
		}
		if err != nil {
			logging.GetLogger().Warn(ctx, "Semantic rewrite falling back: %v", err)
		}
	}
	return m.zeroOrder(prompt)
}
