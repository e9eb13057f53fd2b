package evolution

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Sentence splitting is deliberately naive: all operators agree on ". " as
// the separator so that split/join round-trips are stable.
func splitSentences(text string) []string {
	return strings.Split(text, ". ")
}

func joinSentences(sentences []string) string {
	return strings.Join(sentences, ". ")
}

var titleCaser = cases.Title(language.English)

// capitalizeSentence upper-cases the first word of a sentence fragment so it
// can open a templated prompt.
func capitalizeSentence(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return s
	}
	words[0] = titleCaser.String(words[0])
	return strings.Join(words, " ")
}
