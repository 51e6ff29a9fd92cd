package config

import "github.com/sahilm/fuzzy"

// SuggestDataset returns the best-matching candidate names for a typo'd
// dataset argument, for the "did you mean tank1/foo?" hint printed
// alongside a "dataset does not exist" error.
func SuggestDataset(input string, candidates []string) []string {
	matches := fuzzy.Find(input, candidates)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}

// Picker lets --pick narrow a recursive dataset walk down to an
// interactively chosen subset, reusing the same fuzzy matcher as
// SuggestDataset against the full candidate list as the user types.
type Picker struct {
	Candidates []string
}

// Filter narrows Candidates to those matching query, ranked by fuzzy
// score (best first). An empty query returns every candidate.
func (p Picker) Filter(query string) []string {
	if query == "" {
		return p.Candidates
	}
	matches := fuzzy.Find(query, p.Candidates)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}
