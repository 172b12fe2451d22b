package service

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// DefaultFuzzyThreshold is the minimum similarity (0-100) for a fuzzy match.
const DefaultFuzzyThreshold = 85

// FuzzyMatch is a validated fuzzy-match candidate from the checklist.
type FuzzyMatch struct {
	TaxonID     int
	MatchedName string
	Score       int
}

// FuzzyMatchName finds the checklist entry most similar to the query, or
// ok=false when no candidate survives the threshold and validation.
//
// Selection uses partial-substring similarity so that a bare binomial can
// match a checklist name carrying an author/year suffix. Because partial
// similarity also lets a short query match inside an unrelated longer name,
// the winning candidate is re-validated with a full-string score: when the
// query is the longer side the full strings must agree, and when the
// candidate is longer it is truncated to the query's length first, so a
// shared species epithet under a different genus cannot pass.
//
// Ties on score break deterministically: shorter candidate name first, then
// lexicographic.
func FuzzyMatchName(query string, checklist map[string]int, threshold int) (FuzzyMatch, bool) {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	folded := Fold(query)
	if folded == "" || len(checklist) == 0 {
		return FuzzyMatch{}, false
	}

	var (
		bestName   string
		bestFolded string
		bestScore  = -1
	)
	for name := range checklist {
		candidate := Fold(name)
		if candidate == "" {
			continue
		}
		score := fuzzy.PartialRatio(folded, candidate)
		if score < bestScore {
			continue
		}
		if score == bestScore && !tieBreakBefore(name, bestName) {
			continue
		}
		bestName, bestFolded, bestScore = name, candidate, score
	}

	if bestScore < threshold {
		return FuzzyMatch{}, false
	}

	if !validateMatch(folded, bestFolded, threshold) {
		return FuzzyMatch{}, false
	}

	return FuzzyMatch{
		TaxonID:     checklist[bestName],
		MatchedName: bestName,
		Score:       bestScore,
	}, true
}

// validateMatch applies the asymmetric full-string check that guards
// against short-substring false positives. Lengths and the truncation cut
// are in runes: folded names can keep multibyte characters (the hybrid
// sign "×" in botanical names), and a byte-offset cut would split them.
func validateMatch(query, candidate string, threshold int) bool {
	qr := []rune(query)
	cr := []rune(candidate)
	switch {
	case len(qr) > len(cr):
		return fuzzy.Ratio(query, candidate) >= threshold
	case len(cr) > len(qr):
		truncated := string(cr[:len(qr)])
		return fuzzy.Ratio(query, truncated) >= threshold
	default:
		return true
	}
}

// tieBreakBefore reports whether a sorts before b under the deterministic
// tie-break: shorter name first, then lexicographic.
func tieBreakBefore(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
