package service

import (
	"testing"
)

func TestFuzzyMatchName_MisspelledGenus(t *testing.T) {
	checklist := map[string]int{
		"Borderea pyrenaica": 1717,
		"Lynx pardinus":      14389,
	}

	match, ok := FuzzyMatchName("Vorderea pyrenaica", checklist, 85)
	if !ok {
		t.Fatal("expected a fuzzy match for a one-letter misspelling")
	}
	if match.MatchedName != "Borderea pyrenaica" {
		t.Errorf("expected 'Borderea pyrenaica', got %q", match.MatchedName)
	}
	if match.TaxonID != 1717 {
		t.Errorf("expected taxon id 1717, got %d", match.TaxonID)
	}
	if match.Score < 85 {
		t.Errorf("expected score >= 85, got %d", match.Score)
	}
}

func TestFuzzyMatchName_ThresholdBoundary(t *testing.T) {
	// "abcde" vs "abcdx": 4 of 5 characters agree on both sides, a
	// similarity of exactly 80.
	checklist := map[string]int{"abcdx": 1}

	if _, ok := FuzzyMatchName("abcde", checklist, 80); !ok {
		t.Error("a candidate scoring exactly at the threshold must be accepted")
	}
	if _, ok := FuzzyMatchName("abcde", checklist, 81); ok {
		t.Error("a candidate scoring below the threshold must be rejected")
	}
}

func TestFuzzyMatchName_AuthorSuffixAccepted(t *testing.T) {
	checklist := map[string]int{"Lynx pardinus Temminck, 1827": 14389}

	match, ok := FuzzyMatchName("Lynx pardinus", checklist, 85)
	if !ok {
		t.Fatal("expected the bare binomial to match the authored checklist name")
	}
	if match.TaxonID != 14389 {
		t.Errorf("expected taxon id 14389, got %d", match.TaxonID)
	}
	if match.Score != 100 {
		t.Errorf("expected partial score 100, got %d", match.Score)
	}
}

func TestFuzzyMatchName_SharedEpithetRejected(t *testing.T) {
	// The query is a substring-like fragment of an unrelated longer name.
	// Partial similarity alone may clear the threshold, but the truncated
	// full-string validation must fail.
	checklist := map[string]int{"Gamusinus maximus Author, 1900": 9}

	if match, ok := FuzzyMatchName("Fusinus", checklist, 85); ok {
		t.Errorf("expected no match, got %q (score %d)", match.MatchedName, match.Score)
	}
}

func TestFuzzyMatchName_LongGarbledQueryRejected(t *testing.T) {
	// Query longer than the candidate: the full-string check applies and
	// the trailing garbage drags the similarity below the threshold.
	checklist := map[string]int{"Pinus": 4}

	if match, ok := FuzzyMatchName("Pinus qqqqqqqqqqqqqqqq", checklist, 85); ok {
		t.Errorf("expected no match, got %q (score %d)", match.MatchedName, match.Score)
	}
}

func TestFuzzyMatchName_DeterministicTieBreak(t *testing.T) {
	checklist := map[string]int{
		"abcdy": 1,
		"abcdx": 2,
	}

	for i := 0; i < 20; i++ {
		match, ok := FuzzyMatchName("abcde", checklist, 80)
		if !ok {
			t.Fatal("expected a match")
		}
		if match.MatchedName != "abcdx" {
			t.Fatalf("tie must break lexicographically to 'abcdx', got %q", match.MatchedName)
		}
	}
}

func TestFuzzyMatchName_MultibyteRuneAtTruncationPoint(t *testing.T) {
	// The hybrid sign "×" survives folding and is two bytes; here it
	// straddles the query-length offset, so a byte cut would leave an
	// invalid trailing byte in the truncated candidate and depress the
	// validation score below the threshold.
	checklist := map[string]int{"Abxcdefgh×yz": 42}

	match, ok := FuzzyMatchName("Ab×cdefgh", checklist, 85)
	if !ok {
		t.Fatal("expected the candidate to validate when truncated on a rune boundary")
	}
	if match.TaxonID != 42 {
		t.Errorf("TaxonID = %d, want 42", match.TaxonID)
	}
	if match.Score < 85 {
		t.Errorf("Score = %d, want >= 85", match.Score)
	}
}

func TestFuzzyMatchName_EmptyInputs(t *testing.T) {
	if _, ok := FuzzyMatchName("Lynx pardinus", map[string]int{}, 85); ok {
		t.Error("expected no match against an empty checklist")
	}
	if _, ok := FuzzyMatchName("  ", map[string]int{"Lynx pardinus": 1}, 85); ok {
		t.Error("expected no match for a blank query")
	}
}

func TestFold(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Catálogo Nacional", "catalogo nacional"},
		{"  Lynx   pardinus ", "lynx pardinus"},
		{"Región de Murcia", "region de murcia"},
		{"AEWA", "aewa"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Fold(tc.in); got != tc.want {
			t.Errorf("Fold(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
