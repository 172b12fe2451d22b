package service

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nameSeparators = regexp.MustCompile(`[\n,;]+`)
	idSeparators   = regexp.MustCompile(`[\s,;]+`)
)

// ParseNames splits free-text input into scientific names. Names are
// separated by newlines, commas or semicolons; internal spaces are part of
// the name.
func ParseNames(text string) []string {
	var names []string
	for _, part := range nameSeparators.Split(text, -1) {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ParseIDs splits free-text input into taxon ids. Tokens are separated by
// whitespace, commas or semicolons; thousands dots are stripped and
// non-numeric tokens are ignored.
func ParseIDs(text string) []int {
	var ids []int
	for _, part := range idSeparators.Split(text, -1) {
		token := strings.ReplaceAll(strings.TrimSpace(part), ".", "")
		if token == "" {
			continue
		}
		id, err := strconv.Atoi(token)
		if err != nil || id < 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
