package errs

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Suggest returns the closest candidate for a misspelt name, or "" when
// nothing matches. Used for "did you mean" hints.
func Suggest(pattern string, candidates []string) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || len(candidates) == 0 {
		return ""
	}
	for _, c := range candidates {
		if strings.EqualFold(c, pattern) {
			return c
		}
	}
	matches := fuzzy.Find(strings.ToLower(pattern), lowerAll(candidates))
	if len(matches) == 0 {
		return ""
	}
	return candidates[matches[0].Index]
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
