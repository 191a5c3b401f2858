// Package tags validates and normalizes the keyword tags attached to
// narrative log messages.
package tags

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Description documents the tag format for API consumers.
const Description = "Each tag must be at least two characters long, must start with a " +
	"letter, and must contain only ASCII letters, digits, and _ (underscore). " +
	"Tags are transformed to lowercase."

var validTagRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]+$`)

// Normalize checks every tag and, if all are valid, casts them to lowercase
// with the original order preserved. If any tag is invalid the returned
// error lists all offending tags, sorted, and no tags are normalized.
func Normalize(in []string) ([]string, error) {
	var bad []string
	for _, tag := range in {
		if !validTagRe.MatchString(tag) {
			bad = append(bad, tag)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, fmt.Errorf("invalid tags: %v", bad)
	}
	out := make([]string, len(in))
	for i, tag := range in {
		out[i] = strings.ToLower(tag)
	}
	return out, nil
}
