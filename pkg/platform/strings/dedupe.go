// Package strings provides slice normalization helpers for user-supplied
// string lists such as amenities and languages.
package strings

import "strings"

// DedupeAndTrim trims each element and drops empties and duplicates,
// preserving first-occurrence order.
func DedupeAndTrim(values []string) []string {
	return normalize(values, strings.TrimSpace)
}

// DedupeAndTrimLower additionally lowercases each element, deduplicating
// case-insensitively.
func DedupeAndTrimLower(values []string) []string {
	return normalize(values, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func normalize(values []string, clean func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		cleaned := clean(v)
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		result = append(result, cleaned)
	}
	return result
}
