package forum

import "strings"

// ParseTags splits a raw comma-separated tag input ("js, beginner") into the
// canonical stored form: trimmed, leading "#" stripped, empties dropped,
// duplicates removed with first occurrence winning.
func ParseTags(input string) []string {
	return NormalizeTags(strings.Split(input, ","))
}

// NormalizeTags canonicalizes an already-split tag list using the same rules
// as ParseTags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// DisplayTag renders a stored tag in its "#"-prefixed display form.
func DisplayTag(tag string) string {
	return "#" + tag
}
