package submission

import "strings"

// ParseContent splits message text into a body and #tags. Tags keep their case
// and lose the leading '#'. When the first remaining word is a URL it becomes
// the body on its own; otherwise the body is the remaining text.
func ParseContent(text string) (body string, tags []string) {
	var words []string
	for _, w := range strings.Fields(text) {
		if strings.HasPrefix(w, "#") {
			if tag := strings.TrimLeft(w, "#"); tag != "" {
				tags = append(tags, tag)
			}
			continue
		}
		words = append(words, w)
	}

	if len(words) > 0 && IsURL(words[0]) {
		return words[0], tags
	}
	return strings.Join(words, " "), tags
}

// IsURL reports whether s looks like an http(s) link.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
