package utils

import "unicode/utf8"

// ChunkText splits s into pieces of at most size runes, for messages over the chat limit.
func ChunkText(s string, size int) []string {
	if size <= 0 || s == "" {
		return nil
	}
	var chunks []string
	for len(s) > 0 {
		if utf8.RuneCountInString(s) <= size {
			chunks = append(chunks, s)
			break
		}
		cut, n := 0, 0
		for cut < len(s) && n < size {
			_, w := utf8.DecodeRuneInString(s[cut:])
			cut += w
			n++
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	return chunks
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}
