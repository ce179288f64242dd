package ai

import "strings"

const jsonFence = "```json"

// ExtractJSONBlock returns the JSON object embedded in a model reply. A ```json fenced
// block wins; otherwise the first balanced {...} object is returned. Braces inside
// string literals are ignored.
func ExtractJSONBlock(text string) (string, bool) {
	if start := strings.Index(text, jsonFence); start >= 0 {
		body := text[start+len(jsonFence):]
		if end := strings.Index(body, "```"); end >= 0 {
			return strings.TrimSpace(body[:end]), true
		}
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case c == '{' && !inString:
			depth++
		case c == '}' && !inString:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
