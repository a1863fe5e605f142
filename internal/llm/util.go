// Package llm - util.go pulls JSON payloads out of chat replies.
package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject returns the first balanced {...} span in text that is valid
// JSON, skipping any commentary or code fences around it. Braces inside JSON
// strings are ignored, and brace pairs in prose such as "{field}" are passed over.
// Returns "" when no such object exists.
func ExtractJSONObject(text string) string {
	text = stripCodeFence(strings.TrimSpace(text))
	for start := strings.Index(text, "{"); start >= 0; {
		if obj := extractJSONObject(text[start:]); obj != "" && json.Valid([]byte(obj)) {
			return obj
		}
		next := strings.Index(text[start+1:], "{")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return ""
}

func stripCodeFence(text string) string {
	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}

// extractJSONObject returns the balanced object at the start of text, or "" if text
// does not start with '{' or the object never closes.
func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

func extractBalanced(text string, open, close byte) string {
	if len(text) == 0 || text[0] != open {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
