package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON strips markdown fences and surrounding prose from model
// output, returning the outermost JSON object or array.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	var closer byte = '}'
	if text[start] == '[' {
		closer = ']'
	}
	if end := strings.LastIndexByte(text, closer); end > start {
		return text[start : end+1]
	}
	return text[start:]
}

// RepairJSON closes an incomplete JSON fragment so partial streamed
// output can be parsed into a snapshot. A dangling partial token or
// key without a value is cut back to the last complete element before
// the open scopes are closed. Returns false when no valid document can
// be recovered.
func RepairJSON(fragment string) ([]byte, bool) {
	fragment = strings.TrimSpace(fragment)
	start := strings.IndexAny(fragment, "{[")
	if start < 0 {
		return nil, false
	}
	fragment = fragment[start:]

	if json.Valid([]byte(fragment)) {
		return []byte(fragment), true
	}

	// Walk the fragment tracking string state and the open scope stack,
	// remembering the last position where the document could be cleanly
	// truncated (just after a complete value).
	var stack []byte
	inString := false
	escaped := false
	lastComplete := -1
	depthAtComplete := 0

	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
				lastComplete = i + 1
				depthAtComplete = len(stack)
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				return nil, false
			}
			stack = stack[:len(stack)-1]
			lastComplete = i + 1
			depthAtComplete = len(stack)
		case 'e': // true / false
			if strings.HasSuffix(fragment[:i+1], "true") || strings.HasSuffix(fragment[:i+1], "false") {
				lastComplete = i + 1
				depthAtComplete = len(stack)
			}
		case 'l': // null
			if strings.HasSuffix(fragment[:i+1], "null") {
				lastComplete = i + 1
				depthAtComplete = len(stack)
			}
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			// Numbers are complete only when a delimiter follows, handled
			// by the comma/close cases via lastComplete below.
			if i+1 < len(fragment) {
				switch fragment[i+1] {
				case ',', '}', ']', ' ', '\n', '\t', '\r':
					lastComplete = i + 1
					depthAtComplete = len(stack)
				}
			}
		}
	}

	if lastComplete < 0 {
		return nil, false
	}

	// Cut back to the last complete value, then strip a trailing comma
	// or a dangling "key": left behind.
	repaired := strings.TrimRight(fragment[:lastComplete], " \n\t\r")
	repaired = strings.TrimSuffix(repaired, ",")

	// A complete string may itself be a dangling key ("key" with no
	// value yet). Detect `"..."` preceded by , or { ... ending the cut.
	if strings.HasSuffix(repaired, "\"") {
		if idx := lastUnescapedQuote(repaired[:len(repaired)-1]); idx >= 0 {
			before := strings.TrimRight(repaired[:idx], " \n\t\r")
			if strings.HasSuffix(before, "{") {
				repaired = before
			} else if strings.HasSuffix(before, ",") {
				repaired = strings.TrimSuffix(before, ",")
			}
		}
	}

	// Close the scopes that were open at the cut point.
	closers := make([]byte, 0, depthAtComplete)
	depth := 0
	inString = false
	escaped = false
	for i := 0; i < len(repaired); i++ {
		c := repaired[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			closers = append(closers, '}')
			depth++
		case '[':
			closers = append(closers, ']')
			depth++
		case '}', ']':
			if depth == 0 {
				return nil, false
			}
			closers = closers[:depth-1]
			depth--
		}
	}
	for i := len(closers) - 1; i >= 0; i-- {
		repaired += string(closers[i])
	}

	if !json.Valid([]byte(repaired)) {
		return nil, false
	}
	return []byte(repaired), true
}

func lastUnescapedQuote(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '"' && (i == 0 || s[i-1] != '\\') {
			return i
		}
	}
	return -1
}
