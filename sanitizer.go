package exercisegen

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractJSONBlock returns the first structured-text block found in a
// free-form oracle response. Markdown fences are preferred; otherwise the
// first balanced object or array is taken. Returns "" when the response
// contains no JSON at all.
func ExtractJSONBlock(content string) string {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		// tolerate a language tag after the opening fence
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			tag := strings.TrimSpace(rest[:nl])
			if tag == "" || !strings.ContainsAny(tag, "{[") {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		if block := strings.TrimSpace(rest); block != "" {
			return block
		}
	}

	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return ""
	}
	open := content[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	// unbalanced; hand back the tail and let the decoder's repair pass try
	return content[start:]
}

// ParseOracleJSON decodes raw oracle output into v. It tries a strict decode
// first; on failure it strips unsupported escape sequences, runs a JSON
// repair pass and retries exactly once. Returns false when both attempts
// fail. Never panics and never mutates v on failure beyond partial decode.
func ParseOracleJSON(raw string, v interface{}) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return true
	}

	cleaned := stripInvalidEscapes(raw)
	if repaired, err := jsonrepair.JSONRepair(cleaned); err == nil {
		cleaned = repaired
	}

	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		VerboseLog("sanitizer: decode failed after repair: %v", err)
		VerboseLog("sanitizer: raw response was: %s", raw)
		return false
	}
	return true
}

// stripInvalidEscapes drops backslashes that introduce escape sequences the
// JSON grammar does not allow (oracles like to emit \' or \* inside strings)
func stripInvalidEscapes(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			sb.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = false
			sb.WriteByte(c)
			continue
		}
		if c == '\\' && i+1 < len(s) {
			next := s[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				sb.WriteByte(c)
				sb.WriteByte(next)
				i++
			default:
				// drop the backslash, keep the character
			}
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
