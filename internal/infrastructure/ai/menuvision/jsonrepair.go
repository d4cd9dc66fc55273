package menuvision

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONPayload = errors.New("no json payload found in response")

// decodeItems turns a model response body into a list of loosely-typed
// items. Model output is unreliable: it may be a clean envelope, a bare
// array, fenced markdown, prose around a JSON span, or an array cut off
// mid-object by a token limit. Recovery is attempted in order of
// strictness; each step feeds the next only when it fails.
func decodeItems(raw []byte) ([]map[string]any, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, errNoJSONPayload
	}

	if items, err := parseItems(text); err == nil {
		return items, nil
	}

	stripped := stripFences(text)
	if stripped != text {
		if items, err := parseItems(stripped); err == nil {
			return items, nil
		}
	}

	if span := balancedSpan(stripped); span != "" {
		if items, err := parseItems(span); err == nil {
			return items, nil
		}
	}

	if salvaged := salvageTruncatedArray(stripped); salvaged != "" {
		if items, err := parseItems(salvaged); err == nil {
			return items, nil
		}
	}

	return nil, errNoJSONPayload
}

// parseItems decodes a JSON document into items. A top-level array is taken
// as-is; an object is probed for the list keys the services use.
func parseItems(text string) ([]map[string]any, error) {
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, err
	}

	switch v := decoded.(type) {
	case []any:
		return itemMaps(v), nil
	case map[string]any:
		for _, key := range []string{"recipes", "items"} {
			if list, ok := v[key].([]any); ok {
				return itemMaps(list), nil
			}
		}
		return []map[string]any{}, nil
	default:
		return nil, errNoJSONPayload
	}
}

func itemMaps(list []any) []map[string]any {
	items := make([]map[string]any, 0, len(list))
	for _, element := range list {
		if m, ok := element.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// stripFences removes a markdown code fence wrapper, with or without a
// language tag.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := text[3:]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		body = body[newline+1:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// balancedSpan returns the first complete {...} or [...] span in the text,
// honoring string literals and escapes. Empty when no balanced span exists.
func balancedSpan(text string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			open = text[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// salvageTruncatedArray recovers the complete leading objects of an array
// that was cut off mid-element. It scans from the first '[' tracking string
// and escape state, records each top-level object that closes cleanly, and
// rebuilds a valid array from those; the incomplete tail is dropped.
func salvageTruncatedArray(text string) string {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return ""
	}

	var objects []string
	objStart := -1
	depth := 0
	inString := false
	escaped := false

	for i := start + 1; i < len(text); i++ {
		c := text[i]
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
		case '{':
			if depth == 0 {
				objStart = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && objStart >= 0 {
				objects = append(objects, text[objStart:i+1])
				objStart = -1
			}
		}
	}

	if len(objects) == 0 {
		return ""
	}
	return "[" + strings.Join(objects, ",") + "]"
}
