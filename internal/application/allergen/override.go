// Package allergen implements allergen reconciliation: turning stored
// ingredient evidence and per-line override payloads into the badge list the
// API serves. Canonicalization itself lives in the domain registry; this
// package owns parsing and merge policy.
package allergen

import "encoding/json"

// OverrideEntry is one allergen mention from a per-line override payload,
// still in raw vocabulary.
type OverrideEntry struct {
	Label     string
	Certainty string
}

// Override distinguishes "no override stored" from "override present but
// empty". An absent override leaves the ingredient's stored links in force;
// a present one, even with zero entries, replaces them entirely.
type Override struct {
	present bool
	entries []OverrideEntry
}

// OverrideAbsent is the zero override: stored links apply.
var OverrideAbsent = Override{}

// NewOverride builds a present override from explicit entries.
func NewOverride(entries []OverrideEntry) Override {
	return Override{present: true, entries: entries}
}

// Present reports whether an override payload was stored at all.
func (o Override) Present() bool { return o.present }

// Entries returns the raw override entries.
func (o Override) Entries() []OverrideEntry { return o.entries }

// ParseOverride decodes a serialized override payload. The stored format is
// a JSON list of objects, but the parser is deliberately forgiving about
// what historical rows and LLM output actually contain:
//   - empty input means no override was stored
//   - a JSON object or scalar is wrapped into a single-entry list
//   - text that is not valid JSON is treated as one free-text allergen label
func ParseOverride(raw string) Override {
	if raw == "" {
		return OverrideAbsent
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return NewOverride([]OverrideEntry{{Label: raw}})
	}

	var candidates []any
	switch v := decoded.(type) {
	case []any:
		candidates = v
	case nil:
		return NewOverride(nil)
	default:
		candidates = []any{v}
	}

	entries := make([]OverrideEntry, 0, len(candidates))
	for _, candidate := range candidates {
		if entry, ok := entryFromValue(candidate); ok {
			entries = append(entries, entry)
		}
	}
	return NewOverride(entries)
}

// entryFromValue extracts a label and certainty from one decoded element.
// Objects are probed for the key variants seen across payload generations.
func entryFromValue(value any) (OverrideEntry, bool) {
	switch v := value.(type) {
	case map[string]any:
		label := firstString(v, "allergen", "name", "code", "label")
		if label == "" {
			return OverrideEntry{}, false
		}
		return OverrideEntry{
			Label:     label,
			Certainty: firstString(v, "certainty", "confidence"),
		}, true
	case string:
		if v == "" {
			return OverrideEntry{}, false
		}
		return OverrideEntry{Label: v}, true
	default:
		return OverrideEntry{}, false
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
