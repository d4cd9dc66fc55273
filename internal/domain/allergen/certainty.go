package allergen

import "strings"

// Certainty is the controlled vocabulary for allergen claim confidence.
type Certainty string

const (
	CertaintyConfirmed Certainty = "confirmed"
	CertaintyLikely    Certainty = "likely"
	CertaintyPossible  Certainty = "possible"
)

// UICertainty is the badge label the UI renders. It mirrors Certainty but is
// guaranteed total: downstream UI must never fail to render a badge.
type UICertainty string

const (
	UIConfirmed UICertainty = "confirmed"
	UILikely    UICertainty = "likely"
	UIPossible  UICertainty = "possible"
)

// certaintyRules maps the open confidence vocabulary seen in LLM output and
// user input onto the controlled set. Unlike allergen names, certainty is a
// small bounded vocabulary, so a prefix fallback is safe here.
var certaintyRules = map[string]Certainty{
	"confirmed": CertaintyConfirmed,
	"certain":   CertaintyConfirmed,
	"definite":  CertaintyConfirmed,
	"direct":    CertaintyConfirmed,
	"high":      CertaintyConfirmed,
	"likely":    CertaintyLikely,
	"probable":  CertaintyLikely,
	"inferred":  CertaintyLikely,
	"medium":    CertaintyLikely,
	"possible":  CertaintyPossible,
	"predicted": CertaintyPossible,
	"maybe":     CertaintyPossible,
	"low":       CertaintyPossible,
	"unknown":   CertaintyPossible,
}

// prefixOrder keeps the prefix fallback deterministic.
var prefixOrder = []string{
	"confirmed", "certain", "definite", "direct", "high",
	"likely", "probable", "inferred", "medium",
	"possible", "predicted", "maybe", "low", "unknown",
}

// NormalizeCertainty maps a confidence word onto the controlled vocabulary.
// Exact match first, then prefix fallback in both directions; ok=false when
// nothing matches.
func NormalizeCertainty(value string) (Certainty, bool) {
	text := strings.ToLower(strings.TrimSpace(value))
	if text == "" {
		return "", false
	}

	if normalized, ok := certaintyRules[text]; ok {
		return normalized, true
	}

	for _, key := range prefixOrder {
		if strings.HasPrefix(text, key) || strings.HasPrefix(key, text) {
			return certaintyRules[key], true
		}
	}

	return "", false
}

// CertaintyToUI converts any certainty value to a UI badge label. Total by
// contract: unrecognized or absent input defaults to the most conservative
// label.
func CertaintyToUI(value string) UICertainty {
	normalized, ok := NormalizeCertainty(value)
	if !ok {
		return UIPossible
	}

	switch normalized {
	case CertaintyConfirmed:
		return UIConfirmed
	case CertaintyLikely:
		return UILikely
	default:
		return UIPossible
	}
}
