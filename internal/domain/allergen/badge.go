package allergen

// Badge is the UI-facing allergen entry attached to a recipe ingredient
// line. Every badge carries a renderable certainty label and enough taxonomy
// context (family, marker type) for grouping in the client.
type Badge struct {
	Code       string      `json:"code"`
	Slug       string      `json:"slug"`
	Label      string      `json:"label"`
	Certainty  UICertainty `json:"certainty"`
	Family     string      `json:"family,omitempty"`
	MarkerType MarkerType  `json:"marker_type"`
}

// NewBadge builds a badge from a canonical entry and a raw certainty value.
func NewBadge(entry *CanonicalAllergen, certainty string) Badge {
	return Badge{
		Code:       entry.Slug,
		Slug:       entry.Slug,
		Label:      entry.Label,
		Certainty:  CertaintyToUI(certainty),
		Family:     entry.Family,
		MarkerType: entry.MarkerType,
	}
}
