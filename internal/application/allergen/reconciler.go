package allergen

import (
	"encoding/json"

	domain "github.com/platewise/v1/internal/domain/allergen"
)

// WarningKind classifies why an allergen mention was dropped during
// reconciliation.
type WarningKind string

const (
	// WarnUnknownAllergen covers labels the registry cannot resolve.
	WarnUnknownAllergen WarningKind = "unknown_allergen"
	// WarnEmptyEntry covers entries with no usable label at all.
	WarnEmptyEntry WarningKind = "empty_entry"
)

// Warning records one skipped entry. Reconciliation never fails on bad
// input; callers log warnings and move on.
type Warning struct {
	Kind  WarningKind
	Value string
}

// StoredAllergen is one persisted ingredient-allergen link as the
// repositories hand it over: the allergen row's code and name plus the
// link's certainty.
type StoredAllergen struct {
	Code      string
	Name      string
	Certainty string
}

// Reconciler merges stored allergen evidence with per-line overrides into
// the badge list served to clients.
type Reconciler struct {
	registry *domain.Registry
}

// NewReconciler creates a reconciler over a canonical registry.
func NewReconciler(registry *domain.Registry) *Reconciler {
	return &Reconciler{registry: registry}
}

// Reconcile produces the badge list for one recipe ingredient line. A
// present override replaces the stored links entirely, an empty override
// included: storing an empty list is the operator explicitly clearing the
// line. Only an absent override falls back to the stored evidence. Output
// is de-duplicated by canonical slug, first occurrence wins.
func (r *Reconciler) Reconcile(stored []StoredAllergen, override Override) ([]domain.Badge, []Warning) {
	if override.Present() {
		return r.badgesFromOverride(override.Entries())
	}
	return r.badgesFromStored(stored)
}

func (r *Reconciler) badgesFromOverride(entries []OverrideEntry) ([]domain.Badge, []Warning) {
	badges := make([]domain.Badge, 0, len(entries))
	var warnings []Warning
	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		if entry.Label == "" {
			warnings = append(warnings, Warning{Kind: WarnEmptyEntry})
			continue
		}
		canonical, ok := r.registry.Canonicalize(entry.Label)
		if !ok {
			warnings = append(warnings, Warning{Kind: WarnUnknownAllergen, Value: entry.Label})
			continue
		}
		if seen[canonical.Slug] {
			continue
		}
		seen[canonical.Slug] = true
		badges = append(badges, domain.NewBadge(canonical, entry.Certainty))
	}
	return badges, warnings
}

func (r *Reconciler) badgesFromStored(stored []StoredAllergen) ([]domain.Badge, []Warning) {
	badges := make([]domain.Badge, 0, len(stored))
	var warnings []Warning
	seen := make(map[string]bool, len(stored))

	for _, link := range stored {
		canonical, ok := r.registry.Canonicalize(link.Code)
		if !ok {
			canonical, ok = r.registry.Canonicalize(link.Name)
		}
		if !ok {
			warnings = append(warnings, Warning{Kind: WarnUnknownAllergen, Value: link.Code})
			continue
		}
		if seen[canonical.Slug] {
			continue
		}
		seen[canonical.Slug] = true
		badges = append(badges, domain.NewBadge(canonical, link.Certainty))
	}
	return badges, warnings
}

// Prediction is one canonicalized allergen mention from LLM deduction
// output, ready to persist.
type Prediction struct {
	Canonical *domain.CanonicalAllergen
	Certainty domain.Certainty
}

// NormalizePredictions canonicalizes the raw allergens value from one
// deduced ingredient. The value may be a list, a single object, or a bare
// scalar; unresolvable mentions are skipped with warnings. De-duplicated by
// slug, first occurrence wins.
func (r *Reconciler) NormalizePredictions(raw any) ([]Prediction, []Warning) {
	if raw == nil {
		return nil, nil
	}

	var candidates []any
	switch v := raw.(type) {
	case []any:
		candidates = v
	default:
		candidates = []any{v}
	}

	predictions := make([]Prediction, 0, len(candidates))
	var warnings []Warning
	seen := make(map[string]bool, len(candidates))

	for _, candidate := range candidates {
		entry, ok := entryFromValue(candidate)
		if !ok {
			warnings = append(warnings, Warning{Kind: WarnEmptyEntry})
			continue
		}
		canonical, ok := r.registry.Canonicalize(entry.Label)
		if !ok {
			warnings = append(warnings, Warning{Kind: WarnUnknownAllergen, Value: entry.Label})
			continue
		}
		if seen[canonical.Slug] {
			continue
		}
		seen[canonical.Slug] = true

		certainty, ok := domain.NormalizeCertainty(entry.Certainty)
		if !ok {
			certainty = domain.CertaintyPossible
		}
		predictions = append(predictions, Prediction{Canonical: canonical, Certainty: certainty})
	}
	return predictions, warnings
}

// serializedPrediction is the stored per-line payload format.
type serializedPrediction struct {
	Allergen  string `json:"allergen"`
	Certainty string `json:"certainty"`
}

// SerializePredictions encodes canonical predictions into the per-line
// payload stored on a recipe ingredient. Empty input yields an empty string
// so nothing is stored and the line carries no override.
func SerializePredictions(predictions []Prediction) string {
	if len(predictions) == 0 {
		return ""
	}
	out := make([]serializedPrediction, 0, len(predictions))
	for _, p := range predictions {
		out = append(out, serializedPrediction{
			Allergen:  p.Canonical.Label,
			Certainty: string(p.Certainty),
		})
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(encoded)
}
