// Package allergen contains the canonical allergen taxonomy shared by the
// upload pipeline and the menu API. It follows Domain-Driven Design
// principles: the registry is an immutable value built once at startup and
// injected wherever canonicalization is needed.
package allergen

import "strings"

// MarkerType distinguishes true allergens from dietary markers
type MarkerType string

const (
	MarkerAllergen MarkerType = "allergen"
	MarkerDietary  MarkerType = "dietary"
)

// CanonicalAllergen is the single normalized representation every alias,
// legacy taxonomy code, and LLM-supplied label resolves to.
type CanonicalAllergen struct {
	Slug        string
	Label       string
	LegacyCodes []string
	Aliases     []string
	Family      string
	MarkerType  MarkerType
}

// Registry resolves free-text allergen labels to canonical entries through a
// precomputed case-insensitive reverse index. Resolution is alias-table
// driven rather than pattern-matching: the alias table absorbs years of
// inconsistent LLM and taxonomy vocabulary without code changes, and exact
// matching avoids the false positives prefix matching would produce on an
// open vocabulary.
type Registry struct {
	bySlug map[string]*CanonicalAllergen
	index  map[string]*CanonicalAllergen
}

// canonicalData is the fixed marker vocabulary exposed to the LLM prompts and
// validated on the way back in. Slugs are unique; every alias maps to exactly
// one entry.
var canonicalData = []CanonicalAllergen{
	{
		Slug:        "cereals_gluten",
		Label:       "Cereals containing gluten",
		LegacyCodes: []string{"wheat", "barley", "rye", "oats", "spelt", "triticale"},
		Aliases: []string{
			"gluten", "wheat", "durum wheat", "semolina", "farina", "flour",
			"bread", "cereal", "cereals", "barley", "malt", "rye",
			"pumpernickel", "oats", "oatmeal", "rolled oats", "spelt",
			"dinkel", "triticale", "kamut",
		},
		Family:     "cereals_gluten",
		MarkerType: MarkerAllergen,
	},
	{
		Slug:  "crustaceans",
		Label: "Crustaceans",
		Aliases: []string{
			"crustacean", "shrimp", "prawn", "prawns", "crab", "lobster",
			"crayfish", "langoustine", "scampi",
		},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:       "eggs",
		Label:      "Eggs",
		Aliases:    []string{"egg", "albumen", "meringue", "mayonnaise", "ovalbumin"},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:  "fish",
		Label: "Fish",
		Aliases: []string{
			"salmon", "cod", "trout", "haddock", "tuna", "bass", "anchovy",
			"anchovies", "sardine", "mackerel", "fish sauce",
		},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:  "peanuts",
		Label: "Peanuts",
		Aliases: []string{
			"peanut", "groundnut", "groundnuts", "satay", "arachis",
			"peanut butter",
		},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:  "soybeans",
		Label: "Soybeans",
		Aliases: []string{
			"soy", "soya", "soybean", "edamame", "tofu", "tempeh", "miso",
			"lecithin", "soy sauce",
		},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:        "milk",
		Label:       "Milk",
		LegacyCodes: []string{"dairy"},
		Aliases: []string{
			"dairy", "lactose", "cheese", "butter", "cream", "yogurt",
			"yoghurt", "ghee", "whey", "casein",
		},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:        "tree_nuts",
		Label:       "Tree nuts",
		LegacyCodes: []string{"nuts"},
		Aliases: []string{
			"nut", "nuts", "almond", "almonds", "hazelnut", "hazelnuts",
			"walnut", "walnuts", "cashew", "cashews", "pecan", "pecans",
			"brazil nut", "brazil nuts", "pistachio", "pistachios",
			"macadamia", "macadamia nut", "chestnut", "praline",
		},
		Family:     "tree_nuts",
		MarkerType: MarkerAllergen,
	},
	{
		Slug:       "celery",
		Label:      "Celery",
		Aliases:    []string{"celeriac", "apium", "celery salt"},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:  "mustard",
		Label: "Mustard",
		Aliases: []string{
			"dijon", "wholegrain mustard", "yellow mustard", "brown mustard",
			"mustard seed",
		},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:  "sesame",
		Label: "Sesame seeds",
		Aliases: []string{
			"sesame seed", "sesame seeds", "tahini", "gomasio", "sesame oil",
		},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:        "sulphites",
		Label:       "Sulphur dioxide & sulphites",
		LegacyCodes: []string{"sulphur_dioxide"},
		Aliases: []string{
			"sulphite", "sulfite", "sulfites", "so2", "e220", "e221", "e222",
			"e223", "e224", "e226", "e227", "e228",
		},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:       "lupin",
		Label:      "Lupin",
		Aliases:    []string{"lupine", "lupini", "lupin flour"},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:        "molluscs",
		Label:       "Molluscs",
		LegacyCodes: []string{"shellfish"},
		Aliases: []string{
			"mollusc", "mussel", "mussels", "oyster", "oysters", "clam",
			"clams", "octopus", "squid", "calamari", "scallop", "scallops",
			"snail", "snails",
		},
		MarkerType: MarkerAllergen,
	},
	{
		Slug:       "vegan",
		Label:      "Vegan",
		Aliases:    []string{"plant-based", "plant based"},
		MarkerType: MarkerDietary,
	},
	{
		Slug:       "vegetarian",
		Label:      "Vegetarian",
		Aliases:    []string{"veggie", "meat-free", "meat free"},
		MarkerType: MarkerDietary,
	},
}

// NewRegistry builds the registry and its reverse index. Build once, read
// many: the index covers slug, label, legacy codes, and aliases, all
// case-folded.
func NewRegistry() *Registry {
	r := &Registry{
		bySlug: make(map[string]*CanonicalAllergen, len(canonicalData)),
		index:  make(map[string]*CanonicalAllergen),
	}

	for i := range canonicalData {
		entry := &canonicalData[i]
		r.bySlug[entry.Slug] = entry
		r.index[entry.Slug] = entry
		r.index[strings.ToLower(entry.Label)] = entry
		for _, code := range entry.LegacyCodes {
			r.index[strings.ToLower(code)] = entry
		}
		for _, alias := range entry.Aliases {
			r.index[strings.ToLower(alias)] = entry
		}
	}

	return r
}

// Canonicalize resolves a free-text label, alias, or legacy taxonomy code to
// its canonical entry. It is total: any input yields either an entry or
// ok=false, never a panic. Matching is case-insensitive and exact.
func (r *Registry) Canonicalize(value string) (*CanonicalAllergen, bool) {
	text := strings.ToLower(strings.TrimSpace(value))
	if text == "" {
		return nil, false
	}
	entry, ok := r.index[text]
	return entry, ok
}

// BySlug returns the canonical entry for a slug.
func (r *Registry) BySlug(slug string) (*CanonicalAllergen, bool) {
	entry, ok := r.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	return entry, ok
}

// All returns the canonical entries in their declaration order.
func (r *Registry) All() []CanonicalAllergen {
	return canonicalData
}

// Slugs returns the canonical marker vocabulary, used when building LLM
// prompts that constrain allergen output.
func (r *Registry) Slugs() []string {
	slugs := make([]string, len(canonicalData))
	for i := range canonicalData {
		slugs[i] = canonicalData[i].Slug
	}
	return slugs
}
