// Package catalog implements the listing, facet and detail read paths
// over the denormalized product search projection.
package catalog

import (
	"strconv"
	"strings"

	"github.com/threadmark/catalog-api/internal/search"
)

// Filters is the typed filter surface shared by the listing and facet
// endpoints. Empty values mean "dimension not filtered".
type Filters struct {
	Gender        string   `json:"gender,omitempty"`
	AgeGroup      string   `json:"ageGroup,omitempty"`
	Tag           string   `json:"tag,omitempty"`
	PrimaryColour []string `json:"primaryColour,omitempty"`
	ColourShade   []string `json:"colourShade,omitempty"`

	Sleeves        []string `json:"sleeve,omitempty"`
	Necklines      []string `json:"neckline,omitempty"`
	Fabrics        []string `json:"fabric,omitempty"`
	Sizes          []string `json:"size,omitempty"`
	Styles         []string `json:"style,omitempty"`
	Colours        []string `json:"colour,omitempty"`
	Weights        []string `json:"weight,omitempty"`
	Fits           []string `json:"fit,omitempty"`
	Features       []string `json:"feature,omitempty"`
	Effects        []string `json:"effect,omitempty"`
	Accreditations []string `json:"accreditations,omitempty"`
	Sectors        []string `json:"sector,omitempty"`
	Sports         []string `json:"sport,omitempty"`
	Flags          []string `json:"flag,omitempty"`

	Brand       string `json:"brand,omitempty"`
	ProductType string `json:"productType,omitempty"`

	CategoryIDs []int `json:"category,omitempty"`

	PriceMin *float64 `json:"priceMin,omitempty"`
	PriceMax *float64 `json:"priceMax,omitempty"`

	IsBestSeller  *bool `json:"isBestSeller,omitempty"`
	IsRecommended *bool `json:"isRecommended,omitempty"`
}

// arrayDimensions maps each overlap-filtered dimension to its
// projection column. Shared with the facet aggregator.
var arrayDimensions = []struct {
	Name   string
	Column string
	Get    func(f Filters) []string
}{
	{"sleeve", "sleeve_slugs", func(f Filters) []string { return f.Sleeves }},
	{"neckline", "neckline_slugs", func(f Filters) []string { return f.Necklines }},
	{"fabric", "fabric_slugs", func(f Filters) []string { return f.Fabrics }},
	{"size", "size_slugs", func(f Filters) []string { return f.Sizes }},
	{"style", "style_keyword_slugs", func(f Filters) []string { return f.Styles }},
	{"colour", "colour_slugs", func(f Filters) []string { return f.Colours }},
	{"weight", "weight_slugs", func(f Filters) []string { return f.Weights }},
	{"fit", "fit_slugs", func(f Filters) []string { return f.Fits }},
	{"feature", "feature_slugs", func(f Filters) []string { return f.Features }},
	{"effect", "effects_arr", func(f Filters) []string { return f.Effects }},
	{"accreditation", "accreditation_slugs", func(f Filters) []string { return f.Accreditations }},
	{"sector", "sector_slugs", func(f Filters) []string { return f.Sectors }},
	{"sport", "sport_slugs", func(f Filters) []string { return f.Sports }},
}

// Predicates renders the filter set into the shared predicate model.
// The implicit Live-status clause always comes first: the projection
// carries a partial index over live rows. Price bounds go to HAVING so
// they apply to the aggregated per-style minimum, not individual SKUs.
// When excludeDim is non-empty, that dimension's own predicate is
// skipped (facet cross-filter counting).
func (f Filters) Predicates(excludeDim string) *search.PredicateSet {
	set := &search.PredicateSet{}
	set.Where(search.Raw("p.sku_status = 'Live'"))

	if f.Gender != "" && excludeDim != "gender" {
		set.Where(search.EqualFold("p.gender_slug", f.Gender))
	}
	if f.AgeGroup != "" && excludeDim != "ageGroup" {
		set.Where(search.EqualFold("p.age_group_slug", f.AgeGroup))
	}
	if f.Tag != "" && excludeDim != "tag" {
		set.Where(search.EqualFold("p.tag_slug", f.Tag))
	}
	if len(f.PrimaryColour) > 0 && excludeDim != "primaryColour" {
		set.Where(search.EqualAny("LOWER(p.primary_colour)", lowerAll(f.PrimaryColour)))
	}
	if len(f.ColourShade) > 0 && excludeDim != "colourShade" {
		set.Where(search.EqualAny("LOWER(p.colour_shade)", lowerAll(f.ColourShade)))
	}

	for _, dim := range arrayDimensions {
		values := dim.Get(f)
		if len(values) == 0 || dim.Name == excludeDim {
			continue
		}
		set.Where(search.Overlap("p."+dim.Column, search.ExpandSlugVariants(values)))
	}

	if len(f.Flags) > 0 && excludeDim != "flag" {
		set.Where(search.Raw(
			"p.flag_ids && (SELECT COALESCE(array_agg(id), '{}') FROM special_flags WHERE slug = ANY($?))",
			f.Flags))
	}

	if f.Brand != "" && excludeDim != "brand" {
		lowered := strings.ToLower(f.Brand)
		set.Where(search.Raw(
			"(LOWER(p.brand) = $? OR REPLACE(LOWER(p.brand), ' ', '-') = $?)",
			lowered, lowered))
	}

	if f.ProductType != "" && excludeDim != "productType" {
		set.Where(search.Raw(
			"REPLACE(REPLACE(LOWER(pt.name), '-', ''), ' ', '') = $?",
			NormalizeProductType(f.ProductType)))
	}

	if len(f.CategoryIDs) > 0 && excludeDim != "category" {
		set.Where(search.Raw("p.category_ids && $?", f.CategoryIDs))
	}

	if f.IsBestSeller != nil && *f.IsBestSeller {
		set.Where(search.Raw("p.is_best_seller = TRUE"))
	}
	if f.IsRecommended != nil && *f.IsRecommended {
		set.Where(search.Raw("p.is_recommended = TRUE"))
	}

	if f.PriceMin != nil {
		set.Having(search.GTE("MIN(p.sell_price)", *f.PriceMin))
	}
	if f.PriceMax != nil {
		set.Having(search.LTE("MIN(p.sell_price)", *f.PriceMax))
	}

	return set
}

// NeedsProductTypeJoin reports whether the statement must join
// product_types (aliased pt) for the normalized-name match.
func (f Filters) NeedsProductTypeJoin() bool {
	return f.ProductType != ""
}

// Strict reports whether a post-SQL safety filter applies: colour and
// price filters are re-checked during folding and can prune rows the
// relational predicate admitted.
func (f Filters) Strict() bool {
	return len(f.PrimaryColour) > 0 || len(f.Colours) > 0 || len(f.ColourShade) > 0 ||
		f.PriceMin != nil || f.PriceMax != nil
}

// HasColourFilter reports whether any colour dimension is active.
func (f Filters) HasColourFilter() bool {
	return len(f.PrimaryColour) > 0 || len(f.Colours) > 0 || len(f.ColourShade) > 0
}

// CacheMap flattens the filter set for cache-key normalization.
func (f Filters) CacheMap() map[string]any {
	m := map[string]any{
		"gender":        f.Gender,
		"ageGroup":      f.AgeGroup,
		"tag":           f.Tag,
		"primaryColour": f.PrimaryColour,
		"colourShade":   f.ColourShade,
		"sleeve":        f.Sleeves,
		"neckline":      f.Necklines,
		"fabric":        f.Fabrics,
		"size":          f.Sizes,
		"style":         f.Styles,
		"colour":        f.Colours,
		"weight":        f.Weights,
		"fit":           f.Fits,
		"feature":       f.Features,
		"effect":        f.Effects,
		"accreditation": f.Accreditations,
		"sector":        f.Sectors,
		"sport":         f.Sports,
		"flag":          f.Flags,
		"brand":         f.Brand,
		"productType":   f.ProductType,
		"priceMin":      f.PriceMin,
		"priceMax":      f.PriceMax,
		"isBestSeller":  f.IsBestSeller,
		"isRecommended": f.IsRecommended,
	}
	if len(f.CategoryIDs) > 0 {
		cats := make([]string, 0, len(f.CategoryIDs))
		for _, id := range f.CategoryIDs {
			cats = append(cats, strconv.Itoa(id))
		}
		m["category"] = cats
	}
	return m
}

// NormalizeProductType folds a product-type name to its join form:
// lower case with hyphens and spaces stripped. The "tshirt(s)"
// shorthand canonicalizes to "tshirts".
func NormalizeProductType(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "")
	n = strings.ReplaceAll(n, " ", "")
	if n == "tshirt" {
		n = "tshirts"
	}
	return n
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
