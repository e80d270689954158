package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadmark/catalog-api/internal/search"
)

func TestBuildFacetQuerySingleStatement(t *testing.T) {
	params := FacetParams{Filters: Filters{Gender: "mens"}}

	sql, args := buildFacetQuery(params, search.Intent{}, "", listWeights, 50, false)

	assert.True(t, strings.HasPrefix(sql, "WITH base AS"))
	assert.Equal(t, len(facetDimensions())-1, strings.Count(sql, "UNION ALL"),
		"one branch per dimension")
	assert.Equal(t, 50, args[0], "shared per-dimension limit binds once")
	assert.Equal(t, len(args), maxPlaceholder(t, sql))
}

func TestBuildFacetQueryEveryDimensionPresent(t *testing.T) {
	sql, _ := buildFacetQuery(FacetParams{}, search.Intent{}, "", listWeights, 50, false)

	for _, dim := range facetDimensions() {
		assert.Contains(t, sql, "'"+dim+"'", "missing branch for %s", dim)
	}
}

func TestBuildFacetQuerySelfExclusion(t *testing.T) {
	params := FacetParams{Filters: Filters{
		Colours: []string{"red"},
		Brand:   "acme",
	}}

	sql, args := buildFacetQuery(params, search.Intent{}, "", listWeights, 50, true)

	assert.Contains(t, sql, "base_colour AS")
	assert.Contains(t, sql, "base_brand AS")
	// The colour branch counts against the set without the colour filter.
	assert.Contains(t, sql, "JOIN base_colour e")
	// Unfiltered dimensions still use the shared base.
	assert.Contains(t, sql, "JOIN base e")
	assert.Equal(t, len(args), maxPlaceholder(t, sql))
}

func TestBuildFacetQueryNoSelfExclusionSharesBase(t *testing.T) {
	params := FacetParams{Filters: Filters{Colours: []string{"red"}}}

	sql, _ := buildFacetQuery(params, search.Intent{}, "", listWeights, 50, false)

	assert.NotContains(t, sql, "base_colour")
}

func TestBuildFacetQueryWithSearchQuery(t *testing.T) {
	intent := search.Intent{Colours: []string{"red"}}

	sql, args := buildFacetQuery(FacetParams{Query: "red hoodie"}, intent, "red hoodie", listWeights, 50, false)

	assert.Contains(t, sql, "plainto_tsquery")
	assert.Equal(t, len(args), maxPlaceholder(t, sql))
}

func TestBuildFacetQuerySizeOrdering(t *testing.T) {
	sql, _ := buildFacetQuery(FacetParams{}, search.Intent{}, "", listWeights, 50, false)

	require.Contains(t, sql, "LEFT JOIN sizes lk")
	assert.Contains(t, sql, "ORDER BY MIN(lk.size_order) ASC NULLS LAST")
}

func TestBuildFacetQueryLookupNames(t *testing.T) {
	sql, _ := buildFacetQuery(FacetParams{}, search.Intent{}, "", listWeights, 50, false)

	// Scalar dimensions backed by a lookup table take the stored name,
	// falling back to the derived one for unmatched slugs.
	assert.Contains(t, sql, "LEFT JOIN genders lk ON lk.slug = p.gender_slug")
	assert.Contains(t, sql, "LEFT JOIN age_groups lk ON lk.slug = p.age_group_slug")
	assert.Contains(t, sql, "LEFT JOIN tags lk ON lk.slug = p.tag_slug")
	assert.Contains(t, sql, "COALESCE(MIN(lk.name), MIN(INITCAP(REPLACE(p.gender_slug, '-', ' '))))")

	// Slug-keyed array lookups join on the slug column directly so a
	// stored name like "180-220gsm" is not lost to de-hyphenation.
	assert.Contains(t, sql, "LEFT JOIN weight_ranges lk ON lk.slug = u.slug")
	assert.Contains(t, sql, "LEFT JOIN effects lk ON lk.slug = u.slug")
	assert.Contains(t, sql, "LEFT JOIN accreditations lk ON lk.slug = u.slug")
}

func TestActiveFacetDims(t *testing.T) {
	f := Filters{
		Gender:  "mens",
		Colours: []string{"red"},
		Flags:   []string{"sale"},
	}

	dims := activeFacetDims(f)

	assert.ElementsMatch(t, []string{"gender", "colour", "flag"}, dims)
}
