package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicatesAlwaysLiveFirst(t *testing.T) {
	whereSQL, havingSQL, params, next := Filters{}.Predicates("").Emit(1)

	assert.Equal(t, "p.sku_status = 'Live'", whereSQL)
	assert.Empty(t, havingSQL)
	assert.Empty(t, params)
	assert.Equal(t, 1, next)
}

func TestPredicatesArrayOverlapWithVariants(t *testing.T) {
	f := Filters{Necklines: []string{"V-Neck"}}

	whereSQL, _, params, _ := f.Predicates("").Emit(1)

	assert.Contains(t, whereSQL, "p.neckline_slugs && $1")
	require.Len(t, params, 1)
	assert.ElementsMatch(t, []string{"v-neck", "vneck"}, params[0])
}

func TestPredicatesBrandMatchesNameAndSlug(t *testing.T) {
	f := Filters{Brand: "Fruit Of The Loom"}

	whereSQL, _, params, _ := f.Predicates("").Emit(1)

	assert.Contains(t, whereSQL, "(LOWER(p.brand) = $1 OR REPLACE(LOWER(p.brand), ' ', '-') = $2)")
	assert.Equal(t, []any{"fruit of the loom", "fruit of the loom"}, params)
}

func TestPredicatesPriceGoesToHaving(t *testing.T) {
	min, max := 5.0, 20.0
	f := Filters{PriceMin: &min, PriceMax: &max}

	whereSQL, havingSQL, params, _ := f.Predicates("").Emit(1)

	assert.NotContains(t, whereSQL, "sell_price")
	assert.Equal(t, "MIN(p.sell_price) >= $1 AND MIN(p.sell_price) <= $2", havingSQL)
	assert.Equal(t, []any{5.0, 20.0}, params)
}

func TestPredicatesFlagSubquery(t *testing.T) {
	f := Filters{Flags: []string{"clearance"}}

	whereSQL, _, params, _ := f.Predicates("").Emit(1)

	assert.Contains(t, whereSQL, "p.flag_ids && (SELECT COALESCE(array_agg(id), '{}') FROM special_flags WHERE slug = ANY($1))")
	require.Len(t, params, 1)
}

func TestPredicatesExcludeDim(t *testing.T) {
	f := Filters{Colours: []string{"red"}, Fabrics: []string{"cotton"}}

	whereSQL, _, _, _ := f.Predicates("colour").Emit(1)

	assert.NotContains(t, whereSQL, "colour_slugs")
	assert.Contains(t, whereSQL, "fabric_slugs")
}

func TestNormalizeProductType(t *testing.T) {
	assert.Equal(t, "tshirts", NormalizeProductType("T-Shirts"))
	assert.Equal(t, "tshirts", NormalizeProductType("tshirt"))
	assert.Equal(t, "poloshirts", NormalizeProductType("Polo Shirts"))
}

func TestStrict(t *testing.T) {
	min := 5.0

	assert.False(t, Filters{Brand: "acme"}.Strict())
	assert.True(t, Filters{Colours: []string{"red"}}.Strict())
	assert.True(t, Filters{PriceMin: &min}.Strict())
	assert.True(t, Filters{ColourShade: []string{"dark"}}.Strict())
}

func TestCacheMapCategoryEncoding(t *testing.T) {
	f := Filters{CategoryIDs: []int{7, 3}}

	m := f.CacheMap()

	assert.Equal(t, []string{"7", "3"}, m["category"])
}

func TestNeedsProductTypeJoin(t *testing.T) {
	assert.False(t, Filters{}.NeedsProductTypeJoin())
	assert.True(t, Filters{ProductType: "hoodies"}.NeedsProductTypeJoin())
}
