package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadmark/catalog-api/internal/cache"
	"github.com/threadmark/catalog-api/internal/config"
	"github.com/threadmark/catalog-api/internal/search"
)

var listWeights = config.ScoreWeights{
	ExactCode: 100, PrefixCode: 80, NameRegex: 70, FullText: 60,
	Colour: 30, Fabric: 30, Neckline: 20, Sleeve: 20, Keyword: 15,
}

func TestNormalizeDefaults(t *testing.T) {
	p := ListParams{}
	require.NoError(t, p.Normalize())

	assert.Equal(t, "newest", p.Sort)
	assert.Equal(t, "ASC", p.Order)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 24, p.Limit)
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	bad := ListParams{Sort: "velocity"}
	assert.ErrorIs(t, bad.Normalize(), ErrInvalidInput)

	bad = ListParams{Order: "sideways"}
	assert.ErrorIs(t, bad.Normalize(), ErrInvalidInput)

	bad = ListParams{Limit: 500}
	assert.ErrorIs(t, bad.Normalize(), ErrInvalidInput)
}

// maxPlaceholder returns the highest $n referenced in sql.
func maxPlaceholder(t *testing.T, sql string) int {
	t.Helper()
	re := regexp.MustCompile(`\$(\d+)`)
	max := 0
	for _, m := range re.FindAllStringSubmatch(sql, -1) {
		var n int
		_, err := fmt.Sscanf(m[1], "%d", &n)
		require.NoError(t, err)
		if n > max {
			max = n
		}
	}
	return max
}

func TestBuildPageQueryPlaceholdersMatchArgs(t *testing.T) {
	min := 5.0
	params := ListParams{
		Filters: Filters{
			Brand:    "acme",
			Colours:  []string{"red"},
			PriceMin: &min,
		},
		Query: "red hoodie",
		Sort:  "newest",
		Order: "ASC",
		Page:  2,
		Limit: 24,
	}
	intent := search.Intent{Colours: []string{"red"}, FreeText: []string{"hoodie"}}

	sql, args := buildPageQuery(params, intent, params.Query, listWeights, true)

	assert.Equal(t, len(args), maxPlaceholder(t, sql),
		"every argument is referenced and numbering is dense")
	assert.Contains(t, sql, "WITH base AS")
	assert.Contains(t, sql, "totals AS")
	assert.Contains(t, sql, "relevance_score")
	assert.Contains(t, sql, "GROUP BY p.style_code")
	assert.Contains(t, sql, "HAVING")
}

func TestBuildPageQueryWithoutTotals(t *testing.T) {
	params := ListParams{Sort: "newest", Order: "ASC", Page: 1, Limit: 24}

	sql, _ := buildPageQuery(params, search.Intent{}, "", listWeights, false)

	assert.NotContains(t, sql, "totals AS")
	assert.NotContains(t, sql, "relevance_score")
}

func TestBuildPageQueryStrictOverFetch(t *testing.T) {
	params := ListParams{
		Filters: Filters{Colours: []string{"red"}},
		Sort:    "newest", Order: "ASC", Page: 1, Limit: 24,
	}

	_, args := buildPageQuery(params, search.Intent{}, "", listWeights, false)

	// LIMIT and OFFSET are the final two arguments.
	require.GreaterOrEqual(t, len(args), 2)
	assert.Equal(t, 72, args[len(args)-2], "3x over-fetch under strict filters")
	assert.Equal(t, 0, args[len(args)-1])
}

func TestBuildPageQueryOverFetchCap(t *testing.T) {
	params := ListParams{
		Filters: Filters{Colours: []string{"red"}},
		Sort:    "newest", Order: "ASC", Page: 1, Limit: 100,
	}

	_, args := buildPageQuery(params, search.Intent{}, "", listWeights, false)

	assert.Equal(t, 200, args[len(args)-2], "over-fetch is capped")
}

func TestOrderClauseModes(t *testing.T) {
	base := ListParams{Order: "DESC"}

	base.Sort = "price"
	assert.True(t, strings.HasPrefix(orderClause(base, false), "b.min_price DESC"))

	base.Sort = "best"
	assert.True(t, strings.HasPrefix(orderClause(base, false), "b.is_best DESC"))

	base.Sort = "newest"
	assert.True(t, strings.HasPrefix(orderClause(base, true), "b.relevance_score DESC"))
	assert.False(t, strings.HasPrefix(orderClause(base, false), "b.relevance_score DESC"))
}

func TestDisplayOrderJoinScopes(t *testing.T) {
	join, args, next := displayOrderJoin(Filters{}, 1)
	assert.Contains(t, join, "cdo.brand IS NULL AND cdo.product_type IS NULL")
	assert.Empty(t, args)
	assert.Equal(t, 1, next)

	join, args, next = displayOrderJoin(Filters{Brand: "Acme"}, 1)
	assert.Contains(t, join, "LOWER(cdo.brand) = $1")
	assert.Equal(t, []any{"acme"}, args)
	assert.Equal(t, 2, next)

	join, args, next = displayOrderJoin(Filters{Brand: "Acme", ProductType: "T-Shirts"}, 3)
	assert.Contains(t, join, "LOWER(cdo.brand) = $3 AND LOWER(cdo.product_type) = $4")
	assert.Equal(t, []any{"acme", "tshirts"}, args)
	assert.Equal(t, 5, next)
}

func TestFoldRowsGroupsByStyle(t *testing.T) {
	rows := []hydrationRow{
		{StyleCode: "AD002", StyleName: "Pique Polo", Brand: "Acme", ColourName: "Red", PrimaryImage: "p.jpg", ColourImage: "red.jpg", SizeName: "M", SellPrice: 10, CartonPrice: 8},
		{StyleCode: "AD002", StyleName: "Pique Polo", Brand: "Acme", ColourName: "Red", PrimaryImage: "p.jpg", ColourImage: "red-2.jpg", SizeName: "L", SellPrice: 10, CartonPrice: 8},
		{StyleCode: "AD002", StyleName: "Pique Polo", Brand: "Acme", ColourName: "Navy", PrimaryImage: "p.jpg", ColourImage: "navy.jpg", SizeName: "S", SellPrice: 9.5, CartonPrice: 8},
	}

	items := FoldRows(rows, []string{"AD002"})

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "AD002", item.Code)
	assert.Equal(t, 9.5, item.Price, "minimum sell price wins")

	require.Len(t, item.Colors, 2)
	assert.Equal(t, "red.jpg", item.Colors[0].Main, "first image per colour wins")
	assert.Equal(t, []string{"S", "M", "L"}, item.Sizes)
}

func TestFoldRowsPreservesPageOrder(t *testing.T) {
	rows := []hydrationRow{
		{StyleCode: "BB1", StyleName: "B", Brand: "x", ColourName: "Red", SellPrice: 5},
		{StyleCode: "AA1", StyleName: "A", Brand: "x", ColourName: "Red", SellPrice: 5},
	}

	items := FoldRows(rows, []string{"BB1", "AA1"})

	require.Len(t, items, 2)
	assert.Equal(t, "BB1", items[0].Code)
	assert.Equal(t, "AA1", items[1].Code)
}

func TestFoldRowsSkipsMissingCodes(t *testing.T) {
	rows := []hydrationRow{
		{StyleCode: "AA1", StyleName: "A", Brand: "x", ColourName: "Red", SellPrice: 5},
	}

	items := FoldRows(rows, []string{"GONE", "AA1"})

	require.Len(t, items, 1)
	assert.Equal(t, "AA1", items[0].Code)
}

func TestSortSizes(t *testing.T) {
	sizes := []string{"5XL", "M", "One Size", "XS", "2XL", "L"}
	SortSizes(sizes)

	assert.Equal(t, []string{"XS", "M", "L", "2XL", "5XL", "One Size"}, sizes)
}

func TestApplySafetyFiltersColour(t *testing.T) {
	items := []*ListItem{
		{Code: "A", Price: 10, Colors: []ColourVariant{{Name: "Red"}, {Name: "Green"}}},
		{Code: "B", Price: 10, Colors: []ColourVariant{{Name: "Green"}}},
	}
	f := Filters{Colours: []string{"red"}}

	out := applySafetyFilters(items, f)

	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].Code)
	require.Len(t, out[0].Colors, 1, "non-matching colours are pruned")
	assert.Equal(t, "Red", out[0].Colors[0].Name)
}

func TestApplySafetyFiltersPrice(t *testing.T) {
	min, max := 8.0, 12.0
	items := []*ListItem{
		{Code: "A", Price: 7},
		{Code: "B", Price: 10},
		{Code: "C", Price: 13},
	}
	f := Filters{PriceMin: &min, PriceMax: &max}

	out := applySafetyFilters(items, f)

	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].Code)
}

func TestApplySafetyFiltersNoOpWhenNotStrict(t *testing.T) {
	items := []*ListItem{{Code: "A", Price: 1}}

	out := applySafetyFilters(items, Filters{Brand: "acme"})

	assert.Equal(t, items, out)
}

func TestScaleTotalOverFetchAloneDoesNotScale(t *testing.T) {
	// A limit-24 page over-fetches 72 codes under strict filters. When
	// nothing gets pruned the full total must survive; truncating the
	// page back down to the limit is not pruning.
	assert.Equal(t, 100, scaleTotal(100, 72, 72, true))
}

func TestScaleTotalPrunedPage(t *testing.T) {
	// Half the fetched styles failed the post-SQL checks, so half the
	// claimed total is assumed unreachable too.
	assert.Equal(t, 50, scaleTotal(100, 72, 36, true))
}

func TestScaleTotalNotStrict(t *testing.T) {
	assert.Equal(t, 100, scaleTotal(100, 72, 10, false))
}

func TestScaleTotalFloorsAtKeptCount(t *testing.T) {
	assert.Equal(t, 24, scaleTotal(10, 72, 24, true))
}

func TestScaleTotalEmptyFetch(t *testing.T) {
	assert.Equal(t, 7, scaleTotal(7, 0, 0, true))
}

func TestTotalsKeyIgnoresSortAndOrder(t *testing.T) {
	a := ListParams{
		Filters: Filters{Brand: "acme", Colours: []string{"red"}},
		Query:   "hoodie",
		Sort:    "newest", Order: "ASC", Page: 1, Limit: 24,
	}
	b := a
	b.Sort = "price"
	b.Order = "DESC"
	b.Page = 3

	assert.Equal(t,
		cache.Key("count", a.totalsCacheMap(), 0, 0),
		cache.Key("count", b.totalsCacheMap(), 0, 0),
		"count and price range are shared across sort modes")
	assert.NotEqual(t,
		cache.Key("products", a.cacheMap(), a.Page, a.Limit),
		cache.Key("products", b.cacheMap(), b.Page, b.Limit),
		"page entries still key on sort and position")
}
