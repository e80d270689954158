package catalog

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/threadmark/catalog-api/internal/cache"
	"github.com/threadmark/catalog-api/internal/config"
	"github.com/threadmark/catalog-api/internal/search"
	"github.com/threadmark/catalog-api/internal/storage"
)

const projectionTable = "product_search_projection"

// Sort modes accepted by the listing endpoint.
var validSorts = map[string]bool{
	"newest": true, "price": true, "name": true, "brand": true,
	"code": true, "best": true, "recommended": true,
}

// ListParams is the full request surface of the listing endpoint.
type ListParams struct {
	Filters
	Query string
	Sort  string
	Order string
	Page  int
	Limit int
}

// Normalize applies defaults and validates enumerated fields.
func (p *ListParams) Normalize() error {
	if p.Sort == "" {
		p.Sort = "newest"
	}
	if !validSorts[p.Sort] {
		return fmt.Errorf("%w: unknown sort %q", ErrInvalidInput, p.Sort)
	}
	switch strings.ToUpper(p.Order) {
	case "":
		p.Order = "ASC"
	case "ASC", "DESC":
		p.Order = strings.ToUpper(p.Order)
	default:
		return fmt.Errorf("%w: order must be ASC or DESC", ErrInvalidInput)
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = 24
	}
	if p.Limit < 1 || p.Limit > 200 {
		return fmt.Errorf("%w: limit must be in [1,200]", ErrInvalidInput)
	}
	return nil
}

func (p ListParams) cacheMap() map[string]any {
	m := p.totalsCacheMap()
	m["sort"] = p.Sort
	m["order"] = p.Order
	return m
}

// totalsCacheMap omits sort and order: the eligible set, and therefore
// the count and price range, do not depend on them.
func (p ListParams) totalsCacheMap() map[string]any {
	m := p.Filters.CacheMap()
	m["q"] = strings.TrimSpace(p.Query)
	return m
}

// ColourVariant is one colour of a listed product.
type ColourVariant struct {
	Name  string `json:"name"`
	Main  string `json:"main"`
	Thumb string `json:"thumb"`
}

// ListItem is one product in the listing response.
type ListItem struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Price         float64         `json:"price"`
	CartonPrice   float64         `json:"carton_price"`
	Image         string          `json:"image"`
	Colors        []ColourVariant `json:"colors"`
	Sizes         []string        `json:"sizes"`
	Customization []string        `json:"customization"`
	PriceBreaks   []PriceBreak    `json:"priceBreaks"`
	MarkupTier    float64         `json:"markup_tier"`
	MarkupSource  string          `json:"markup_source"`
	DisplayOrder  *int            `json:"display_order,omitempty"`

	primaryColour  string
	singlePrice    float64
	markupOverride *float64
}

// PriceRange is the MIN/MAX sell price over the filtered set.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ListResult is the listing endpoint response body.
type ListResult struct {
	Items      []*ListItem `json:"items"`
	Total      int         `json:"total"`
	PriceRange PriceRange  `json:"priceRange"`
}

// Service runs the catalog read paths.
type Service struct {
	pool     *pgxpool.Pool
	cache    *cache.Layer
	parser   *search.Parser
	schedule *ScheduleStore
	images   *storage.ImageResolver
	cfg      *config.Config
	log      zerolog.Logger
}

// NewService wires the catalog service.
func NewService(pool *pgxpool.Pool, cacheLayer *cache.Layer, parser *search.Parser,
	schedule *ScheduleStore, images *storage.ImageResolver, cfg *config.Config, log zerolog.Logger) *Service {
	return &Service{
		pool:     pool,
		cache:    cacheLayer,
		parser:   parser,
		schedule: schedule,
		images:   images,
		cfg:      cfg,
		log:      log,
	}
}

// List serves the product listing: ranked style-code page, hydration,
// fold, safety filters, markup and quantity breaks.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if err := params.Normalize(); err != nil {
		return nil, err
	}

	listKey := cache.Key("products", params.cacheMap(), params.Page, params.Limit)
	var cached ListResult
	if s.cache.GetJSON(ctx, listKey, &cached) {
		return &cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ListingTimeout)
	defer cancel()

	var intent search.Intent
	query := strings.TrimSpace(params.Query)
	if query != "" {
		intent = s.parser.Parse(ctx, query)
	}

	// Count and price range cache independently of page/limit/sort and
	// at a longer TTL; hits let the statement skip the totals CTE.
	countKey := cache.Key("count", params.totalsCacheMap(), 0, 0)
	rangeKey := cache.Key("priceRange", params.totalsCacheMap(), 0, 0)
	var cachedTotal int
	var cachedRange PriceRange
	haveTotals := s.cache.GetJSON(ctx, countKey, &cachedTotal) &&
		s.cache.GetJSON(ctx, rangeKey, &cachedRange)

	page, err := s.fetchPage(ctx, params, intent, query, !haveTotals)
	if err != nil {
		return nil, err
	}
	if haveTotals {
		page.total = cachedTotal
		page.priceRange = cachedRange
	} else {
		s.cache.SetJSON(ctx, countKey, page.total, s.cfg.CountTTL)
		s.cache.SetJSON(ctx, rangeKey, page.priceRange, s.cfg.CountTTL)
	}

	items, err := s.hydrate(ctx, page.codes, params.Filters)
	if err != nil {
		return nil, err
	}

	fetched := len(page.codes)
	items = applySafetyFilters(items, params.Filters)
	total := scaleTotal(page.total, fetched, len(items), params.Strict())
	if len(items) > params.Limit {
		items = items[:params.Limit]
	}

	if err := s.price(ctx, items); err != nil {
		return nil, err
	}
	for _, item := range items {
		item.DisplayOrder = page.displayOrders[strings.ToLower(item.Code)]
	}

	result := &ListResult{Items: items, Total: total, PriceRange: page.priceRange}
	if result.Items == nil {
		result.Items = []*ListItem{}
	}
	s.cache.SetJSON(ctx, listKey, result, s.cfg.ListingTTL)
	return result, nil
}

type pageResult struct {
	codes         []string
	displayOrders map[string]*int
	total         int
	priceRange    PriceRange
}

// fetchPage runs the two-CTE ranked page query over the projection.
func (s *Service) fetchPage(ctx context.Context, params ListParams, intent search.Intent, query string, withTotals bool) (*pageResult, error) {
	sql, args := buildPageQuery(params, intent, query, s.cfg.Weights, withTotals)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("page query: %w", err)
	}
	defer rows.Close()

	out := &pageResult{displayOrders: make(map[string]*int)}
	for rows.Next() {
		var code string
		var displayOrder *int
		if withTotals {
			var total int
			var pmin, pmax *float64
			if err := rows.Scan(&code, &displayOrder, &total, &pmin, &pmax); err != nil {
				return nil, fmt.Errorf("page scan: %w", err)
			}
			out.total = total
			if pmin != nil {
				out.priceRange.Min = *pmin
			}
			if pmax != nil {
				out.priceRange.Max = *pmax
			}
		} else {
			if err := rows.Scan(&code, &displayOrder); err != nil {
				return nil, fmt.Errorf("page scan: %w", err)
			}
		}
		out.codes = append(out.codes, code)
		out.displayOrders[strings.ToLower(code)] = displayOrder
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("page rows: %w", err)
	}
	return out, nil
}

// buildPageQuery assembles the ranked style-code statement. Placeholder
// numbers follow argument order: display-order join params, filter
// predicates, query predicate, then LIMIT/OFFSET.
func buildPageQuery(params ListParams, intent search.Intent, query string, weights config.ScoreWeights, withTotals bool) (string, []any) {
	var args []any
	idx := 1

	joinSQL, joinArgs, idx := displayOrderJoin(params.Filters, idx)
	args = append(args, joinArgs...)

	set := params.Filters.Predicates("")
	whereSQL, havingSQL, setArgs, idx := set.Emit(idx)
	args = append(args, setArgs...)

	qp := search.BuildQueryPredicate(query, intent, weights, idx)
	args = append(args, qp.Params...)
	idx = qp.NextIndex

	var b strings.Builder
	b.WriteString("WITH base AS (\n")
	b.WriteString("SELECT p.style_code,\n")
	b.WriteString("  MIN(p.style_name) AS style_name,\n")
	b.WriteString("  MIN(p.sell_price) AS min_price,\n")
	b.WriteString("  MIN(p.created_at) AS first_created,\n")
	b.WriteString("  MIN(p.brand) AS brand_name,\n")
	b.WriteString("  MIN(pt.display_order) AS product_type_priority,\n")
	b.WriteString("  MIN(cdo.display_order) AS custom_display_order,\n")
	b.WriteString("  BOOL_OR(p.is_best_seller) AS is_best,\n")
	b.WriteString("  BOOL_OR(p.is_recommended) AS is_recommended")
	if qp.HasQuery() {
		b.WriteString(",\n  MAX(")
		b.WriteString(qp.RelevanceSelect)
		b.WriteString(") AS relevance_score")
	}
	b.WriteString("\nFROM ")
	b.WriteString(projectionTable)
	b.WriteString(" p\n")
	b.WriteString("LEFT JOIN product_types pt ON REPLACE(REPLACE(LOWER(pt.name), '-', ''), ' ', '') = REPLACE(REPLACE(LOWER(p.product_type), '-', ''), ' ', '')\n")
	b.WriteString(joinSQL)
	b.WriteString("WHERE ")
	b.WriteString(whereSQL)
	if qp.HasQuery() {
		b.WriteString(" AND ")
		b.WriteString(qp.Condition)
	}
	b.WriteString("\nGROUP BY p.style_code")
	if havingSQL != "" {
		b.WriteString("\nHAVING ")
		b.WriteString(havingSQL)
	}
	b.WriteString("\n)")

	if withTotals {
		b.WriteString(",\ntotals AS (SELECT COUNT(*) AS total, MIN(min_price) AS price_min, MAX(min_price) AS price_max FROM base)\n")
		b.WriteString("SELECT b.style_code, b.custom_display_order, t.total, t.price_min, t.price_max FROM base b CROSS JOIN totals t\n")
	} else {
		b.WriteString("\nSELECT b.style_code, b.custom_display_order FROM base b\n")
	}

	b.WriteString("ORDER BY ")
	b.WriteString(orderClause(params, qp.HasQuery()))

	fetchLimit := params.Limit
	if params.Strict() {
		fetchLimit = params.Limit * 3
		if fetchLimit > 200 {
			fetchLimit = 200
		}
	}
	offset := (params.Page - 1) * params.Limit

	b.WriteString(fmt.Sprintf("\nLIMIT $%d OFFSET $%d", idx, idx+1))
	args = append(args, fetchLimit, offset)

	return b.String(), args
}

// displayOrderJoin joins the external display-order table under the
// most specific scope the active filters allow: brand+type beats
// type-only beats brand-only beats the catalog-wide default.
func displayOrderJoin(f Filters, idx int) (string, []any, int) {
	var cond string
	var args []any
	switch {
	case f.Brand != "" && f.ProductType != "":
		cond = fmt.Sprintf("LOWER(cdo.brand) = $%d AND LOWER(cdo.product_type) = $%d", idx, idx+1)
		args = append(args, strings.ToLower(f.Brand), NormalizeProductType(f.ProductType))
		idx += 2
	case f.ProductType != "":
		cond = fmt.Sprintf("cdo.brand IS NULL AND LOWER(cdo.product_type) = $%d", idx)
		args = append(args, NormalizeProductType(f.ProductType))
		idx++
	case f.Brand != "":
		cond = fmt.Sprintf("LOWER(cdo.brand) = $%d AND cdo.product_type IS NULL", idx)
		args = append(args, strings.ToLower(f.Brand))
		idx++
	default:
		cond = "cdo.brand IS NULL AND cdo.product_type IS NULL"
	}
	join := fmt.Sprintf("LEFT JOIN custom_display_orders cdo ON LOWER(cdo.style_code) = LOWER(p.style_code) AND %s\n", cond)
	return join, args, idx
}

// orderClause picks the ORDER BY for a sort mode. Relevance leads only
// for the default sort so explicit sorts stay deterministic.
func orderClause(params ListParams, hasQuery bool) string {
	dir := params.Order
	switch params.Sort {
	case "best":
		return "b.is_best DESC, b.is_recommended DESC, b.custom_display_order ASC NULLS LAST, b.product_type_priority ASC NULLS LAST, b.first_created DESC"
	case "recommended":
		return "b.is_recommended DESC, b.is_best DESC, b.custom_display_order ASC NULLS LAST, b.product_type_priority ASC NULLS LAST, b.first_created DESC"
	case "price":
		return fmt.Sprintf("b.min_price %s, b.product_type_priority ASC NULLS LAST", dir)
	case "name":
		return fmt.Sprintf("b.style_name %s, b.product_type_priority ASC NULLS LAST", dir)
	case "brand":
		return fmt.Sprintf("b.brand_name %s, b.product_type_priority ASC NULLS LAST", dir)
	case "code":
		return fmt.Sprintf("b.style_code %s, b.product_type_priority ASC NULLS LAST", dir)
	default: // newest
		base := "b.custom_display_order ASC NULLS LAST, b.product_type_priority ASC NULLS LAST, b.first_created DESC"
		if hasQuery {
			return "b.relevance_score DESC, " + base
		}
		return base
	}
}

// hydrationRow is one authoritative SKU row for the page.
type hydrationRow struct {
	StyleCode      string
	StyleName      string
	Brand          string
	ColourName     string
	PrimaryColour  string
	PrimaryImage   string
	ColourImage    string
	SizeName       string
	SizeOrder      *int
	SinglePrice    float64
	CartonPrice    float64
	SellPrice      float64
	MarkupOverride *float64
}

// hydrate loads full SKU detail for the page codes and folds it into
// listing items, preserving the ranked order.
func (s *Service) hydrate(ctx context.Context, codes []string, filters Filters) ([]*ListItem, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(codes))
	for i, c := range codes {
		lowered[i] = strings.ToLower(c)
	}

	rowCap := len(codes) * 50
	if rowCap < 500 {
		rowCap = 500
	}
	if rowCap > 10000 {
		rowCap = 10000
	}

	var b strings.Builder
	args := []any{lowered}
	idx := 2

	b.WriteString(`SELECT st.style_code, st.style_name, b.name, pr.colour_name, pr.primary_colour,
  st.primary_image_url, pr.colour_image_url, sz.name, sz.size_order,
  pr.single_price, pr.carton_price, pr.sell_price, mo.markup_percent
FROM products pr
JOIN styles st ON st.style_code = pr.style_code
JOIN brands b ON b.id = st.brand_id
LEFT JOIN sizes sz ON sz.name = pr.size_name
LEFT JOIN product_markup_overrides mo ON LOWER(mo.style_code) = LOWER(st.style_code)
WHERE LOWER(st.style_code) = ANY($1) AND pr.sku_status = 'Live'`)

	if filters.HasColourFilter() {
		colourTerms := append([]string{}, filters.Colours...)
		colourTerms = append(colourTerms, filters.PrimaryColour...)
		colourTerms = append(colourTerms, filters.ColourShade...)
		slugs := search.ExpandSlugVariants(colourTerms)
		b.WriteString(fmt.Sprintf("\n  AND (REPLACE(LOWER(pr.colour_name), ' ', '-') = ANY($%d) OR REPLACE(LOWER(pr.primary_colour), ' ', '-') = ANY($%d))", idx, idx))
		args = append(args, slugs)
		idx++
	}

	b.WriteString("\nORDER BY st.style_code, pr.colour_name, sz.size_order NULLS LAST")
	b.WriteString(fmt.Sprintf("\nLIMIT $%d", idx))
	args = append(args, rowCap)

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("hydration query: %w", err)
	}
	defer rows.Close()

	var hydRows []hydrationRow
	for rows.Next() {
		var r hydrationRow
		var primaryImage, colourImage, sizeName *string
		if err := rows.Scan(&r.StyleCode, &r.StyleName, &r.Brand, &r.ColourName, &r.PrimaryColour,
			&primaryImage, &colourImage, &sizeName, &r.SizeOrder,
			&r.SinglePrice, &r.CartonPrice, &r.SellPrice, &r.MarkupOverride); err != nil {
			return nil, fmt.Errorf("hydration scan: %w", err)
		}
		if primaryImage != nil {
			r.PrimaryImage = *primaryImage
		}
		if colourImage != nil {
			r.ColourImage = *colourImage
		}
		if sizeName != nil {
			r.SizeName = *sizeName
		}
		hydRows = append(hydRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hydration rows: %w", err)
	}

	items := FoldRows(hydRows, codes)
	for _, item := range items {
		item.Image = s.images.Resolve(item.Image)
		for i := range item.Colors {
			item.Colors[i].Main = s.images.Resolve(item.Colors[i].Main)
			item.Colors[i].Thumb = s.images.Resolve(item.Colors[i].Thumb)
		}
	}

	// A page code the hydrator could not back is a projection drift
	// artifact: log it and move on, the caller adjusts the total.
	if len(items) < len(codes) {
		seen := make(map[string]bool, len(items))
		for _, it := range items {
			seen[strings.ToLower(it.Code)] = true
		}
		for _, c := range codes {
			if !seen[strings.ToLower(c)] {
				s.log.Warn().Str("style_code", c).Msg("page style missing from hydration")
			}
		}
	}

	return items, nil
}

// FoldRows groups SKU rows by style in page order, accumulating colour
// variants (first image wins), the size set, and the minimum prices.
func FoldRows(rows []hydrationRow, order []string) []*ListItem {
	byCode := make(map[string]*ListItem, len(order))
	colourSeen := make(map[string]map[string]bool)
	markups := make(map[string]*float64)

	for _, r := range rows {
		key := strings.ToLower(r.StyleCode)
		item, ok := byCode[key]
		if !ok {
			item = &ListItem{
				Code:          r.StyleCode,
				Name:          r.StyleName,
				Brand:         r.Brand,
				Image:         r.PrimaryImage,
				Customization: []string{"embroidery", "print"},
				Price:         r.SellPrice,
				CartonPrice:   r.CartonPrice,
				primaryColour: r.PrimaryColour,
				singlePrice:   r.SinglePrice,
			}
			byCode[key] = item
			colourSeen[key] = make(map[string]bool)
		}

		if r.SellPrice > 0 && (item.Price == 0 || r.SellPrice < item.Price) {
			item.Price = r.SellPrice
		}
		if r.CartonPrice > 0 && (item.CartonPrice == 0 || r.CartonPrice < item.CartonPrice) {
			item.CartonPrice = r.CartonPrice
		}
		if r.SinglePrice > 0 && (item.singlePrice == 0 || r.SinglePrice < item.singlePrice) {
			item.singlePrice = r.SinglePrice
		}

		if r.ColourName != "" && !colourSeen[key][strings.ToLower(r.ColourName)] {
			colourSeen[key][strings.ToLower(r.ColourName)] = true
			main := r.ColourImage
			if main == "" {
				main = r.PrimaryImage
			}
			item.Colors = append(item.Colors, ColourVariant{Name: r.ColourName, Main: main, Thumb: main})
		}

		if r.SizeName != "" && !containsFold(item.Sizes, r.SizeName) {
			item.Sizes = append(item.Sizes, r.SizeName)
		}

		if r.MarkupOverride != nil {
			markups[key] = r.MarkupOverride
		}
	}

	var out []*ListItem
	for _, code := range order {
		item, ok := byCode[strings.ToLower(code)]
		if !ok {
			continue
		}
		SortSizes(item.Sizes)
		item.markupOverride = markups[strings.ToLower(code)]
		out = append(out, item)
	}
	return out
}

// canonical garment size ranking, smallest first
var sizeRank = map[string]int{
	"xxs": 0, "xs": 1, "s": 2, "m": 3, "l": 4, "xl": 5,
	"xxl": 6, "2xl": 6, "xxxl": 7, "3xl": 7, "4xl": 8, "5xl": 9,
}

// SortSizes orders sizes by the canonical XS..5XL ranking, pushing
// unknown sizes to the end in lexical order.
func SortSizes(sizes []string) {
	sort.SliceStable(sizes, func(i, j int) bool {
		ri, iok := sizeRank[strings.ToLower(sizes[i])]
		rj, jok := sizeRank[strings.ToLower(sizes[j])]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return sizes[i] < sizes[j]
		}
	})
}

// scaleTotal adjusts the reported total when post-SQL pruning kept
// fewer styles than the ranked page fetched: hydration drift and the
// safety filters both shrink the kept set. The ratio compares against
// the fetch size, never the page limit, so a strict over-fetch with no
// pruning leaves the total untouched. Only strict filters scale; the
// floor keeps the total at least as large as the kept page.
func scaleTotal(total, fetched, kept int, strict bool) int {
	if !strict || fetched == 0 || kept >= fetched {
		return total
	}
	scaled := int(math.Round(float64(total) * float64(kept) / float64(fetched)))
	if scaled < kept {
		scaled = kept
	}
	return scaled
}

// applySafetyFilters re-applies strict colour and price checks after
// SQL: the projection is a superset filter and can drift behind the
// authoritative SKU tables.
func applySafetyFilters(items []*ListItem, f Filters) []*ListItem {
	if !f.Strict() {
		return items
	}

	colourSlugs := map[string]bool{}
	if f.HasColourFilter() {
		terms := append([]string{}, f.Colours...)
		terms = append(terms, f.PrimaryColour...)
		terms = append(terms, f.ColourShade...)
		for _, s := range search.ExpandSlugVariants(terms) {
			colourSlugs[s] = true
		}
	}

	var out []*ListItem
	for _, item := range items {
		if f.PriceMin != nil && item.Price < *f.PriceMin {
			continue
		}
		if f.PriceMax != nil && item.Price > *f.PriceMax {
			continue
		}

		if len(colourSlugs) > 0 {
			kept := item.Colors[:0]
			for _, c := range item.Colors {
				if colourSlugs[search.Slugify(c.Name)] {
					kept = append(kept, c)
				}
			}
			primaryMatches := colourSlugs[search.Slugify(item.primaryColour)]
			if len(kept) == 0 && !primaryMatches {
				continue
			}
			if len(kept) > 0 {
				item.Colors = kept
			}
		}
		out = append(out, item)
	}
	return out
}

// price applies markup selection and quantity breaks to each item.
func (s *Service) price(ctx context.Context, items []*ListItem) error {
	if len(items) == 0 {
		return nil
	}

	overrides, err := s.loadPriceOverrides(ctx, items)
	if err != nil {
		return err
	}
	schedule := s.schedule.Current(ctx)

	for _, item := range items {
		base := item.CartonPrice
		if base == 0 {
			base = item.singlePrice
		}
		markup := SelectMarkup(item.Price, base, item.markupOverride)
		item.MarkupTier = markup.Percent
		item.MarkupSource = markup.Source
		item.PriceBreaks = BuildBreaks(item.Price, schedule, overrides[strings.ToLower(item.Code)])
		if item.PriceBreaks == nil {
			item.PriceBreaks = []PriceBreak{}
		}
	}
	return nil
}

// loadPriceOverrides fetches per-product break overrides for the page.
func (s *Service) loadPriceOverrides(ctx context.Context, items []*ListItem) (map[string][]BreakRange, error) {
	codes := make([]string, len(items))
	for i, item := range items {
		codes[i] = strings.ToLower(item.Code)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT LOWER(style_code), min_qty, COALESCE(max_qty, 0), discount_percent
		 FROM product_price_overrides WHERE LOWER(style_code) = ANY($1)`, codes)
	if err != nil {
		return nil, fmt.Errorf("price override query: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]BreakRange)
	for rows.Next() {
		var code string
		var r BreakRange
		if err := rows.Scan(&code, &r.Min, &r.Max, &r.Discount); err != nil {
			return nil, fmt.Errorf("price override scan: %w", err)
		}
		out[code] = append(out[code], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("price override rows: %w", err)
	}
	return out, nil
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
