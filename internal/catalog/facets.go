package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/threadmark/catalog-api/internal/cache"
	"github.com/threadmark/catalog-api/internal/config"
	"github.com/threadmark/catalog-api/internal/search"
)

// FacetValue is one selectable value of a facet dimension with the
// number of matching styles.
type FacetValue struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Facets maps dimension name to its value counts. Every known dimension
// is present, empty when nothing matches.
type Facets map[string][]FacetValue

// derivedName renders a display name from a slug when no lookup table
// carries one.
func derivedName(slugExpr string) string {
	return fmt.Sprintf("INITCAP(REPLACE(%s, '-', ' '))", slugExpr)
}

// scalarFacets are the single-valued projection columns surfaced as
// facets, with expressions producing the facet slug and display name.
// Lookup names the slug-keyed table carrying the stored display name;
// NameExpr is the fallback when no lookup row matches.
var scalarFacets = []struct {
	Name     string
	SlugExpr string
	NameExpr string
	Lookup   string
}{
	{"gender", "p.gender_slug", "INITCAP(REPLACE(p.gender_slug, '-', ' '))", "genders"},
	{"ageGroup", "p.age_group_slug", "INITCAP(REPLACE(p.age_group_slug, '-', ' '))", "age_groups"},
	{"tag", "p.tag_slug", "INITCAP(REPLACE(p.tag_slug, '-', ' '))", "tags"},
	{"primaryColour", "REPLACE(LOWER(p.primary_colour), ' ', '-')", "p.primary_colour", ""},
	{"colourShade", "REPLACE(LOWER(p.colour_shade), ' ', '-')", "p.colour_shade", ""},
	{"brand", "REPLACE(LOWER(p.brand), ' ', '-')", "p.brand", ""},
	{"productType", "REPLACE(LOWER(p.product_type), ' ', '-')", "p.product_type", ""},
}

// facetLookups maps array dimensions to the lookup table carrying their
// display names. Tables keyed by a slug column join on it directly;
// the rest match on the slugified name. Dimensions absent here derive
// the name from the slug.
var facetLookups = map[string]struct {
	Table       string
	KeywordType string
	BySlug      bool
}{
	"sleeve":        {Table: "style_keywords", KeywordType: "sleeve"},
	"neckline":      {Table: "style_keywords", KeywordType: "neckline"},
	"fit":           {Table: "style_keywords", KeywordType: "fit"},
	"feature":       {Table: "style_keywords", KeywordType: "feature"},
	"style":         {Table: "style_keywords", KeywordType: "style"},
	"fabric":        {Table: "fabrics"},
	"sector":        {Table: "related_sectors"},
	"sport":         {Table: "related_sports"},
	"size":          {Table: "sizes"},
	"weight":        {Table: "weight_ranges", BySlug: true},
	"effect":        {Table: "effects", BySlug: true},
	"accreditation": {Table: "accreditations", BySlug: true},
}

// facetDimensions lists every dimension the aggregator emits, used to
// guarantee stable response keys.
func facetDimensions() []string {
	dims := make([]string, 0, len(scalarFacets)+len(arrayDimensions)+1)
	for _, s := range scalarFacets {
		dims = append(dims, s.Name)
	}
	for _, a := range arrayDimensions {
		dims = append(dims, a.Name)
	}
	dims = append(dims, "flag")
	return dims
}

// FacetParams is the facet endpoint request: the active filters plus an
// optional search query the counts must respect.
type FacetParams struct {
	Filters
	Query string
}

func (p FacetParams) cacheMap() map[string]any {
	m := p.Filters.CacheMap()
	m["q"] = strings.TrimSpace(p.Query)
	return m
}

// FacetCounts computes value counts for every dimension in one
// round-trip: a base CTE of eligible styles feeding a UNION ALL with
// one branch per dimension.
func (s *Service) FacetCounts(ctx context.Context, params FacetParams) (Facets, error) {
	key := cache.Key("aggregations", params.cacheMap(), 0, 0)
	var cached Facets
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FacetTimeout)
	defer cancel()

	var intent search.Intent
	query := strings.TrimSpace(params.Query)
	if query != "" {
		intent = s.parser.Parse(ctx, query)
	}

	sql, args := buildFacetQuery(params, intent, query, s.cfg.Weights, s.cfg.FacetLimit, s.cfg.FacetSelfExclude)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("facet query: %w", err)
	}
	defer rows.Close()

	facets := make(Facets, len(facetDimensions()))
	for _, dim := range facetDimensions() {
		facets[dim] = []FacetValue{}
	}
	for rows.Next() {
		var dim string
		var fv FacetValue
		if err := rows.Scan(&dim, &fv.Slug, &fv.Name, &fv.Count); err != nil {
			return nil, fmt.Errorf("facet scan: %w", err)
		}
		facets[dim] = append(facets[dim], fv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("facet rows: %w", err)
	}

	s.cache.SetJSON(ctx, key, facets, s.cfg.FacetTTL)
	return facets, nil
}

// activeFacetDims returns the dimensions the filter set constrains,
// the ones that need their own eligible-set CTE under self-exclusion.
func activeFacetDims(f Filters) []string {
	var dims []string
	if f.Gender != "" {
		dims = append(dims, "gender")
	}
	if f.AgeGroup != "" {
		dims = append(dims, "ageGroup")
	}
	if f.Tag != "" {
		dims = append(dims, "tag")
	}
	if len(f.PrimaryColour) > 0 {
		dims = append(dims, "primaryColour")
	}
	if len(f.ColourShade) > 0 {
		dims = append(dims, "colourShade")
	}
	if f.Brand != "" {
		dims = append(dims, "brand")
	}
	if f.ProductType != "" {
		dims = append(dims, "productType")
	}
	for _, dim := range arrayDimensions {
		if len(dim.Get(f)) > 0 {
			dims = append(dims, dim.Name)
		}
	}
	if len(f.Flags) > 0 {
		dims = append(dims, "flag")
	}
	return dims
}

// buildFacetQuery assembles the single facet statement. Eligible styles
// are computed once in a CTE; with self-exclusion enabled, dimensions
// carrying an active filter get their own CTE that omits that filter so
// the user can still widen their selection.
func buildFacetQuery(params FacetParams, intent search.Intent, query string,
	weights config.ScoreWeights, limit int, selfExclude bool) (string, []any) {

	var args []any
	idx := 1

	limitRef := idx
	args = append(args, limit)
	idx++

	// The query predicate binds once; every eligible-set CTE reuses the
	// same placeholder numbers.
	qp := search.BuildQueryPredicate(query, intent, weights, idx)
	args = append(args, qp.Params...)
	idx = qp.NextIndex

	eligibleCTE := func(name, excludeDim string) string {
		set := params.Filters.Predicates(excludeDim)
		whereSQL, havingSQL, setArgs, next := set.Emit(idx)
		args = append(args, setArgs...)
		idx = next

		var b strings.Builder
		b.WriteString(name)
		b.WriteString(" AS (SELECT p.style_code FROM ")
		b.WriteString(projectionTable)
		b.WriteString(" p")
		if params.Filters.NeedsProductTypeJoin() && excludeDim != "productType" {
			b.WriteString(" LEFT JOIN product_types pt ON REPLACE(REPLACE(LOWER(pt.name), '-', ''), ' ', '') = REPLACE(REPLACE(LOWER(p.product_type), '-', ''), ' ', '')")
		}
		b.WriteString(" WHERE ")
		b.WriteString(whereSQL)
		if qp.HasQuery() {
			b.WriteString(" AND ")
			b.WriteString(qp.Condition)
		}
		b.WriteString(" GROUP BY p.style_code")
		if havingSQL != "" {
			b.WriteString(" HAVING ")
			b.WriteString(havingSQL)
		}
		b.WriteString(")")
		return b.String()
	}

	ctes := []string{eligibleCTE("base", "")}
	cteFor := map[string]string{}
	if selfExclude {
		for _, dim := range activeFacetDims(params.Filters) {
			name := "base_" + strings.ToLower(dim)
			ctes = append(ctes, eligibleCTE(name, dim))
			cteFor[dim] = name
		}
	}
	source := func(dim string) string {
		if name, ok := cteFor[dim]; ok {
			return name
		}
		return "base"
	}

	var branches []string
	for _, sf := range scalarFacets {
		lookupJoin := ""
		nameExpr := fmt.Sprintf("MIN(%s)", sf.NameExpr)
		if sf.Lookup != "" {
			lookupJoin = fmt.Sprintf("\n  LEFT JOIN %s lk ON lk.slug = %s", sf.Lookup, sf.SlugExpr)
			nameExpr = fmt.Sprintf("COALESCE(MIN(lk.name), MIN(%s))", sf.NameExpr)
		}
		branches = append(branches, fmt.Sprintf(
			`(SELECT '%s' AS dim, %s AS slug, %s AS name, COUNT(DISTINCT p.style_code) AS cnt
  FROM %s p JOIN %s e ON e.style_code = p.style_code%s
  WHERE %s IS NOT NULL AND p.sku_status = 'Live'
  GROUP BY %s ORDER BY cnt DESC, slug ASC LIMIT $%d)`,
			sf.Name, sf.SlugExpr, nameExpr, projectionTable, source(sf.Name),
			lookupJoin, sf.SlugExpr, sf.SlugExpr, limitRef))
	}

	for _, ad := range arrayDimensions {
		lookupJoin := ""
		nameExpr := derivedName("u.slug")
		if lk, ok := facetLookups[ad.Name]; ok {
			if lk.BySlug {
				lookupJoin = fmt.Sprintf("\n  LEFT JOIN %s lk ON lk.slug = u.slug", lk.Table)
			} else {
				lookupJoin = fmt.Sprintf("\n  LEFT JOIN %s lk ON REPLACE(LOWER(lk.name), ' ', '-') = u.slug", lk.Table)
			}
			if lk.KeywordType != "" {
				lookupJoin += fmt.Sprintf(" AND lk.keyword_type = '%s'", lk.KeywordType)
			}
			nameExpr = fmt.Sprintf("COALESCE(MIN(lk.name), %s)", derivedName("u.slug"))
		}

		orderBy := "cnt DESC, slug ASC"
		if ad.Name == "size" {
			// Sizes order by the garment size ranking, not popularity.
			orderBy = "MIN(lk.size_order) ASC NULLS LAST, cnt DESC"
		}

		branches = append(branches, fmt.Sprintf(
			`(SELECT '%s' AS dim, u.slug AS slug, %s AS name, COUNT(DISTINCT p.style_code) AS cnt
  FROM %s p JOIN %s e ON e.style_code = p.style_code
  CROSS JOIN LATERAL unnest(p.%s) AS u(slug)%s
  WHERE p.sku_status = 'Live'
  GROUP BY u.slug ORDER BY %s LIMIT $%d)`,
			ad.Name, nameExpr, projectionTable, source(ad.Name), ad.Column,
			lookupJoin, orderBy, limitRef))
	}

	branches = append(branches, fmt.Sprintf(
		`(SELECT 'flag' AS dim, sf.slug AS slug, MIN(sf.name) AS name, COUNT(DISTINCT p.style_code) AS cnt
  FROM %s p JOIN %s e ON e.style_code = p.style_code
  CROSS JOIN LATERAL unnest(p.flag_ids) AS fid(id)
  JOIN special_flags sf ON sf.id = fid.id
  WHERE p.sku_status = 'Live'
  GROUP BY sf.slug ORDER BY cnt DESC, slug ASC LIMIT $%d)`,
		projectionTable, source("flag"), limitRef))

	sql := "WITH " + strings.Join(ctes, ",\n") + "\n" + strings.Join(branches, "\nUNION ALL\n")
	return sql, args
}
