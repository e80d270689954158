package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/threadmark/catalog-api/internal/config"
)

// QueryPredicate is the SQL rendering of a search query: one OR-joined
// condition, a relevance expression referencing the same placeholders,
// and the parameters both share. NextIndex is the first placeholder
// number a later builder may use.
type QueryPredicate struct {
	Condition       string
	RelevanceSelect string
	RelevanceOrder  string
	Params          []any
	NextIndex       int
}

// HasQuery reports whether a predicate was actually built.
func (qp QueryPredicate) HasQuery() bool { return qp.Condition != "" }

// BuildQueryPredicate renders a trimmed query and its parsed intent
// into SQL fragments against the search projection.
//
// Short queries (<= 2 chars) only make sense as code lookups; anything
// longer gets the full hybrid treatment: lexical vector match, exact
// and prefix code match, flexible name regex, and slug-array overlaps.
func BuildQueryPredicate(query string, intent Intent, w config.ScoreWeights, startIndex int) QueryPredicate {
	query = strings.TrimSpace(query)
	if query == "" {
		return QueryPredicate{NextIndex: startIndex}
	}

	if len(query) <= 2 {
		return buildShortQuery(query, startIndex)
	}
	return buildNormalQuery(query, intent, w, startIndex)
}

func buildShortQuery(query string, startIndex int) QueryPredicate {
	idx := startIndex
	exact := idx
	idx++
	prefix := idx
	idx++

	cond := fmt.Sprintf("(LOWER(p.style_code) = $%d OR LOWER(p.style_code) LIKE $%d)", exact, prefix)
	relevance := fmt.Sprintf(
		"(CASE WHEN LOWER(p.style_code) = $%d THEN 100 WHEN LOWER(p.style_code) LIKE $%d THEN 50 ELSE 0 END)",
		exact, prefix)

	lowered := strings.ToLower(query)
	return QueryPredicate{
		Condition:       cond,
		RelevanceSelect: relevance,
		RelevanceOrder:  "relevance_score DESC",
		Params:          []any{lowered, lowered + "%"},
		NextIndex:       idx,
	}
}

func buildNormalQuery(query string, intent Intent, w config.ScoreWeights, startIndex int) QueryPredicate {
	idx := startIndex
	var conds []string
	var scores []string
	var params []any

	bind := func(v any) int {
		params = append(params, v)
		n := idx
		idx++
		return n
	}

	// (a) lexical full-text match on the projection's search vector
	ft := bind(query)
	conds = append(conds, fmt.Sprintf("p.search_vector @@ plainto_tsquery('english', $%d)", ft))
	scores = append(scores, fmt.Sprintf("CASE WHEN p.search_vector @@ plainto_tsquery('english', $%d) THEN %d ELSE 0 END", ft, w.FullText))

	// (b) exact style code, (c) code prefix. A code token detected
	// inside a longer query ("red AD002") matches on its own.
	lowered := strings.ToLower(query)
	if intent.StyleCode != "" {
		lowered = strings.ToLower(intent.StyleCode)
	}
	exact := bind(lowered)
	conds = append(conds, fmt.Sprintf("LOWER(p.style_code) = $%d", exact))
	scores = append(scores, fmt.Sprintf("CASE WHEN LOWER(p.style_code) = $%d THEN %d ELSE 0 END", exact, w.ExactCode))

	prefix := bind(lowered + "%")
	conds = append(conds, fmt.Sprintf("LOWER(p.style_code) LIKE $%d", prefix))
	scores = append(scores, fmt.Sprintf("CASE WHEN LOWER(p.style_code) LIKE $%d THEN %d ELSE 0 END", prefix, w.PrefixCode))

	// (d) flexible name regex: hyphen/space interchangeable, optional
	// plural, all tokens required in order
	if re := NameRegex(query); re != "" {
		nameRe := bind(re)
		conds = append(conds, fmt.Sprintf("p.style_name ~* $%d", nameRe))
		scores = append(scores, fmt.Sprintf("CASE WHEN p.style_name ~* $%d THEN %d ELSE 0 END", nameRe, w.NameRegex))
	}

	// (e) slug-array overlaps from the parsed intent
	overlaps := []struct {
		column string
		terms  []string
		weight int
	}{
		{"p.colour_slugs", intent.Colours, w.Colour},
		{"p.fabric_slugs", intent.Fabrics, w.Fabric},
		{"p.neckline_slugs", intent.Necklines, w.Neckline},
		{"p.sleeve_slugs", intent.Sleeves, w.Sleeve},
		{"p.style_keyword_slugs", keywordTerms(intent), w.Keyword},
	}
	for _, ov := range overlaps {
		if len(ov.terms) == 0 {
			continue
		}
		slugs := ExpandSlugVariants(ov.terms)
		n := bind(slugs)
		conds = append(conds, fmt.Sprintf("%s && $%d", ov.column, n))
		scores = append(scores, fmt.Sprintf("CASE WHEN %s && $%d THEN %d ELSE 0 END", ov.column, n, ov.weight))
	}

	return QueryPredicate{
		Condition:       "(" + strings.Join(conds, " OR ") + ")",
		RelevanceSelect: "(" + strings.Join(scores, " + ") + ")",
		RelevanceOrder:  "relevance_score DESC",
		Params:          params,
		NextIndex:       idx,
	}
}

// keywordTerms collects the intent dimensions that live in the
// style_keyword_slugs column: fits, features, and residual free text.
func keywordTerms(intent Intent) []string {
	terms := make([]string, 0, len(intent.Fits)+len(intent.Features)+len(intent.FreeText))
	terms = append(terms, intent.Fits...)
	terms = append(terms, intent.Features...)
	terms = append(terms, intent.FreeText...)
	return terms
}

// Slugify lower-cases a term and replaces spaces with hyphens.
func Slugify(term string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(term)), " ", "-")
}

// ExpandSlugVariants slugifies each term and adds its hyphen-stripped
// twin, so "v-neck" also matches rows slugged "vneck" and vice versa.
func ExpandSlugVariants(terms []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, term := range terms {
		slug := Slugify(term)
		add(slug)
		add(strings.ReplaceAll(slug, "-", ""))
	}
	return out
}

// NameRegex builds a case-insensitive POSIX regex for matching tokens
// against style_name with hyphen/space interchangeability: "tshirt"
// matches "t-shirt", "t shirt" and "t-shirts". Tokens must appear in
// order but may be separated by arbitrary text.
func NameRegex(query string) string {
	tokens := strings.Fields(strings.ToLower(query))
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if p := flexibleToken(tok); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ".*")
}

var alnumRe = regexp.MustCompile(`[a-z0-9]+`)

func flexibleToken(tok string) string {
	// Collapse the token to its alphanumeric core, then allow an
	// optional hyphen or space between every character pair.
	core := strings.Join(alnumRe.FindAllString(tok, -1), "")
	if core == "" {
		return ""
	}
	core = strings.TrimSuffix(core, "s")
	if core == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range core {
		if i > 0 {
			b.WriteString(`[-\s]?`)
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	b.WriteString(`s?`)
	return b.String()
}
