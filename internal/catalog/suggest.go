package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/threadmark/catalog-api/internal/cache"
	"github.com/threadmark/catalog-api/internal/search"
)

// Suggestion is one typeahead entry.
type Suggestion struct {
	Kind  string `json:"kind"` // "code", "name" or "brand"
	Value string `json:"value"`
	Code  string `json:"code,omitempty"`
}

const suggestLimit = 10

// Suggest returns typeahead completions for a partial query: code
// prefixes first, then flexible name matches, then brands.
func (s *Service) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []Suggestion{}, nil
	}

	key := cache.Key("suggest", map[string]any{"q": strings.ToLower(query)}, 0, 0)
	var cached []Suggestion
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	lowered := strings.ToLower(query)
	re := search.NameRegex(query)
	if re == "" {
		re = `^$`
	}
	args := []any{lowered + "%", suggestLimit, re}

	sql := fmt.Sprintf(`
(SELECT 'code' AS kind, style_code AS value, style_code AS code, 0 AS rank
 FROM %[1]s WHERE sku_status = 'Live' AND LOWER(style_code) LIKE $1
 GROUP BY style_code LIMIT $2)
UNION ALL
(SELECT 'name' AS kind, MIN(style_name) AS value, style_code AS code, 1 AS rank
 FROM %[1]s WHERE sku_status = 'Live' AND style_name ~* $3
 GROUP BY style_code LIMIT $2)
UNION ALL
(SELECT 'brand' AS kind, brand AS value, '' AS code, 2 AS rank
 FROM %[1]s WHERE sku_status = 'Live' AND LOWER(brand) LIKE $1
 GROUP BY brand LIMIT $2)
ORDER BY rank, value
LIMIT $2`, projectionTable)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("suggest query: %w", err)
	}
	defer rows.Close()

	out := []Suggestion{}
	for rows.Next() {
		var sg Suggestion
		var rank int
		if err := rows.Scan(&sg.Kind, &sg.Value, &sg.Code, &rank); err != nil {
			return nil, fmt.Errorf("suggest scan: %w", err)
		}
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("suggest rows: %w", err)
	}

	s.cache.SetJSON(ctx, key, out, s.cfg.ListingTTL)
	return out, nil
}
