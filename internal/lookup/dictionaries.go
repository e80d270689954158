// Package lookup maintains in-memory snapshots of the catalog's lookup
// vocabulary: known brand, product-type and attribute names, plus the
// synonym table. Snapshots are replaced atomically so request handlers
// never observe a partial refresh.
package lookup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Dimension identifies one dictionary of known terms.
type Dimension string

const (
	DimBrand       Dimension = "brand"
	DimProductType Dimension = "product_type"
	DimSport       Dimension = "sport"
	DimFit         Dimension = "fit"
	DimSleeve      Dimension = "sleeve"
	DimNeckline    Dimension = "neckline"
	DimFabric      Dimension = "fabric"
	DimSector      Dimension = "sector"
	DimColour      Dimension = "colour"
	DimFeature     Dimension = "feature"
)

// ProbeOrder is the fixed order the query parser consults dictionaries
// in. Brand and product type come before attributes so an
// attribute-named brand is not mis-typed; ties break by this order.
var ProbeOrder = []Dimension{
	DimBrand, DimProductType, DimSport, DimFit, DimSleeve,
	DimNeckline, DimFabric, DimSector, DimColour, DimFeature,
}

// Dictionaries is one immutable snapshot of every dictionary.
type Dictionaries struct {
	sets     map[Dimension]map[string]struct{}
	loadedAt time.Time
}

// Has reports whether term (already normalized by the caller or not; it
// is normalized again here) is a known value of the dimension.
func (d *Dictionaries) Has(dim Dimension, term string) bool {
	set, ok := d.sets[dim]
	if !ok {
		return false
	}
	_, ok = set[NormalizeTerm(term)]
	return ok
}

// Size returns the number of terms loaded for a dimension.
func (d *Dictionaries) Size(dim Dimension) int {
	return len(d.sets[dim])
}

var trademarkReplacer = strings.NewReplacer("®", "", "™", "", "©", "")

// NormalizeTerm case-folds a term and strips trademark glyphs so user
// tokens match stored names.
func NormalizeTerm(term string) string {
	return strings.TrimSpace(strings.ToLower(trademarkReplacer.Replace(term)))
}

// DictionaryStore loads and refreshes dictionary snapshots from the
// relational store. Single-writer refresh, atomic publish.
type DictionaryStore struct {
	pool    *pgxpool.Pool
	ttl     time.Duration
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	current atomic.Pointer[Dictionaries]
}

// NewDictionaryStore creates a store; Warm must be called before serving.
func NewDictionaryStore(pool *pgxpool.Pool, ttl, timeout time.Duration, log zerolog.Logger) *DictionaryStore {
	return &DictionaryStore{pool: pool, ttl: ttl, timeout: timeout, log: log}
}

// Warm performs the first load. Empty dictionaries at startup are fatal:
// a parser with no vocabulary would silently classify nothing.
func (s *DictionaryStore) Warm(ctx context.Context) error {
	snap, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("dictionary warm-up: %w", err)
	}
	total := 0
	for _, set := range snap.sets {
		total += len(set)
	}
	if total == 0 {
		return fmt.Errorf("dictionary warm-up: all lookup tables empty")
	}
	s.current.Store(snap)
	return nil
}

// Current returns the live snapshot, refreshing it when stale. A failed
// refresh keeps the previous snapshot and only logs.
func (s *DictionaryStore) Current(ctx context.Context) *Dictionaries {
	snap := s.current.Load()
	if snap != nil && time.Since(snap.loadedAt) < s.ttl {
		return snap
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have refreshed while we waited.
	snap = s.current.Load()
	if snap != nil && time.Since(snap.loadedAt) < s.ttl {
		return snap
	}

	fresh, err := s.load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("dictionary refresh failed, keeping previous snapshot")
		return snap
	}
	s.current.Store(fresh)
	return fresh
}

// Invalidate drops the snapshot so the next read reloads.
func (s *DictionaryStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap := s.current.Load(); snap != nil {
		expired := &Dictionaries{sets: snap.sets}
		s.current.Store(expired)
	}
}

// load reads every dictionary in one UNION ALL round trip. Sports come
// from related_sports plus the sport-typed style keywords; colours from
// the distinct colour names already present in the projection.
func (s *DictionaryStore) load(ctx context.Context) (*Dictionaries, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
SELECT 'brand' AS dim, name FROM brands
UNION ALL SELECT 'product_type', name FROM product_types
UNION ALL SELECT 'fabric', name FROM fabrics
UNION ALL SELECT 'sector', name FROM related_sectors
UNION ALL SELECT 'sport', name FROM related_sports
UNION ALL SELECT 'sport', name FROM style_keywords WHERE keyword_type = 'sport'
UNION ALL SELECT 'fit', name FROM style_keywords WHERE keyword_type = 'fit'
UNION ALL SELECT 'sleeve', name FROM style_keywords WHERE keyword_type = 'sleeve'
UNION ALL SELECT 'neckline', name FROM style_keywords WHERE keyword_type = 'neckline'
UNION ALL SELECT 'feature', name FROM style_keywords WHERE keyword_type = 'feature'
UNION ALL SELECT DISTINCT 'colour', primary_colour FROM product_search_projection WHERE primary_colour IS NOT NULL
UNION ALL SELECT DISTINCT 'colour', colour_name FROM product_search_projection WHERE colour_name IS NOT NULL`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dictionary query: %w", err)
	}
	defer rows.Close()

	sets := make(map[Dimension]map[string]struct{})
	for _, dim := range ProbeOrder {
		sets[dim] = make(map[string]struct{})
	}

	for rows.Next() {
		var dim, name string
		if err := rows.Scan(&dim, &name); err != nil {
			return nil, fmt.Errorf("dictionary scan: %w", err)
		}
		norm := NormalizeTerm(name)
		if norm == "" {
			continue
		}
		set, ok := sets[Dimension(dim)]
		if !ok {
			continue
		}
		set[norm] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dictionary rows: %w", err)
	}

	return &Dictionaries{sets: sets, loadedAt: time.Now()}, nil
}

// NewStaticDictionaries builds a snapshot from literal term sets. Used
// by tests and anywhere a fixed vocabulary is enough.
func NewStaticDictionaries(terms map[Dimension][]string) *Dictionaries {
	sets := make(map[Dimension]map[string]struct{})
	for _, dim := range ProbeOrder {
		sets[dim] = make(map[string]struct{})
	}
	for dim, list := range terms {
		set, ok := sets[dim]
		if !ok {
			set = make(map[string]struct{})
			sets[dim] = set
		}
		for _, t := range list {
			set[NormalizeTerm(t)] = struct{}{}
		}
	}
	return &Dictionaries{sets: sets, loadedAt: time.Now()}
}
