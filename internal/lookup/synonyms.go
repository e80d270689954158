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

// Synonym maps a user term to its canonical form and classification.
type Synonym struct {
	Canonical string
	Type      string // product_type, colour, attribute, gender
}

// ResolvedToken is one input token after synonym resolution. Unknown
// tokens pass through with Type "unknown" and Canonical = the token.
type ResolvedToken struct {
	Text      string
	Canonical string
	Type      string
}

type synonymSnapshot struct {
	terms    map[string]Synonym
	loadedAt time.Time
}

// SynonymResolver serves term → canonical lookups from a DB-backed
// snapshot, falling back to a compiled-in dictionary when the table
// cannot be read at first load.
type SynonymResolver struct {
	pool    *pgxpool.Pool
	ttl     time.Duration
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	current atomic.Pointer[synonymSnapshot]
}

// NewSynonymResolver creates a resolver; call Warm before serving.
func NewSynonymResolver(pool *pgxpool.Pool, ttl, timeout time.Duration, log zerolog.Logger) *SynonymResolver {
	return &SynonymResolver{pool: pool, ttl: ttl, timeout: timeout, log: log}
}

// Warm performs the first load. A DB failure here installs the fallback
// dictionary instead of failing startup: search quality degrades, but
// search still works.
func (r *SynonymResolver) Warm(ctx context.Context) {
	snap, err := r.load(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("synonym load failed, installing fallback dictionary")
		snap = &synonymSnapshot{terms: fallbackSynonyms(), loadedAt: time.Now()}
	}
	r.current.Store(snap)
}

// Resolve returns the canonical form and type for a term.
func (r *SynonymResolver) Resolve(ctx context.Context, term string) (Synonym, bool) {
	snap := r.snapshot(ctx)
	syn, ok := snap.terms[strings.TrimSpace(strings.ToLower(term))]
	return syn, ok
}

// ResolveTokens resolves a token stream, greedily consuming two-token
// phrases before single tokens so "long sleeve" never splits.
func (r *SynonymResolver) ResolveTokens(ctx context.Context, tokens []string) []ResolvedToken {
	snap := r.snapshot(ctx)

	out := make([]ResolvedToken, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := strings.TrimSpace(strings.ToLower(tokens[i]))
		if tok == "" {
			continue
		}

		if i+1 < len(tokens) {
			next := strings.TrimSpace(strings.ToLower(tokens[i+1]))
			phrase := tok + " " + next
			if syn, ok := snap.terms[phrase]; ok {
				out = append(out, ResolvedToken{Text: phrase, Canonical: syn.Canonical, Type: syn.Type})
				i++
				continue
			}
		}

		if syn, ok := snap.terms[tok]; ok {
			out = append(out, ResolvedToken{Text: tok, Canonical: syn.Canonical, Type: syn.Type})
			continue
		}
		out = append(out, ResolvedToken{Text: tok, Canonical: tok, Type: "unknown"})
	}
	return out
}

// Invalidate drops the snapshot so the next read reloads.
func (r *SynonymResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap := r.current.Load(); snap != nil {
		r.current.Store(&synonymSnapshot{terms: snap.terms})
	}
}

func (r *SynonymResolver) snapshot(ctx context.Context) *synonymSnapshot {
	snap := r.current.Load()
	if snap != nil && time.Since(snap.loadedAt) < r.ttl {
		return snap
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap = r.current.Load()
	if snap != nil && time.Since(snap.loadedAt) < r.ttl {
		return snap
	}

	fresh, err := r.load(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("synonym refresh failed, keeping previous snapshot")
		if snap == nil {
			fresh = &synonymSnapshot{terms: fallbackSynonyms(), loadedAt: time.Now()}
			r.current.Store(fresh)
			return fresh
		}
		return snap
	}
	r.current.Store(fresh)
	return fresh
}

func (r *SynonymResolver) load(ctx context.Context) (*synonymSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT term, canonical, synonym_type FROM synonyms`)
	if err != nil {
		return nil, fmt.Errorf("synonym query: %w", err)
	}
	defer rows.Close()

	terms := make(map[string]Synonym)
	for rows.Next() {
		var term, canonical, synType string
		if err := rows.Scan(&term, &canonical, &synType); err != nil {
			return nil, fmt.Errorf("synonym scan: %w", err)
		}
		terms[strings.TrimSpace(strings.ToLower(term))] = Synonym{
			Canonical: strings.TrimSpace(strings.ToLower(canonical)),
			Type:      synType,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("synonym rows: %w", err)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("synonym table empty")
	}

	return &synonymSnapshot{terms: terms, loadedAt: time.Now()}, nil
}

// NewStaticSynonyms builds a resolver over a fixed dictionary with no
// database behind it. Used by tests.
func NewStaticSynonyms(terms map[string]Synonym) *SynonymResolver {
	r := &SynonymResolver{ttl: time.Hour, log: zerolog.Nop()}
	merged := fallbackSynonyms()
	for k, v := range terms {
		merged[strings.ToLower(k)] = v
	}
	r.current.Store(&synonymSnapshot{terms: merged, loadedAt: time.Now()})
	return r
}

// fallbackSynonyms is the compiled-in dictionary used when the synonym
// table is unreachable. It covers the high-traffic shorthands only.
func fallbackSynonyms() map[string]Synonym {
	return map[string]Synonym{
		"tee":         {Canonical: "t-shirts", Type: "product_type"},
		"tees":        {Canonical: "t-shirts", Type: "product_type"},
		"tshirt":      {Canonical: "t-shirts", Type: "product_type"},
		"tshirts":     {Canonical: "t-shirts", Type: "product_type"},
		"t-shirt":     {Canonical: "t-shirts", Type: "product_type"},
		"t shirt":     {Canonical: "t-shirts", Type: "product_type"},
		"polo":        {Canonical: "polos", Type: "product_type"},
		"polo shirt":  {Canonical: "polos", Type: "product_type"},
		"polo shirts": {Canonical: "polos", Type: "product_type"},
		"hoody":       {Canonical: "hoodies", Type: "product_type"},
		"hoodie":      {Canonical: "hoodies", Type: "product_type"},
		"jumper":      {Canonical: "sweatshirts", Type: "product_type"},
		"jumpers":     {Canonical: "sweatshirts", Type: "product_type"},
		"sweatshirt":  {Canonical: "sweatshirts", Type: "product_type"},
		"vest":        {Canonical: "vests", Type: "product_type"},
		"cap":         {Canonical: "caps", Type: "product_type"},
		"beanie":      {Canonical: "beanies", Type: "product_type"},

		"gray":     {Canonical: "grey", Type: "colour"},
		"maroon":   {Canonical: "burgundy", Type: "colour"},
		"navy":     {Canonical: "navy", Type: "colour"},
		"charcoal": {Canonical: "charcoal", Type: "colour"},

		"longsleeve":  {Canonical: "long-sleeve", Type: "attribute"},
		"long sleeve": {Canonical: "long-sleeve", Type: "attribute"},
		"shortsleeve": {Canonical: "short-sleeve", Type: "attribute"},
		"vneck":       {Canonical: "v-neck", Type: "attribute"},
		"v neck":      {Canonical: "v-neck", Type: "attribute"},
		"crewneck":    {Canonical: "crew-neck", Type: "attribute"},
		"crew neck":   {Canonical: "crew-neck", Type: "attribute"},
		"hiviz":       {Canonical: "hi-vis", Type: "attribute"},
		"hi viz":      {Canonical: "hi-vis", Type: "attribute"},
		"hi vis":      {Canonical: "hi-vis", Type: "attribute"},

		"ladies": {Canonical: "womens", Type: "gender"},
		"women":  {Canonical: "womens", Type: "gender"},
		"womans": {Canonical: "womens", Type: "gender"},
		"men":    {Canonical: "mens", Type: "gender"},
		"man":    {Canonical: "mens", Type: "gender"},
		"unisex": {Canonical: "unisex", Type: "gender"},
		"kids":   {Canonical: "kids", Type: "gender"},
		"child":  {Canonical: "kids", Type: "gender"},
	}
}
