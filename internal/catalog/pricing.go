package catalog

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PriceBreak is one quantity range with its per-unit price. Max 0 means
// the range is open-ended.
type PriceBreak struct {
	Min        int     `json:"min"`
	Max        int     `json:"max"`
	Price      float64 `json:"price"`
	Percentage float64 `json:"percentage"`
}

// BreakRange is a schedule entry: a quantity range and its discount
// percentage. Max 0 means open-ended.
type BreakRange struct {
	Min      int
	Max      int
	Discount float64
}

// fallbackSchedule is compiled in so pricing stays available when the
// schedule table cannot be read.
var fallbackSchedule = []BreakRange{
	{Min: 1, Max: 9, Discount: 0},
	{Min: 10, Max: 24, Discount: 8},
	{Min: 25, Max: 49, Discount: 10},
	{Min: 50, Max: 99, Discount: 15},
	{Min: 100, Max: 249, Discount: 25},
	{Min: 250, Max: 0, Discount: 30},
}

// FallbackSchedule returns a copy of the compiled-in schedule.
func FallbackSchedule() []BreakRange {
	out := make([]BreakRange, len(fallbackSchedule))
	copy(out, fallbackSchedule)
	return out
}

// Round2 rounds to two decimal places, the display precision of every
// price in the catalog.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BuildBreaks renders the schedule against a quantity-1 price,
// overlaying any per-product override whose (min,max) key matches a
// schedule range. The first range always carries the undiscounted
// price, so breaks[0].price equals the sell price.
func BuildBreaks(sellPrice float64, schedule, overrides []BreakRange) []PriceBreak {
	if sellPrice <= 0 || len(schedule) == 0 {
		return nil
	}

	overlay := make(map[[2]int]float64, len(overrides))
	for _, ov := range overrides {
		overlay[[2]int{ov.Min, ov.Max}] = ov.Discount
	}

	breaks := make([]PriceBreak, 0, len(schedule))
	for _, r := range schedule {
		discount := r.Discount
		if ov, ok := overlay[[2]int{r.Min, r.Max}]; ok {
			discount = ov
		}
		breaks = append(breaks, PriceBreak{
			Min:        r.Min,
			Max:        r.Max,
			Price:      Round2(sellPrice * (1 - discount/100)),
			Percentage: discount,
		})
	}
	return breaks
}

// Markup describes how a product's sell price relates to its cost.
type Markup struct {
	Percent float64
	Source  string // "override" or "global"
}

// SelectMarkup picks the markup tier for a product: the per-product
// override when one exists, otherwise the tier implied by the observed
// sell/base ratio.
func SelectMarkup(sellPrice, basePrice float64, override *float64) Markup {
	if override != nil {
		return Markup{Percent: *override, Source: "override"}
	}
	if basePrice <= 0 {
		return Markup{Source: "global"}
	}
	return Markup{Percent: Round2((sellPrice/basePrice - 1) * 100), Source: "global"}
}

// ApplyMarkup computes the sell price from a base price and a markup
// percentage.
func ApplyMarkup(basePrice, percent float64) float64 {
	return Round2(basePrice * (1 + percent/100))
}

type scheduleSnapshot struct {
	ranges   []BreakRange
	loadedAt time.Time
}

// ScheduleStore serves the global quantity-break schedule from the
// store with the compiled-in fallback, memoized with a refresh TTL.
type ScheduleStore struct {
	pool    *pgxpool.Pool
	ttl     time.Duration
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	current atomic.Pointer[scheduleSnapshot]
}

// NewScheduleStore creates the schedule cache.
func NewScheduleStore(pool *pgxpool.Pool, ttl, timeout time.Duration, log zerolog.Logger) *ScheduleStore {
	return &ScheduleStore{pool: pool, ttl: ttl, timeout: timeout, log: log}
}

// Current returns the live schedule, refreshing when stale. Any load
// failure falls back to the last good snapshot, then to the compiled-in
// schedule.
func (s *ScheduleStore) Current(ctx context.Context) []BreakRange {
	snap := s.current.Load()
	if snap != nil && time.Since(snap.loadedAt) < s.ttl {
		return snap.ranges
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap = s.current.Load()
	if snap != nil && time.Since(snap.loadedAt) < s.ttl {
		return snap.ranges
	}

	fresh, err := s.load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("price schedule refresh failed")
		if snap != nil {
			return snap.ranges
		}
		return FallbackSchedule()
	}
	s.current.Store(fresh)
	return fresh.ranges
}

// Invalidate drops the memoized snapshot.
func (s *ScheduleStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap := s.current.Load(); snap != nil {
		s.current.Store(&scheduleSnapshot{ranges: snap.ranges})
	}
}

func (s *ScheduleStore) load(ctx context.Context) (*scheduleSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT min_qty, COALESCE(max_qty, 0), discount_percent FROM price_break_schedule ORDER BY min_qty`)
	if err != nil {
		return nil, fmt.Errorf("schedule query: %w", err)
	}
	defer rows.Close()

	var ranges []BreakRange
	for rows.Next() {
		var r BreakRange
		if err := rows.Scan(&r.Min, &r.Max, &r.Discount); err != nil {
			return nil, fmt.Errorf("schedule scan: %w", err)
		}
		ranges = append(ranges, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule rows: %w", err)
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("schedule table empty")
	}

	return &scheduleSnapshot{ranges: ranges, loadedAt: time.Now()}, nil
}
