package catalog

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBreaksFallbackSchedule(t *testing.T) {
	breaks := BuildBreaks(10.0, FallbackSchedule(), nil)

	require.Len(t, breaks, 6)

	assert.Equal(t, PriceBreak{Min: 1, Max: 9, Price: 10.0, Percentage: 0}, breaks[0])
	assert.Equal(t, PriceBreak{Min: 10, Max: 24, Price: 9.2, Percentage: 8}, breaks[1])
	assert.Equal(t, PriceBreak{Min: 25, Max: 49, Price: 9.0, Percentage: 10}, breaks[2])
	assert.Equal(t, PriceBreak{Min: 50, Max: 99, Price: 8.5, Percentage: 15}, breaks[3])
	assert.Equal(t, PriceBreak{Min: 100, Max: 249, Price: 7.5, Percentage: 25}, breaks[4])
	assert.Equal(t, PriceBreak{Min: 250, Max: 0, Price: 7.0, Percentage: 30}, breaks[5])
}

func TestBuildBreaksFirstRangeCarriesSellPrice(t *testing.T) {
	breaks := BuildBreaks(13.37, FallbackSchedule(), nil)

	require.NotEmpty(t, breaks)
	assert.Equal(t, 13.37, breaks[0].Price)
}

func TestBuildBreaksMonotonicNonIncreasing(t *testing.T) {
	breaks := BuildBreaks(24.99, FallbackSchedule(), nil)

	for i := 1; i < len(breaks); i++ {
		assert.LessOrEqual(t, breaks[i].Price, breaks[i-1].Price,
			"price must not rise with quantity")
	}
}

func TestBuildBreaksOverrideOverlay(t *testing.T) {
	overrides := []BreakRange{
		{Min: 10, Max: 24, Discount: 12},
		{Min: 999, Max: 1999, Discount: 50}, // no matching range, ignored
	}
	breaks := BuildBreaks(10.0, FallbackSchedule(), overrides)

	require.Len(t, breaks, 6)
	assert.Equal(t, 12.0, breaks[1].Percentage)
	assert.Equal(t, 8.8, breaks[1].Price)
	assert.Equal(t, 10.0, breaks[2].Percentage, "other ranges keep the schedule discount")
}

func TestBuildBreaksInvalidInput(t *testing.T) {
	assert.Nil(t, BuildBreaks(0, FallbackSchedule(), nil))
	assert.Nil(t, BuildBreaks(-5, FallbackSchedule(), nil))
	assert.Nil(t, BuildBreaks(10, nil, nil))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 9.2, Round2(9.200000000000001))
	assert.Equal(t, 1.01, Round2(1.005000001))
	assert.Equal(t, 0.0, Round2(0))
}

func TestSelectMarkupOverrideWins(t *testing.T) {
	override := 42.5
	m := SelectMarkup(10.0, 8.0, &override)

	assert.Equal(t, 42.5, m.Percent)
	assert.Equal(t, "override", m.Source)
}

func TestSelectMarkupDerived(t *testing.T) {
	m := SelectMarkup(12.0, 8.0, nil)

	assert.Equal(t, 50.0, m.Percent)
	assert.Equal(t, "global", m.Source)
}

func TestSelectMarkupZeroBase(t *testing.T) {
	m := SelectMarkup(12.0, 0, nil)

	assert.Equal(t, 0.0, m.Percent)
	assert.Equal(t, "global", m.Source)
}

func TestApplyMarkupRoundTrip(t *testing.T) {
	base := 8.40
	sell := ApplyMarkup(base, 25)

	assert.Equal(t, 10.5, sell)

	m := SelectMarkup(sell, base, nil)
	assert.Equal(t, 25.0, m.Percent)
}

func TestScheduleStoreInvalidateDropsSnapshot(t *testing.T) {
	s := NewScheduleStore(nil, time.Hour, time.Second, zerolog.Nop())
	s.current.Store(&scheduleSnapshot{ranges: FallbackSchedule(), loadedAt: time.Now()})

	s.Invalidate()

	snap := s.current.Load()
	require.NotNil(t, snap)
	assert.True(t, snap.loadedAt.IsZero(), "snapshot reloads on the next read")
	assert.NotEmpty(t, snap.ranges, "last good ranges remain until then")
}
