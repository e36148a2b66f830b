package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ref = time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

func TestParse_CompactDurations(t *testing.T) {
	p := New()
	cases := map[string]time.Duration{
		"3h":      3 * time.Hour,
		"90m":     90 * time.Minute,
		"2d":      48 * time.Hour,
		"1w2d":    9 * 24 * time.Hour,
		" 1h 30m": 90 * time.Minute,
	}
	for in, want := range cases {
		got, ok := p.Parse(in, ref)
		require.True(t, ok, in)
		assert.Equal(t, ref.Add(want), got, in)
	}
}

func TestParse_RussianAmounts(t *testing.T) {
	p := New()
	evening := time.Date(2024, time.March, 4, 20, 0, 0, 0, time.UTC)
	cases := map[string]time.Duration{
		"2 дня":           2 * day,
		"3 дня":           3 * day,
		"4 дня":           4 * day,
		"5 дней":          5 * day,
		"1 день":          day,
		"5 часов":         5 * time.Hour,
		"1 час":           time.Hour,
		"1 неделя":        7 * day,
		"2 недели":        14 * day,
		"30 минут":        30 * time.Minute,
		"45 секунд":       45 * time.Second,
		"1 месяц":         30 * day,
		"через 2 дня":     2 * day,
		"на 3 дня":        3 * day,
		"1 час 30 минут":  90 * time.Minute,
		"1 час и 30 мин":  90 * time.Minute,
		"2 days":          2 * day,
		"3 weeks":         21 * day,
		"1 hour, 15 mins": 75 * time.Minute,
	}
	for _, at := range []time.Time{ref, evening} {
		for in, want := range cases {
			got, ok := p.Parse(in, at)
			require.True(t, ok, in)
			assert.Equal(t, at.Add(want), got, "%q at %s", in, at.Format("15:04"))
		}
	}
}

func TestParse_ZeroResolvesToReference(t *testing.T) {
	p := New()
	for _, in := range []string{"0", "0m", "0 минут"} {
		got, ok := p.Parse(in, ref)
		require.True(t, ok, in)
		assert.Equal(t, ref, got, in)
	}
}

func TestParse_NaturalLanguage(t *testing.T) {
	p := New()
	got, ok := p.Parse("in 2 hours", ref)
	require.True(t, ok)
	assert.WithinDuration(t, ref.Add(2*time.Hour), got, time.Minute)
}

func TestParse_Rejects(t *testing.T) {
	p := New()
	for _, in := range []string{"", "   ", "qwerty"} {
		_, ok := p.Parse(in, ref)
		assert.False(t, ok, "%q", in)
	}
}
