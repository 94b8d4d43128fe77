package models

import (
	"sort"
	"strings"
	"time"
)

// BenchmarkSymbol is appended to every fetch and used for beta estimation.
// It is never part of the investable universe.
const BenchmarkSymbol = "^GSPC"

// PricePoint is one daily close. Date carries no timezone component (UTC midnight).
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is ordered by date ascending with no duplicate dates.
type PriceSeries []PricePoint

// PriceData maps an uppercase ticker to its history.
type PriceData map[string]PriceSeries

func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Close
	}
	return out
}

func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, p := range s {
		out[i] = p.Date
	}
	return out
}

// Normalize sorts by date, strips the time of day and drops duplicate dates
// (the last observation for a date wins).
func (s PriceSeries) Normalize() PriceSeries {
	if len(s) == 0 {
		return s
	}
	out := make(PriceSeries, 0, len(s))
	for _, p := range s {
		out = append(out, PricePoint{Date: DateOnly(p.Date), Close: p.Close})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, p := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(p.Date) {
			dedup[n-1] = p
			continue
		}
		dedup = append(dedup, p)
	}
	return dedup
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is the window of history to fetch: Start inclusive, End exclusive.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) String() string {
	return r.Start.Format(time.DateOnly) + ".." + r.End.Format(time.DateOnly)
}

// NormalizeSymbols uppercases, trims, de-duplicates and sorts tickers.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
