package models

import (
	"math"
	"sort"
	"strings"
)

// WeightEpsilon is the tolerance under which a weight sum counts as zero,
// and within which a sum counts as already normalized.
const WeightEpsilon = 1e-6

// Allocation maps a ticker to its portfolio weight. Weights need not sum to 1.
type Allocation map[string]float64

func (a Allocation) Sum() float64 {
	var s float64
	for _, sym := range a.Symbols() {
		s += a[sym]
	}
	return s
}

// Symbols returns the tickers in sorted order.
func (a Allocation) Symbols() []string {
	out := make([]string, 0, len(a))
	for sym := range a {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Upper returns a copy with uppercased, trimmed keys. Weights of keys that
// collide after normalization are summed.
func (a Allocation) Upper() Allocation {
	out := make(Allocation, len(a))
	for _, sym := range a.Symbols() {
		out[strings.ToUpper(strings.TrimSpace(sym))] += a[sym]
	}
	return out
}

// Restrict keeps only the symbols accepted by keep.
func (a Allocation) Restrict(keep func(symbol string) bool) Allocation {
	out := make(Allocation, len(a))
	for sym, w := range a {
		if keep(sym) {
			out[sym] = w
		}
	}
	return out
}

// Normalized rescales the weights to sum to 1. It reports false when the sum
// is within WeightEpsilon of zero; an allocation already summing to 1 within
// WeightEpsilon is returned unchanged.
func (a Allocation) Normalized() (Allocation, bool) {
	sum := a.Sum()
	if math.Abs(sum) < WeightEpsilon {
		return nil, false
	}
	out := make(Allocation, len(a))
	if math.Abs(sum-1) <= WeightEpsilon {
		for sym, w := range a {
			out[sym] = w
		}
		return out, true
	}
	for sym, w := range a {
		out[sym] = w / sum
	}
	return out, true
}
