// Package ratio holds the guarded arithmetic and deterministic ranking used by
// every insight layer. No function here ever returns NaN or Inf.
package ratio

import (
	"cmp"
	"math"
	"slices"
	"sort"
)

// Divide returns n/d, or 0 when d is zero or the result is not finite.
func Divide(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	r := n / d
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Percent returns n/d*100 with the same guard as Divide.
func Percent(n, d float64) float64 {
	return Divide(n, d) * 100
}

// Change is the percentage change from previous to current. A zero previous
// value yields 100 when current grew, else 0.
func Change(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return Percent(current-previous, previous)
}

type Number interface {
	~int | ~float64
}

type Entry[K cmp.Ordered, V Number] struct {
	Key   K
	Value V
}

// Sorted flattens m into entries ordered by value (descending when desc),
// ties broken by key ascending.
func Sorted[K cmp.Ordered, V Number](m map[K]V, desc bool) []Entry[K, V] {
	out := make([]Entry[K, V], 0, len(m))
	for k, v := range m {
		out = append(out, Entry[K, V]{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			if desc {
				return out[i].Value > out[j].Value
			}
			return out[i].Value < out[j].Value
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Sum adds the values of m in key order, so float totals do not depend on
// map iteration order.
func Sum[K cmp.Ordered, V Number](m map[K]V) V {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var total V
	for _, k := range keys {
		total += m[k]
	}
	return total
}

// Top returns at most n entries of m ranked as in Sorted. Zero values are
// dropped when skipZero is set.
func Top[K cmp.Ordered, V Number](m map[K]V, n int, desc, skipZero bool) []Entry[K, V] {
	all := Sorted(m, desc)
	out := make([]Entry[K, V], 0, n)
	for _, e := range all {
		if len(out) == n {
			break
		}
		if skipZero && e.Value == 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}
