// Package asof implements the time-indexed lookups used by the pipeline's
// as-of joins. Every function expects items sorted ascending by key.
package asof

import (
	"sort"
	"time"
)

// Backward returns the index of the last item whose key is at or before
// target, or -1 when every key is later.
func Backward[T any](items []T, key func(T) time.Time, target time.Time) int {
	i := sort.Search(len(items), func(i int) bool {
		return key(items[i]).After(target)
	})
	return i - 1
}

// Forward returns the index of the first item whose key is at or after
// target, or -1 when every key is earlier.
func Forward[T any](items []T, key func(T) time.Time, target time.Time) int {
	i := sort.Search(len(items), func(i int) bool {
		return !key(items[i]).Before(target)
	})
	if i == len(items) {
		return -1
	}
	return i
}

// Partition groups items by key, keeping the input order inside each group.
func Partition[T any](items []T, key func(T) string) map[string][]T {
	groups := make(map[string][]T)
	for _, it := range items {
		k := key(it)
		groups[k] = append(groups[k], it)
	}
	return groups
}
