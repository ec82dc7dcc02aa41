// Package bloom remembers which keys a crawl has already visited using a
// fixed-size Bloom filter.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter is a probabilistic set of strings. It may report a key it never
// saw as present, never the reverse.
type Filter struct {
	f *bloom.BloomFilter
	n uint
}

// NewFilter returns a Filter sized for n keys at false positive rate fpRate.
func NewFilter(n uint, fpRate float64) *Filter {
	if n == 0 {
		n = 1
	}
	return &Filter{f: bloom.NewWithEstimates(n, fpRate), n: n}
}

// Add records key.
func (f *Filter) Add(key string) {
	f.f.AddString(key)
}

// Test reports whether key may have been added.
func (f *Filter) Test(key string) bool {
	return f.f.TestString(key)
}

// Seen records key and reports whether it may have been added before.
func (f *Filter) Seen(key string) bool {
	return f.f.TestAndAddString(key)
}

// EstimatedCount returns the approximate number of distinct keys added.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}

// Saturated reports whether more keys were added than the filter was sized
// for, after which the false positive rate climbs above the target.
func (f *Filter) Saturated() bool {
	return f.EstimatedCount() > f.n
}

// Reset forgets every key.
func (f *Filter) Reset() {
	f.f.ClearAll()
}
