package bloom_test

import (
	"fmt"
	"testing"

	"github.com/fwojciec/docharvest/bloom"
	"github.com/stretchr/testify/assert"
)

func TestFilter_AddAndTest(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.Test("https://example.com/page1"))

	f.Add("https://example.com/page1")

	assert.True(t, f.Test("https://example.com/page1"))
	assert.False(t, f.Test("https://example.com/page2"))
}

func TestFilter_Seen(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.Seen("https://example.com/docs"), "first visit")
	assert.True(t, f.Seen("https://example.com/docs"), "second visit")
	assert.True(t, f.Test("https://example.com/docs"))
}

func TestFilter_EstimatedCount(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)
	assert.Equal(t, uint(0), f.EstimatedCount())

	f.Add("https://example.com/page1")
	f.Add("https://example.com/page2")
	f.Add("https://example.com/page3")
	f.Add("https://example.com/page3")

	count := f.EstimatedCount()
	assert.True(t, count >= 2 && count <= 4, "expected count near 3, got %d", count)
}

func TestFilter_Saturated(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(10, 0.01)
	assert.False(t, f.Saturated())

	for i := range 30 {
		f.Add(fmt.Sprintf("https://example.com/%d", i))
	}

	assert.True(t, f.Saturated())
}

func TestFilter_Reset(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(100, 0.01)
	f.Add("https://example.com/a")

	f.Reset()

	assert.False(t, f.Test("https://example.com/a"))
	assert.Equal(t, uint(0), f.EstimatedCount())
}

func TestFilter_FalsePositiveRate(t *testing.T) {
	t.Parallel()

	const (
		numItems   = 10000
		fpRate     = 0.01
		testProbes = 10000
	)

	f := bloom.NewFilter(numItems, fpRate)
	for i := range numItems {
		f.Add(fmt.Sprintf("https://example.com/added/%d", i))
	}

	falsePositives := 0
	for i := range testProbes {
		if f.Test(fmt.Sprintf("https://example.com/notadded/%d", i)) {
			falsePositives++
		}
	}

	// Allow twice the target rate for statistical variance.
	actualRate := float64(falsePositives) / float64(testProbes)
	assert.Less(t, actualRate, 0.02, "false positive rate %f exceeds 2%%", actualRate)
}
