package crawl

import (
	"container/heap"
	"strings"
	"sync"

	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/bloom"
)

var _ docharvest.URLFrontier = (*Frontier)(nil)

// Frontier is the link queue of the direct-fetch walk. Links pop highest
// priority first, then shallowest, then in push order; URLs are
// de-duplicated with a Bloom filter, ignoring fragments and trailing slashes.
// It is safe for concurrent use.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.Filter
	queue *linkHeap
	seq   uint64
}

// NewFrontier creates a Frontier sized for n expected URLs with the given
// false positive rate.
func NewFrontier(n uint, fpRate float64) *Frontier {
	return &Frontier{
		seen:  bloom.NewFilter(n, fpRate),
		queue: &linkHeap{},
	}
}

// Push queues a link. Returns false if its URL was seen before.
func (f *Frontier) Push(link docharvest.DiscoveredLink) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	link.URL = stripFragment(link.URL)
	key := dedupKey(link.URL)
	if f.seen.Seen(key) {
		return false
	}

	f.seq++
	heap.Push(f.queue, queued{link: link, seq: f.seq})
	return true
}

// Pop returns the next link, or false if the frontier is empty.
func (f *Frontier) Pop() (docharvest.DiscoveredLink, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return docharvest.DiscoveredLink{}, false
	}
	q, _ := heap.Pop(f.queue).(queued)
	return q.link, true
}

// Len returns the number of queued links.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Seen returns true if the URL has been queued, now or before.
func (f *Frontier) Seen(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Test(dedupKey(stripFragment(rawURL)))
}

func stripFragment(u string) string {
	if i := strings.IndexByte(u, '#'); i != -1 {
		return u[:i]
	}
	return u
}

func dedupKey(u string) string {
	if len(u) > 1 {
		return strings.TrimSuffix(u, "/")
	}
	return u
}

type queued struct {
	link docharvest.DiscoveredLink
	seq  uint64
}

type linkHeap []queued

func (h linkHeap) Len() int { return len(h) }

func (h linkHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.link.Priority != b.link.Priority {
		return a.link.Priority > b.link.Priority
	}
	if a.link.Depth != b.link.Depth {
		return a.link.Depth < b.link.Depth
	}
	return a.seq < b.seq
}

func (h linkHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *linkHeap) Push(x any) {
	q, _ := x.(queued)
	*h = append(*h, q)
}

func (h *linkHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
