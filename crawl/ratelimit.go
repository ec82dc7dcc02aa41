package crawl

import (
	"context"
	"sync"

	"github.com/fwojciec/docharvest"
	"golang.org/x/time/rate"
)

var _ docharvest.DomainLimiter = (*DomainLimiter)(nil)

// MinDomainRate is the floor Backoff lowers a domain's rate to.
const MinDomainRate = 0.1

// DomainLimiter paces requests per domain with token buckets of burst 1.
// A domain that answers with rate-limit errors can be slowed with Backoff.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
}

// NewDomainLimiter creates a DomainLimiter allowing rps requests per second
// to each domain.
func NewDomainLimiter(rps float64) *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
	}
}

func (d *DomainLimiter) limiter(domain string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.limiters[domain]
	if !ok {
		l = rate.NewLimiter(rate.Limit(d.rps), 1)
		d.limiters[domain] = l
	}
	return l
}

// Wait blocks until a request to domain is allowed or ctx is done.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return d.limiter(domain).Wait(ctx)
}

// Backoff halves the request rate for domain, down to MinDomainRate.
func (d *DomainLimiter) Backoff(domain string) {
	l := d.limiter(domain)
	next := l.Limit() / 2
	if next < MinDomainRate {
		next = MinDomainRate
	}
	l.SetLimit(next)
}

// Rate returns the current requests per second allowed for domain.
func (d *DomainLimiter) Rate(domain string) float64 {
	return float64(d.limiter(domain).Limit())
}
