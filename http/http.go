// Package http implements docharvest's HTTP clients: a static page fetcher,
// sitemap discovery and a managed crawl service client.
package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/docharvest"
)

// DefaultUserAgent identifies docharvest to the sites it reads.
const DefaultUserAgent = "docharvest/1.0 (+https://github.com/fwojciec/docharvest)"

// statusError converts a non-2xx response into a coded error. The body is
// drained and closed.
func statusError(resp *http.Response, target string) error {
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	code := docharvest.HTTPStatusCode(resp.StatusCode)
	if code == "" {
		code = docharvest.EEXTERNAL
	}
	msg := fmt.Sprintf("HTTP %d for %s", resp.StatusCode, target)
	if code == docharvest.ERATELIMIT {
		if after := resp.Header.Get("Retry-After"); after != "" {
			msg += " (retry after " + after + ")"
		}
	}
	return docharvest.Errorf(code, "%s", msg)
}

// redirectPolicy stops following redirects after max hops.
func redirectPolicy(max int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return docharvest.Errorf(docharvest.ENETWORK, "stopped after %d redirects", max)
		}
		return nil
	}
}

func newClient(timeout time.Duration, maxRedirects int) *http.Client {
	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: redirectPolicy(maxRedirects),
	}
}
