package http

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/docharvest"
)

// Fetcher defaults.
const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultMaxRedirects = 5
	DefaultMaxBodySize  = 10 << 20
)

var _ docharvest.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves HTML with plain HTTP GET requests. It does not execute
// JavaScript; rod.Fetcher covers sites that need it.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxRedirects int
	maxBody      int64
	headers      map[string]string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithHeaders adds headers to every request, overriding the defaults.
func WithHeaders(h map[string]string) Option {
	return func(f *Fetcher) {
		for k, v := range h {
			f.headers[k] = v
		}
	}
}

// WithMaxRedirects caps the redirects followed per request.
func WithMaxRedirects(n int) Option {
	return func(f *Fetcher) {
		f.maxRedirects = n
	}
}

// WithMaxBodySize caps the bytes read from a response body.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBody = n
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:      DefaultFetchTimeout,
		maxRedirects: DefaultMaxRedirects,
		maxBody:      DefaultMaxBodySize,
		headers: map[string]string{
			"User-Agent":      DefaultUserAgent,
			"Accept":          "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.8",
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client = newClient(f.timeout, f.maxRedirects)
	return f
}

// Fetch retrieves the HTML content at url. Transport failures and HTTP
// status codes are mapped to error codes; bodies over the size cap fail
// with EINVALID.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", docharvest.Errorf(docharvest.EINVALID, "invalid URL %q: %v", url, err)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", docharvest.ClassifyError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp, url)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" && !isHTML(ct) {
		return "", docharvest.Errorf(docharvest.EINVALID, "unsupported content type %q for %s", ct, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return "", docharvest.ClassifyError(err)
	}
	if int64(len(body)) > f.maxBody {
		return "", docharvest.Errorf(docharvest.EINVALID, "response for %s exceeds %d bytes", url, f.maxBody)
	}

	return string(body), nil
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "html") || strings.HasPrefix(ct, "text/plain")
}

// Close is a no-op; http.Client needs no cleanup.
func (f *Fetcher) Close() error {
	return nil
}
