package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docharvest"
)

// DefaultCrawlAPIURL is the managed crawl API used when none is configured.
const DefaultCrawlAPIURL = "https://api.firecrawl.dev"

var _ docharvest.CrawlService = (*CrawlClient)(nil)

// CrawlClient talks to a Firecrawl-compatible crawl API. Job results are
// decoded as a stream, one page at a time.
type CrawlClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewCrawlClient creates a client for the API at baseURL authenticated with
// apiKey. Returns ECONFIG when apiKey is empty.
func NewCrawlClient(baseURL, apiKey string, client *http.Client) (*CrawlClient, error) {
	if apiKey == "" {
		return nil, docharvest.Errorf(docharvest.ECONFIG, "crawl API key is not set")
	}
	if baseURL == "" {
		baseURL = DefaultCrawlAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	return &CrawlClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}, nil
}

type crawlRequest struct {
	URL           string        `json:"url"`
	IncludePaths  []string      `json:"includePaths,omitempty"`
	ExcludePaths  []string      `json:"excludePaths,omitempty"`
	MaxDepth      int           `json:"maxDepth,omitempty"`
	Limit         int           `json:"limit,omitempty"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type startResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

type crawlDocument struct {
	Markdown string `json:"markdown"`
	Metadata struct {
		Title     string `json:"title"`
		SourceURL string `json:"sourceURL"`
		URL       string `json:"url"`
	} `json:"metadata"`
}

// StartCrawl submits a crawl job and returns its ID.
func (c *CrawlClient) StartCrawl(ctx context.Context, req docharvest.CrawlRequest) (string, error) {
	body, err := json.Marshal(crawlRequest{
		URL:          req.URL,
		IncludePaths: req.IncludePaths,
		ExcludePaths: req.ExcludePaths,
		MaxDepth:     req.MaxDepth,
		Limit:        req.Limit,
		ScrapeOptions: scrapeOptions{
			Formats:         []string{"markdown"},
			OnlyMainContent: true,
		},
	})
	if err != nil {
		return "", docharvest.WrapError(docharvest.EINTERNAL, err, "encode crawl request")
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/crawl", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out startResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", docharvest.WrapError(docharvest.EPARSE, err, "decode crawl start response")
	}
	if !out.Success || out.ID == "" {
		return "", docharvest.Errorf(docharvest.EEXTERNAL, "crawl not started: %s", out.Error)
	}
	return out.ID, nil
}

// PollCrawl fetches one page of job results. Documents of the "data" array
// are decoded and passed to fn one by one, so a large result page is never
// held in memory. An error from fn stops decoding and is returned.
func (c *CrawlClient) PollCrawl(ctx context.Context, jobID, next string, fn func(*docharvest.CrawlPage) error) (*docharvest.CrawlJobStatus, error) {
	target := next
	if target == "" {
		target = c.baseURL + "/v1/crawl/" + url.PathEscape(jobID)
	}

	resp, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	status, err := decodeStatus(resp.Body, func(p *docharvest.CrawlPage) error {
		if err := fn(p); err != nil {
			return &callbackError{err: err}
		}
		return nil
	})
	if err != nil {
		var cbErr *callbackError
		if errors.As(err, &cbErr) {
			return nil, cbErr.err
		}
		if code := docharvest.ErrorCode(err); code != docharvest.EUNKNOWN {
			return nil, err
		}
		return nil, docharvest.WrapError(docharvest.EPARSE, err, "decode crawl status")
	}
	return status, nil
}

// callbackError marks an error returned by the page callback of PollCrawl.
type callbackError struct {
	err error
}

func (e *callbackError) Error() string { return e.err.Error() }

func (e *callbackError) Unwrap() error { return e.err }

// decodeStatus walks the top-level object token by token, streaming the
// "data" array and decoding every other field whole.
func decodeStatus(r io.Reader, fn func(*docharvest.CrawlPage) error) (*docharvest.CrawlJobStatus, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var st docharvest.CrawlJobStatus
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)

		switch key {
		case "status":
			err = dec.Decode(&st.Status)
		case "total":
			err = dec.Decode(&st.Total)
		case "completed":
			err = dec.Decode(&st.Completed)
		case "next":
			var next *string
			if err = dec.Decode(&next); err == nil && next != nil {
				st.Next = *next
			}
		case "data":
			err = decodeDocuments(dec, fn)
		default:
			var skip json.RawMessage
			err = dec.Decode(&skip)
		}
		if err != nil {
			return nil, err
		}
	}
	return &st, nil
}

func decodeDocuments(dec *json.Decoder, fn func(*docharvest.CrawlPage) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return docharvest.Errorf(docharvest.EPARSE, "crawl data is not an array")
	}

	for dec.More() {
		var doc crawlDocument
		if err := dec.Decode(&doc); err != nil {
			return err
		}
		page := &docharvest.CrawlPage{
			URL:      doc.Metadata.SourceURL,
			Title:    doc.Metadata.Title,
			Markdown: doc.Markdown,
		}
		if page.URL == "" {
			page.URL = doc.Metadata.URL
		}
		if err := fn(page); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return docharvest.Errorf(docharvest.EPARSE, "expected %q, got %v", want, tok)
	}
	return nil
}

func (c *CrawlClient) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return nil, docharvest.Errorf(docharvest.EINVALID, "invalid crawl API URL %q: %v", target, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, docharvest.ClassifyError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp, target)
	}
	return resp, nil
}
