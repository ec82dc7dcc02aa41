package slog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/mock"
	hslog "github.com/fwojciec/docharvest/slog"
	"github.com/stretchr/testify/assert"
)

func TestLoggingScraper_Scrape(t *testing.T) {
	t.Parallel()

	src := &docharvest.Source{Name: "react", Type: docharvest.SourceWebsite, URL: "https://react.dev"}

	t.Run("logs fragment count on success", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Scraper{
			ScrapeFn: func(ctx context.Context, src *docharvest.Source, sink docharvest.ChunkSink) *docharvest.ScrapingResult {
				return &docharvest.ScrapingResult{
					Success: true,
					Message: "3 fragments from 1 pages",
					Stats:   docharvest.ScrapingStats{TotalChunks: 3, TotalPages: 1, Duration: time.Second},
				}
			},
		}

		res := hslog.NewLoggingScraper(inner, logger).Scrape(context.Background(), src, nil)

		assert.True(t, res.Success)
		output := buf.String()
		assert.Contains(t, output, "scrape started")
		assert.Contains(t, output, "scrape finished")
		assert.Contains(t, output, "source=react")
		assert.Contains(t, output, "chunks=3")
	})

	t.Run("logs error on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Scraper{
			ScrapeFn: func(ctx context.Context, src *docharvest.Source, sink docharvest.ChunkSink) *docharvest.ScrapingResult {
				return docharvest.FailedResult(docharvest.Errorf(docharvest.ENETWORK, "site unreachable"), time.Now())
			},
		}

		res := hslog.NewLoggingScraper(inner, logger).Scrape(context.Background(), src, nil)

		assert.False(t, res.Success)
		output := buf.String()
		assert.Contains(t, output, "scrape failed")
		assert.Contains(t, output, "site unreachable")
	})
}
