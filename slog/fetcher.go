package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docharvest"
)

var _ docharvest.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher logs page fetches. Successful fetches are debug output;
// failures are warnings carrying the error code that decides whether the
// crawl retries.
type LoggingFetcher struct {
	next   docharvest.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next docharvest.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (html string, err error) {
	defer func(begin time.Time) {
		if err != nil {
			f.logger.Warn("page fetch failed",
				"url", url,
				"code", docharvest.ErrorCode(err),
				"duration", time.Since(begin),
				"err", err,
			)
			return
		}
		f.logger.Debug("page fetched",
			"url", url,
			"bytes", len(html),
			"duration", time.Since(begin),
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}
