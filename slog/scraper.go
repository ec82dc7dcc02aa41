package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/docharvest"
)

// Ensure LoggingScraper implements docharvest.Scraper.
var _ docharvest.Scraper = (*LoggingScraper)(nil)

// LoggingScraper wraps a Scraper and logs each scrape's outcome.
type LoggingScraper struct {
	next   docharvest.Scraper
	logger *slog.Logger
}

// NewLoggingScraper creates a new LoggingScraper.
func NewLoggingScraper(next docharvest.Scraper, logger *slog.Logger) *LoggingScraper {
	return &LoggingScraper{next: next, logger: logger}
}

// Scrape delegates to the wrapped scraper and logs the result.
func (s *LoggingScraper) Scrape(ctx context.Context, src *docharvest.Source, sink docharvest.ChunkSink) *docharvest.ScrapingResult {
	s.logger.Info("scrape started", "source", src.Name, "type", src.Type)
	res := s.next.Scrape(ctx, src, sink)
	if !res.Success {
		s.logger.Error("scrape failed",
			"source", src.Name,
			"duration", res.Stats.Duration,
			"err", res.Err,
		)
		return res
	}
	s.logger.Info("scrape finished",
		"source", src.Name,
		"chunks", res.Stats.TotalChunks,
		"pages", res.Stats.TotalPages,
		"duration", res.Stats.Duration,
		"message", res.Message,
	)
	return res
}
