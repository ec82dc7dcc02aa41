// Package slog decorates docharvest services with structured logging.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docharvest"
)

var _ docharvest.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService logs how many page URLs a site's sitemaps yielded.
// A failed discovery is a warning: the crawl falls back to following links.
type LoggingSitemapService struct {
	next   docharvest.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next docharvest.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverURLs delegates to the wrapped service.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *docharvest.URLFilter) (urls []string, err error) {
	defer func(begin time.Time) {
		if err != nil {
			s.logger.Warn("sitemap discovery failed",
				"site", baseURL,
				"code", docharvest.ErrorCode(err),
				"duration", time.Since(begin),
				"err", err,
			)
			return
		}
		s.logger.Info("sitemap discovery",
			"site", baseURL,
			"pages", len(urls),
			"filtered", filter != nil,
			"duration", time.Since(begin),
		)
	}(time.Now())
	return s.next.DiscoverURLs(ctx, baseURL, filter)
}
