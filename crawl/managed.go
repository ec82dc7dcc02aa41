package crawl

import (
	"context"
	"errors"

	"github.com/fwojciec/docharvest"
	"golang.org/x/time/rate"
)

// managed runs the source through the crawl service. Pages are processed as
// each poll response is decoded. Polling stops when the job completes or
// fails, or after PollTimeout.
func (r *siteRun) managed(ctx context.Context) error {
	jobID, err := docharvest.Retry(ctx, r.Retry, func(ctx context.Context) (string, error) {
		return r.Crawls.StartCrawl(ctx, docharvest.CrawlRequest{
			URL:          r.src.URL,
			IncludePaths: r.src.IncludePaths,
			ExcludePaths: r.src.ExcludePaths,
			MaxDepth:     r.maxDepth(),
			Limit:        r.maxPages(),
		})
	})
	if err != nil {
		return err
	}
	r.log.Info("crawl job started", "job", jobID)

	timeout := r.PollTimeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	interval := r.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pace := rate.NewLimiter(rate.Every(interval), 1)
	onPage := func(p *docharvest.CrawlPage) error {
		return r.addPage(ctx, p.URL, p.Title, p.Markdown)
	}

	next := ""
	for {
		if next == "" {
			if err := pace.Wait(pollCtx); err != nil {
				return r.pollTimeout(ctx, jobID)
			}
		}
		st, err := docharvest.Retry(pollCtx, r.Retry, func(ctx context.Context) (*docharvest.CrawlJobStatus, error) {
			return r.Crawls.PollCrawl(ctx, jobID, next, onPage)
		})
		switch {
		case errors.Is(err, errCeiling):
			return err
		case err != nil && pollCtx.Err() != nil && ctx.Err() == nil:
			return r.pollTimeout(ctx, jobID)
		case err != nil:
			return err
		}

		next = st.Next
		if next != "" {
			continue
		}
		switch st.Status {
		case docharvest.CrawlCompleted:
			r.log.Info("crawl job completed", "job", jobID, "pages", st.Completed)
			return nil
		case docharvest.CrawlFailed:
			return docharvest.Errorf(docharvest.EEXTERNAL, "crawl job %s failed", jobID)
		}
	}
}

func (r *siteRun) pollTimeout(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.chunks > 0 {
		r.log.Warn("crawl job timed out, keeping partial content", "job", jobID, "chunks", r.chunks)
		return nil
	}
	return docharvest.Errorf(docharvest.ETIMEOUT, "crawl job %s timed out", jobID)
}
