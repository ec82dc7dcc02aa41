package docharvest

import "context"

// CrawlRequest asks a managed crawl service to crawl a site.
type CrawlRequest struct {
	URL          string
	IncludePaths []string
	ExcludePaths []string
	MaxDepth     int
	Limit        int
}

// CrawlPage is one page of a crawl job's output.
type CrawlPage struct {
	URL      string
	Title    string
	Markdown string
}

// Crawl job states.
const (
	CrawlScraping  = "scraping"
	CrawlCompleted = "completed"
	CrawlFailed    = "failed"
)

// CrawlJobStatus is the state of a crawl job after a poll.
type CrawlJobStatus struct {
	Status    string
	Total     int
	Completed int

	// Next is the cursor of the following result page, empty when done.
	Next string
}

// CrawlService runs crawl jobs on a remote crawling service.
type CrawlService interface {
	// StartCrawl submits a job and returns its ID.
	StartCrawl(ctx context.Context, req CrawlRequest) (jobID string, err error)

	// PollCrawl fetches one page of job results, calling fn for each page as
	// it is decoded. next is a cursor from a previous status, or empty.
	PollCrawl(ctx context.Context, jobID, next string, fn func(*CrawlPage) error) (*CrawlJobStatus, error)
}
