package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/github"
	"github.com/fwojciec/docharvest/ingest"
)

// Run executes the website command.
func (c *WebsiteCmd) Run(deps *Dependencies) error {
	name := c.Name
	if name == "" {
		u, err := url.Parse(c.URL)
		if err != nil || u.Host == "" {
			return docharvest.Errorf(docharvest.EINVALID, "invalid URL %q", c.URL)
		}
		name = u.Host
	}
	src := &docharvest.Source{
		Name:     name,
		URL:      c.URL,
		Type:     docharvest.SourceWebsite,
		Selector: c.Selector,
		MaxPages: c.MaxPages,
		Enabled:  true,
	}
	return stream(deps, src, c.BatchSize, c.Interval)
}

// Run executes the github command.
func (c *GitHubCmd) Run(deps *Dependencies) error {
	repo, err := github.ParseRepoURL(c.URL)
	if err != nil {
		return err
	}
	name := c.Name
	if name == "" {
		name = repo.String()
	}

	if deps.Repos != nil {
		deps.Repos.MaxDepth = c.MaxDepth
		deps.Repos.OnlyDirs = c.OnlyDirs
		deps.Repos.SkipCode = c.SkipCode
	}
	src := &docharvest.Source{
		Name:    name,
		URL:     c.URL,
		Type:    docharvest.SourceRepository,
		Enabled: true,
	}
	return stream(deps, src, c.BatchSize, c.Interval)
}

// Run executes the process command.
func (c *ProcessCmd) Run(deps *Dependencies) error {
	var sources []*docharvest.Source
	switch {
	case c.Source != "":
		src, err := deps.Manager.Source(c.Source)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	case c.Config != "":
		data, err := os.ReadFile(c.Config)
		if err != nil {
			return docharvest.WrapError(docharvest.EINVALID, err, "reading %s", c.Config)
		}
		sources, err = docharvest.ParseSources(data)
		if err != nil {
			return err
		}
	default:
		return docharvest.Errorf(docharvest.EINVALID, "either --source or --config is required")
	}

	failed := 0
	for _, src := range sources {
		if !src.Enabled {
			fmt.Fprintf(deps.Stdout, "  %s: disabled, skipped\n", src.Name)
			continue
		}
		if err := stream(deps, src, c.BatchSize, c.Interval); err != nil {
			if deps.Ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(deps.Stderr, "  %s: failed: %s\n", src.Name, docharvest.ErrorMessage(err))
			failed++
		}
	}
	if failed > 0 {
		return docharvest.Errorf(docharvest.EEXTERNAL, "%d of %d sources failed", failed, len(sources))
	}
	return nil
}

// stream scrapes src straight into the vector index.
func stream(deps *Dependencies, src *docharvest.Source, batchSize int, interval time.Duration) error {
	scraper, ok := deps.Scrapers[src.Type]
	if !ok {
		return docharvest.Errorf(docharvest.ECONFIG, "no scraper for %s sources", src.Type)
	}
	ix, err := deps.OpenIndex(deps.Ctx)
	if err != nil {
		return err
	}

	p := ingest.NewProcessor(ix,
		ingest.WithBatchSize(batchSize),
		ingest.WithInterval(interval),
		ingest.WithLogger(deps.Logger),
	)
	res := p.Run(deps.Ctx, scraper, src)
	if !res.Success {
		return res.Err
	}

	st := res.Stats
	fmt.Fprintf(deps.Stdout, "Processed %s: %s\n", src.Name, res.Message)
	fmt.Fprintf(deps.Stdout, "  %d fragments: %d stored, %d failed (%s)\n",
		st.TotalChunks, st.StoredChunks, st.FailedChunks, st.Duration.Round(time.Millisecond))
	return nil
}
