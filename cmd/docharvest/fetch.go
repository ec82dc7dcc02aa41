package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/docharvest"
	"github.com/fwojciec/docharvest/harvest"
)

// Run executes the fetch command.
func (c *FetchCmd) Run(deps *Dependencies) error {
	if c.NoOptimize {
		deps.Manager.Optimize = false
	}

	if c.Source != "" {
		res, err := deps.Manager.FetchSingleSource(deps.Ctx, c.Source)
		if err != nil {
			return err
		}
		printFetch(deps, c.Source, res)
		if !res.Success {
			return res.Err
		}
		return nil
	}

	if len(deps.Manager.Sources()) == 0 {
		fmt.Fprintln(deps.Stdout, "No sources configured. Add [[sources]] to config.toml or use 'docharvest add-dir'.")
		return nil
	}

	results, err := deps.Manager.FetchAllSources(deps.Ctx)
	if err != nil {
		return err
	}
	fetched, chunks := 0, 0
	for _, r := range results {
		printFetch(deps, r.Source, r.Result)
		if r.Result.Success {
			fetched++
			chunks += r.Result.Stats.TotalChunks
		}
	}
	fmt.Fprintf(deps.Stdout, "Fetched %d of %d sources, %d fragments cached\n", fetched, len(results), chunks)
	return nil
}

func printFetch(deps *Dependencies, name string, res *docharvest.ScrapingResult) {
	if !res.Success {
		fmt.Fprintf(deps.Stderr, "  %s: failed: %s\n", name, docharvest.ErrorMessage(res.Err))
		return
	}
	fmt.Fprintf(deps.Stdout, "  %s: %s (%d fragments, %s)\n", name, res.Message, res.Stats.TotalChunks, res.Stats.Duration.Round(time.Millisecond))
}

// Run executes the clean command.
func (c *CleanCmd) Run(deps *Dependencies) error {
	if err := deps.Manager.ClearCache(deps.Ctx); err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "Cleared fragment cache %s\n", deps.Cache.Dir())
	return nil
}

// Run executes the diagnose command.
func (c *DiagnoseCmd) Run(deps *Dependencies) error {
	d := deps.Manager.RunDiagnostics()

	fmt.Fprintf(deps.Stdout, "Status: %s\n", d.Status)
	fmt.Fprintf(deps.Stdout, "Fragments: %d\n", d.TotalChunks)
	printCounts(deps, "By source", d.BySource)
	printCounts(deps, "By category", d.ByCategory)

	if len(d.Issues) == 0 {
		fmt.Fprintln(deps.Stdout, "No issues found.")
		return nil
	}
	fmt.Fprintf(deps.Stdout, "Issues (%d):\n", len(d.Issues))
	for _, issue := range d.Issues {
		fmt.Fprintf(deps.Stdout, "  - %s\n", issue)
	}
	if d.Status == harvest.StatusError {
		fmt.Fprintln(deps.Stdout, "Run 'docharvest fetch' to refresh the cache.")
	}
	return nil
}
