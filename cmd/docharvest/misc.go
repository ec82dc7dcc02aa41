package main

import (
	"fmt"
	"runtime"
	"time"
)

// Run executes the github-status command.
func (c *GitHubStatusCmd) Run(deps *Dependencies) error {
	st, err := deps.RateLimits.RateLimitStatus(deps.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "GitHub API: %d of %d requests remaining\n", st.Remaining, st.Limit)
	if !st.Reset.IsZero() {
		fmt.Fprintf(deps.Stdout, "Resets at %s (in %s)\n",
			st.Reset.Local().Format(time.Kitchen), time.Until(st.Reset).Round(time.Second))
	}
	if st.Limit <= 60 {
		fmt.Fprintln(deps.Stdout, "Hint: set GITHUB_TOKEN for a higher limit")
	}
	return nil
}

// Run executes the check-memory command.
func (c *CheckMemoryCmd) Run(deps *Dependencies) error {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	fmt.Fprintf(deps.Stdout, "Heap in use: %s\n", FormatBytes(int64(ms.HeapInuse)))
	fmt.Fprintf(deps.Stdout, "Allocated:   %s\n", FormatBytes(int64(ms.Alloc)))
	fmt.Fprintf(deps.Stdout, "Total alloc: %s\n", FormatBytes(int64(ms.TotalAlloc)))
	fmt.Fprintf(deps.Stdout, "System:      %s\n", FormatBytes(int64(ms.Sys)))
	fmt.Fprintf(deps.Stdout, "GC cycles:   %d\n", ms.NumGC)
	fmt.Fprintf(deps.Stdout, "Goroutines:  %d\n", runtime.NumGoroutine())
	return nil
}

// Run executes the sources command.
func (c *SourcesCmd) Run(deps *Dependencies) error {
	if len(deps.Config.Sources) == 0 {
		fmt.Fprintln(deps.Stdout, "No sources configured. Add [[sources]] to config.toml.")
		return nil
	}
	for _, src := range deps.Config.Sources {
		location := src.URL
		if location == "" {
			location = src.FilePath
		}
		line := fmt.Sprintf("%s  %s  %s", src.Name, src.Type, TruncateURL(location, 60))
		if !src.Enabled {
			line += "  (disabled)"
		}
		fmt.Fprintln(deps.Stdout, line)
	}
	return nil
}
