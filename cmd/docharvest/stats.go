package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fwojciec/docharvest"
)

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	st := deps.Manager.CacheStats()

	fmt.Fprintf(deps.Stdout, "Sources: %d\n", st.Sources)
	fmt.Fprintf(deps.Stdout, "Fragments: %d\n", st.Chunks)
	fmt.Fprintf(deps.Stdout, "Content: %s\n", FormatBytes(int64(st.Bytes)))

	if deps.Cache != nil {
		files, size, err := deps.Cache.DiskUsage()
		if err != nil {
			return err
		}
		fmt.Fprintf(deps.Stdout, "Cache: %d files, %s in %s\n", files, FormatBytes(size), deps.Cache.Dir())
	}

	printCounts(deps, "By source", st.BySource)
	printCounts(deps, "By category", st.ByCategory)

	if c.Tokens {
		if deps.TokenCounter == nil {
			return docharvest.Errorf(docharvest.ECONFIG, "token counter not configured")
		}
		total := 0
		for _, chunk := range deps.Manager.Chunks() {
			n, err := deps.TokenCounter.CountTokens(deps.Ctx, chunk.Content)
			if err != nil {
				return err
			}
			total += n
		}
		fmt.Fprintf(deps.Stdout, "Tokens: %s\n", FormatTokens(total))
	}
	return nil
}

// printCounts writes counts sorted by key.
func printCounts(deps *Dependencies, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	width := 0
	for k := range counts {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	slices.Sort(keys)

	fmt.Fprintf(deps.Stdout, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(deps.Stdout, "  %s%s  %d\n", k, strings.Repeat(" ", width-len(k)), counts[k])
	}
}
