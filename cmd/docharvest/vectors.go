package main

import (
	"fmt"

	"github.com/fwojciec/docharvest"
)

// Run executes the clear-vectors command.
func (c *ClearVectorsCmd) Run(deps *Dependencies) (err error) {
	if !c.Confirm {
		return docharvest.Errorf(docharvest.EINVALID, "use --confirm to delete every vector")
	}

	ix, err := deps.OpenIndex(deps.Ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ix.Close(); err == nil {
			err = cerr
		}
	}()

	if err := ix.DeleteDocuments(deps.Ctx, []string{docharvest.DeleteAllSentinel}); err != nil {
		return err
	}
	fmt.Fprintln(deps.Stdout, "Cleared vector index")
	return nil
}

// Run executes the query command.
func (c *QueryCmd) Run(deps *Dependencies) (err error) {
	opts := docharvest.QueryOptions{TopK: c.TopK, MinScore: c.MinScore}
	if c.Source != "" {
		opts.Filter = map[string]string{docharvest.MetaSource: c.Source}
	}

	ix, err := deps.OpenIndex(deps.Ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ix.Close(); err == nil {
			err = cerr
		}
	}()

	results, err := ix.QueryByText(deps.Ctx, c.Text, opts)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(deps.Stdout, "No results scoring at least %.2f.\n", c.MinScore)
		return nil
	}
	fmt.Fprintln(deps.Stdout, docharvest.FormatSearchResults(results))
	return nil
}
