package main

import (
	"fmt"

	"github.com/fwojciec/hbscontent"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	path := c.Index
	if path == "" {
		path = deps.IndexPath
	}
	if path == "" {
		err := hbscontent.Errorf(hbscontent.EINVALID, "no index specified")
		fmt.Fprintln(deps.Stderr, "error: no index specified. Use --index or set HBSCONTENT_INDEX")
		return err
	}

	entries, err := deps.OpenIndex(path)
	if err != nil {
		return err
	}

	filter := hbscontent.EntryFilter{Limit: c.Limit}
	if c.Query != "" {
		filter.Query = &c.Query
	}
	if c.Keyword != "" {
		filter.Keyword = &c.Keyword
	}

	found, err := entries.FindEntries(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", hbscontent.ErrorMessage(err))
		return err
	}

	if len(found) == 0 {
		fmt.Fprintln(deps.Stdout, "No matching templates.")
		return nil
	}

	for _, e := range found {
		fmt.Fprintf(deps.Stdout, "%s  %s", e.Path, e.Contents.TitleOr("(untitled)"))
		if len(e.Contents.Keywords) > 0 {
			fmt.Fprintf(deps.Stdout, "  %v", e.Contents.Keywords)
		}
		fmt.Fprintln(deps.Stdout)
	}
	return nil
}
