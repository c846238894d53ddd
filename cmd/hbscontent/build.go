package main

import (
	"fmt"
	"path/filepath"

	"github.com/fwojciec/hbscontent"
	"github.com/fwojciec/hbscontent/build"
	"github.com/fwojciec/hbscontent/fs"
	"github.com/fwojciec/hbscontent/hbs"
	hbsslog "github.com/fwojciec/hbscontent/slog"
)

// Run executes the build command.
func (c *BuildCmd) Run(deps *Dependencies) error {
	cfg, err := c.config(deps.IndexPath)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", hbscontent.ErrorMessage(err))
		return err
	}

	dest, err := filepath.Abs(c.Dest)
	if err != nil {
		return err
	}

	b := &build.Builder{
		Source:      fs.NewSource(c.Source, cfg.Extensions...),
		Extractor:   deps.Extractor,
		Store:       hbsslog.NewLoggingStore(fs.NewStore(filepath.Dir(dest), filepath.Base(dest), cfg.TargetExtension), deps.Logger),
		Version:     hbs.Version,
		Concurrency: cfg.Concurrency,
		SkipInvalid: cfg.SkipInvalid,
	}
	if cfg.Index != "" {
		b.Index, err = deps.OpenIndex(cfg.Index)
		if err != nil {
			fmt.Fprintln(deps.Stderr, "Hint: Set HBSCONTENT_INDEX or --index to use a different index path")
			return err
		}
	}

	result, err := b.Build(deps.Ctx, func(event build.ProgressEvent) {
		switch event.Type {
		case build.ProgressSkipped:
			fmt.Fprintf(deps.Stderr, "skipped %s: %s\n", event.Path, hbscontent.ErrorMessage(event.Error))
		case build.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "failed %s: %s\n", event.Path, hbscontent.ErrorMessage(event.Error))
		}
	})
	if err != nil {
		fmt.Fprintln(deps.Stderr, "Build failed; output directory unchanged")
		return err
	}

	fmt.Fprintf(deps.Stdout, "Extracted %d, cached %d, skipped %d templates (%s) into %s\n",
		result.Extracted, result.Cached, result.Skipped, build.FormatBytes(result.Bytes), c.Dest)
	if result.Removed > 0 {
		fmt.Fprintf(deps.Stdout, "Removed %d stale index entries\n", result.Removed)
	}
	return nil
}
