package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/hbscontent"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *slog.Logger
	Extractor hbscontent.Extractor

	// OpenIndex opens the search index stored at path.
	OpenIndex func(path string) (hbscontent.EntryService, error)

	// IndexPath is the default index location, from HBSCONTENT_INDEX.
	IndexPath string
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	LogLevel LogLevel `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`

	Extract ExtractCmd `cmd:"" help:"Print the contents record of a single template"`
	Build   BuildCmd   `cmd:"" help:"Extract contents for every template in a directory"`
	Search  SearchCmd  `cmd:"" help:"Search the contents index"`
}

// LogLevel is a log level name.
type LogLevel string

// Level returns the slog level for the name.
func (l LogLevel) Level() slog.Level {
	switch l {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	File string `arg:"" help:"Template file, or - for standard input"`
}

// BuildCmd is the "build" subcommand.
type BuildCmd struct {
	Source      string   `arg:"" help:"Directory containing templates"`
	Dest        string   `arg:"" help:"Output directory for contents files"`
	Config      string   `short:"C" type:"path" help:"YAML config file"`
	Concurrency int      `short:"c" help:"Concurrent extraction limit (default 4)"`
	Ext         []string `name:"ext" help:"Template file extension (repeatable, default .hbs)"`
	Target      string   `help:"Extension of output files (default template-contents)"`
	Index       string   `type:"path" help:"SQLite search index to update ($HBSCONTENT_INDEX)"`
	SkipInvalid bool     `help:"Skip templates that fail to parse"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query   string `arg:"" optional:"" help:"Text to find in titles and bodies"`
	Keyword string `short:"k" help:"Only entries with this keyword"`
	Index   string `type:"path" help:"SQLite search index ($HBSCONTENT_INDEX)"`
	Limit   int    `short:"n" default:"20" help:"Maximum number of results"`
}
