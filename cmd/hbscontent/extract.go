package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/hbscontent"
)

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	var data []byte
	var err error
	if c.File == "-" {
		data, err = io.ReadAll(deps.Stdin)
	} else {
		data, err = os.ReadFile(c.File)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	contents, err := deps.Extractor.Extract(string(data))
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", hbscontent.ErrorMessage(err))
		return err
	}

	out, err := contents.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprintln(deps.Stdout, out)
	return nil
}
