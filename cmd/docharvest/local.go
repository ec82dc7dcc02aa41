package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/fwojciec/docharvest"
)

// Run executes the add-file command.
func (c *AddFileCmd) Run(deps *Dependencies) error {
	switch docharvest.FileKind(c.Type) {
	case docharvest.FileUnknown, docharvest.FileMarkdown, docharvest.FileText, docharvest.FilePDF:
	default:
		return docharvest.Errorf(docharvest.EINVALID, "unknown file type %q (want markdown, text or pdf)", c.Type)
	}

	res, err := deps.Manager.AddLocalFile(deps.Ctx, c.Path, c.Name, c.Type)
	if err != nil {
		return err
	}
	if !res.Success {
		return res.Err
	}
	fmt.Fprintf(deps.Stdout, "Added %q: %s\n", c.Name, res.Message)
	return nil
}

// Run executes the add-dir command.
func (c *AddDirCmd) Run(deps *Dependencies) error {
	recursive, err := strconv.ParseBool(c.Recursive)
	if err != nil {
		return docharvest.Errorf(docharvest.EINVALID, "recursive must be true or false, got %q", c.Recursive)
	}

	name := c.Prefix
	if name == "" {
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			return docharvest.WrapError(docharvest.EINVALID, err, "invalid path %q", c.Path)
		}
		name = filepath.Base(abs)
	}

	deps.Files.Recursive = recursive
	res, err := deps.Manager.AddLocalDirectory(deps.Ctx, c.Path, name)
	if err != nil {
		return err
	}
	if !res.Success {
		return res.Err
	}
	fmt.Fprintf(deps.Stdout, "Added %q: %s\n", name, res.Message)
	return nil
}
