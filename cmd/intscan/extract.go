package main

import (
	"fmt"
	"io"
	"os"

	"github.com/graph-guard/intscan/pkg/cli"
	"github.com/graph-guard/intscan/pkg/jsonscan"
)

// extract prints the outcome of parsing every path of c
// in the JSON document read from c.FilePath or stdin.
func extract(w io.Writer, stdin io.Reader, c cli.CommandExtract) (ok bool) {
	p := readProfile(w, c.ConfigDirPath, c.ProfileID)
	if p == nil {
		return false
	}

	var doc []byte
	var err error
	if c.FilePath != "" {
		doc, err = os.ReadFile(c.FilePath)
	} else {
		doc, err = io.ReadAll(stdin)
	}
	if err != nil {
		fmt.Fprintf(w, "reading document: %s\n", err)
		return false
	}

	fields, err := jsonscan.Extract(doc, p, c.Paths...)
	if err != nil {
		fmt.Fprintf(w, "%s\n", err)
		return false
	}

	ok = true
	for _, f := range fields {
		switch {
		case !f.Found:
			fmt.Fprintf(w, "%s: not found\n", f.Path)
			ok = false
		case f.Err != nil:
			fmt.Fprintf(w, "%s: %s\n", f.Path, f.Err)
			ok = false
		default:
			if !printOutcome(w, f.Path, f.Raw, f.Outcome) {
				ok = false
			}
		}
	}
	return ok
}
