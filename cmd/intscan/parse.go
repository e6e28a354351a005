package main

import (
	"fmt"
	"io"

	"github.com/graph-guard/intscan/pkg/cli"
	"github.com/graph-guard/intscan/pkg/config"
	"github.com/graph-guard/intscan/pkg/intscan"
	"github.com/graph-guard/intscan/pkg/profile"
)

// parse prints the outcome of parsing every input of c.
// Returns false if any of the inputs failed to parse.
func parse(w io.Writer, c cli.CommandParse) (ok bool) {
	var p *profile.Profile
	if c.ProfileID != "" {
		if p = readProfile(w, c.ConfigDirPath, c.ProfileID); p == nil {
			return false
		}
	} else {
		kind, err := profile.ParseKind(c.Type)
		if err != nil {
			fmt.Fprintf(w, "%s\n", err)
			return false
		}
		strategy, err := profile.ParseStrategy(c.Strategy)
		if err != nil {
			fmt.Fprintf(w, "%s\n", err)
			return false
		}
		if err := config.ValidateIgnore(c.Ignore); err != "" {
			fmt.Fprintf(w, "illegal ignore: %s\n", err)
			return false
		}
		if p, err = profile.New("", "", kind, strategy, c.Ignore); err != nil {
			fmt.Fprintf(w, "%s\n", err)
			return false
		}
	}

	ok = true
	for _, in := range c.Inputs {
		if !printOutcome(w, in, in, p.Parse([]byte(in))) {
			ok = false
		}
	}
	return ok
}

func printOutcome(w io.Writer, label, in string, o profile.Outcome) (ok bool) {
	if o.Result.Status != intscan.OK {
		fmt.Fprintf(w, "%s: %s\n", label, o.Result.Err())
		return false
	}
	if o.Result.End < len(in) {
		fmt.Fprintf(w, "%s: %s (trailing %q)\n",
			label, o.Value.Grouped(), in[o.Result.End:])
		return true
	}
	fmt.Fprintf(w, "%s: %s\n", label, o.Value.Grouped())
	return true
}
