package main

import (
	"fmt"
	"os"

	"github.com/graph-guard/intscan/pkg/cli"
)

func main() {
	w := os.Stdout
	ok := true
	switch c := cli.Parse(w, os.Args).(type) {
	case cli.CommandParse:
		ok = parse(w, c)
	case cli.CommandExtract:
		ok = extract(w, os.Stdin, c)
	case cli.CommandServe:
		ok = serve(w, c)
	default:
		if c != nil {
			panic(fmt.Errorf("unexpected command: %#v", c))
		}
	}
	if !ok {
		os.Exit(1)
	}
}
