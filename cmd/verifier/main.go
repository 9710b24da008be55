// Command verifier checks exported run artifacts without network access.
//
//	verifier -dir ./run-1234 [-lookup M-0042]
//
// Exit status is 0 when every check passes, 1 when verification fails and 2
// when the input could not be read.
package main

import (
	"flag"
	"fmt"
	"os"

	"fairdraw/internal/tools/verifier"
)

func main() {
	cfg, err := verifier.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse flags: %v\n", err)
		os.Exit(2)
	}
	report, err := verifier.Run(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		os.Exit(2)
	}
	if !report.OK {
		os.Exit(1)
	}
}
