package main

import (
	"os"
	"strings"
)

// specified reports whether the long option (as "--name" or "--name=value")
// or the short option (as "-x") appeared anywhere on the command line.
// SPEC_FULL.md §4.8 requires exactly this check rather than comparing a
// parsed value against its zero value, since a user who explicitly passes
// the default must still win over the config file.
func specified(long, short string) bool {
	for _, a := range os.Args[1:] {
		if a == "--"+long || strings.HasPrefix(a, "--"+long+"=") {
			return true
		}
		if short != "" && a != "--" && strings.HasPrefix(a, "-"+short) {
			return true
		}
	}
	return false
}
