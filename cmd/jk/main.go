// Command jk is the journal client: key custody, publishing, sharing and
// password-protected local entries.
package main

import (
	"fmt"
	"os"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, fail(err))
		os.Exit(1)
	}
}
