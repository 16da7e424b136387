// Command memoirctl administers a memoir data directory offline.
//
// It must not run while the server uses the same directory: both keep the
// collections in memory and the last writer wins.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "memoirctl: %v\n", err)
		os.Exit(1)
	}
}
