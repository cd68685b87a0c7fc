// Command purgekit is the CLI front end over the cleanup pipeline core:
// scan, preview, execute, restore, and reap, built on a cobra command
// tree in place of the single flag-parsing entrypoint this replaced.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
