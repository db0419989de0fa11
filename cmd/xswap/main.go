/*
Command xswap operates a local cross-ledger transfer state kept in an iavl
store inside of the home directory.

Each invocation runs a single operation as the declared signer, at the
declared block time, and commits the result.
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
