// Command stmbench drives the canonical concurrency scenarios from the
// engine's test suite against a real Manager, so they can be run under
// real contention instead of just go test's default GOMAXPROCS. It is a
// demonstration and benchmark harness, not part of the engine's public
// contract.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "stmbench",
		Short: "Drives TL2 STM scenarios against a real Manager under contention",
	}

	root.AddCommand(
		newBankCommand(),
		newHeapCommand(),
		newAllocCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
