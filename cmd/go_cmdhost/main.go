package main

import (
	"fmt"
	"os"

	"github.com/andrei-cloud/go_cmdhost/internal/commands/cli"
)

// main builds the command tree and runs it.
func main() {
	rootCmd, err := cli.NewRootCommand()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
