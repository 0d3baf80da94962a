// Package main provides the civiscope command-line client.
package main

import (
	"os"

	"github.com/civiscope/civiscope-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
