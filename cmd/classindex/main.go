// Package main provides the entry point for the classindex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/classindex/cmd/classindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
