// Package main is the entry point for the tradelog position accounting CLI.
package main

import (
	"os"

	"github.com/aristath/tradelog/cmd/tradelog/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
