// Package main is the entry point for the photometer combat meter.
package main

import (
	"fmt"
	"os"

	"github.com/gameobs/photometer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
