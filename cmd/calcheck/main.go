// Package main is the entry point for the calcheck CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/calcheck/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
