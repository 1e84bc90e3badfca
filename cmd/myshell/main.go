package main

import (
	"os"
)

var version = "dev"

// exitCode is set by whichever command ran.
var exitCode int

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}
