// Package main is the entry point for the pyshrink CLI.
package main

import "pyshrink.dev/pkg/pyshrink/cmd"

func main() {
	cmd.Execute()
}
