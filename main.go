// Package main provides the entry point for SimEng.
// SimEng is a cycle-accurate superscalar out-of-order ARM64 core simulator.
//
// For the full CLI, use: go run ./cmd/simcore
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("SimEng - out-of-order ARM64 core simulator")
	fmt.Println("")
	fmt.Println("Usage: simcore [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to a YAML settings document")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/simcore' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/simcore' instead.")
	}
}
