// Command pm manages a local registry of project directories: registration
// with durable identity, tagging, AI-assisted metadata, tool launching and
// an always-current editor project list.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
