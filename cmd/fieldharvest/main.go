// Command fieldharvest collects field-relevant authors from the OpenAlex
// catalog into per-field CSV files.
package main

import (
	"fmt"
	"os"

	"github.com/rmoretti/fieldharvest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
