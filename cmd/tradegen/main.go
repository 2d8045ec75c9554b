package main

import (
	"os"

	"fraud-trade-lab/cmd/tradegen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
