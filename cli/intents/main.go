package main

import (
	"os"

	intentscmder "github.com/papercomputeco/intents/cmd/intents"
)

func main() {
	cmd := intentscmder.NewIntentsCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
