package main

import (
	"fmt"
	"os"

	"github.com/causalstack/causal-sentinel/cmd/sentinel/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
