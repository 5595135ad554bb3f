package main

import (
	"os"

	"github.com/ponto-labs/ponto/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
