package main

import (
	"os"

	"github.com/matrixise/tokend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
