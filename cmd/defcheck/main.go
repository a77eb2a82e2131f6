package main

import (
	"os"

	"github.com/GlintPay/defcheck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
