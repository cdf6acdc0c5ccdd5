package main

import (
	"os"

	"github.com/dshills/guardrail/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
