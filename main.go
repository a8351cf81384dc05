package main

import (
	"os"

	"github.com/sadopc/writingflow/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
