package main

import (
	"os"

	"inferd/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
