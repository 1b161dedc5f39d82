package main

import (
	"os"

	"miren.dev/indexer/cli"
)

func main() {
	os.Exit(cli.Run(os.Args))
}
