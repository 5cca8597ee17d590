package main

import (
	"os"

	"github.com/tphakala/go-tfs/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args))
}
