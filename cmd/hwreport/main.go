package main

import (
	"os"

	"github.com/computerscienceiscool/nodekit/pkg/cli"
)

func main() {
	os.Exit(cli.ExecuteHWReport())
}
