// Command carbonledger is the greenhouse-gas accounting CLI.
package main

import (
	"fmt"
	"os"

	"github.com/rshade/carbonledger/internal/cli"
	"github.com/rshade/carbonledger/pkg/version"
)

func run() error {
	root := cli.NewRootCmd(version.GetVersion())
	return root.Execute()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
