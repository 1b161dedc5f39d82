package cli

import (
	"github.com/mitchellh/cli"

	"miren.dev/indexer/cli/commands"
	"miren.dev/indexer/version"
)

func Run(args []string) int {
	c := cli.NewCLI("indexgen", version.Version)
	c.Commands = commands.AllCommands()
	c.Args = args[1:]

	exitStatus, err := c.Run()
	if err != nil {
		commands.PrintError(err)
		return 1
	}

	return exitStatus
}
