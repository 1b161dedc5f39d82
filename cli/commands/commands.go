package commands

import (
	"fmt"

	"github.com/mitchellh/cli"
)

func AllCommands() map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"version": func() (cli.Command, error) {
			return Infer("version", "Print the version", Version), nil
		},

		"generate": func() (cli.Command, error) {
			return Infer("generate", "Generate Go bindings for a schema", Generate), nil
		},

		"describe": func() (cli.Command, error) {
			return Infer("describe", "Print the compiled descriptors as YAML", Describe), nil
		},

		"get": func() (cli.Command, error) {
			return Infer("get", "Load one record from the store and print it as JSON", Get), nil
		},

		"put": func() (cli.Command, error) {
			return Infer("put", "Store one record read as JSON", Put), nil
		},
	}
}

func PrintError(err error) {
	fmt.Fprintf(stderr, "ERROR: %s\n", err)
}
