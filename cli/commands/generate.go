package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"

	"miren.dev/indexer/pkg/emit"
)

func Generate(ctx *Context, opts struct {
	Check bool `long:"check" description:"Fail if the output file is not up to date"`
}) error {
	out, err := ctx.Compile()
	if err != nil {
		return err
	}

	sc, err := ctx.Manifest()
	if err != nil {
		return err
	}

	m := sc.Manifest

	code, err := emit.Generate(out, m.Output.Package)
	if err != nil {
		return err
	}

	name := m.Output.Path
	if name == "" {
		name = m.Output.Package + ".go"
	}

	data, err := imports.Process(name, []byte(code), nil)
	if err != nil {
		return fmt.Errorf("formatting generated code: %w", err)
	}

	if m.Output.Path == "" {
		_, err = ctx.Stdout.Write(data)
		return err
	}

	if opts.Check {
		cur, err := os.ReadFile(m.Output.Path)
		if err != nil || string(cur) != string(data) {
			fmt.Fprintf(ctx.Stderr, "%s is out of date\n", m.Output.Path)
			ctx.SetExitCode(1)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(m.Output.Path), 0755); err != nil {
		return err
	}

	if err := os.WriteFile(m.Output.Path, data, 0644); err != nil {
		return err
	}

	ctx.Log.Info("generated bindings",
		"path", m.Output.Path,
		"entities", len(out.Entities),
		"enums", len(out.Enums),
	)

	return nil
}
