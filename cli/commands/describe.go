package commands

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

func Describe(ctx *Context, opts struct {
	Type string `short:"t" long:"type" description:"Only describe this type"`
}) error {
	out, err := ctx.Compile()
	if err != nil {
		return err
	}

	var v any = out

	if opts.Type != "" {
		if ed, ok := out.Entity(opts.Type); ok {
			v = ed
		} else if en, ok := out.Enum(opts.Type); ok {
			v = en
		} else {
			return fmt.Errorf("no type named %q", opts.Type)
		}
	}

	enc := yaml.NewEncoder(ctx.Stdout)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}
