package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"miren.dev/indexer/pkg/record"
	"miren.dev/indexer/pkg/store"
)

// binding compiles the schema and binds name to the manifest's store.
func (c *Context) binding(name string) (*record.Binding, *store.Guard, error) {
	out, err := c.Compile()
	if err != nil {
		return nil, nil, err
	}

	ed, ok := out.Entity(name)
	if !ok {
		return nil, nil, fmt.Errorf("no entity named %q", name)
	}

	sc, err := c.Manifest()
	if err != nil {
		return nil, nil, err
	}

	g := store.NewLazyGuard(sc.Manifest.StoreConfig().Opener(c.Log), c.Log)

	return record.New(ed, g), g, nil
}

func Get(ctx *Context, opts struct{}) error {
	if len(ctx.Args) != 2 {
		return fmt.Errorf("usage: indexgen get <type> <id>")
	}

	id, err := strconv.ParseUint(ctx.Args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", ctx.Args[1], err)
	}

	b, g, err := ctx.binding(ctx.Args[0])
	if err != nil {
		return err
	}
	defer g.Close()

	rec, err := b.Load(ctx, id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	ctx.Printf("%s\n", data)
	return nil
}

func Put(ctx *Context, opts struct{}) error {
	if len(ctx.Args) < 1 || len(ctx.Args) > 2 {
		return fmt.Errorf("usage: indexgen put <type> [file]")
	}

	var (
		data []byte
		err  error
	)

	if len(ctx.Args) == 2 && ctx.Args[1] != "-" {
		data, err = os.ReadFile(ctx.Args[1])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}

	b, g, err := ctx.binding(ctx.Args[0])
	if err != nil {
		return err
	}
	defer g.Close()

	rec, err := b.FromJSON(data)
	if err != nil {
		return err
	}

	if err := rec.Save(ctx); err != nil {
		return err
	}

	if id, ok := rec.ID(); ok {
		ctx.Printf("%d\n", id)
	}

	return nil
}
