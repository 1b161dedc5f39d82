package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/cli"
	"github.com/spf13/pflag"

	"miren.dev/indexer/pkg/manifest"
)

// Cmd adapts a command function to cli.Command, parsing its options struct
// with pflag.
type Cmd[T any] struct {
	syn, name string
	f         func(ctx *Context, opts T) error

	opts     *T
	global   *GlobalFlags
	manifest *manifest.Flags
	fs       *pflag.FlagSet
}

var _ cli.Command = &Cmd[struct{}]{}

// Infer creates a command from a function taking an options struct whose
// fields carry long, short, description and default tags.
func Infer[T any](name, syn string, f func(ctx *Context, opts T) error) *Cmd[T] {
	c := &Cmd[T]{
		syn:      syn,
		name:     name,
		f:        f,
		opts:     new(T),
		global:   &GlobalFlags{},
		manifest: &manifest.Flags{},
		fs:       pflag.NewFlagSet(name, pflag.ContinueOnError),
	}

	for _, v := range []any{c.global, c.manifest, c.opts} {
		if err := fromStruct(c.fs, v); err != nil {
			panic(fmt.Sprintf("error parsing options of %s: %v", name, err))
		}
	}

	return c
}

// fromStruct registers a flag for every tagged field of the struct ptr
// points to.
func fromStruct(fs *pflag.FlagSet, ptr any) error {
	rv := reflect.ValueOf(ptr).Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		ft := rt.Field(i)

		long := ft.Tag.Get("long")
		if long == "" {
			continue
		}

		short := ft.Tag.Get("short")
		usage := ft.Tag.Get("description")
		def := ft.Tag.Get("default")

		switch p := rv.Field(i).Addr().Interface().(type) {
		case *string:
			fs.StringVarP(p, long, short, def, usage)
		case *bool:
			fs.BoolVarP(p, long, short, def == "true", usage)
		case *int:
			if ft.Tag.Get("count") == "true" {
				fs.CountVarP(p, long, short, usage)
				continue
			}
			n := 0
			if def != "" {
				var err error
				if n, err = strconv.Atoi(def); err != nil {
					return fmt.Errorf("default of %s: %w", long, err)
				}
			}
			fs.IntVarP(p, long, short, n, usage)
		case *[]string:
			fs.StringSliceVarP(p, long, short, nil, usage)
		default:
			return fmt.Errorf("unsupported option type %s for %s", ft.Type, long)
		}
	}

	return nil
}

func (c *Cmd[T]) Help() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Usage: indexgen %s [options]\n\n", c.name)
	fmt.Fprintf(&buf, "%s\n\n", c.syn)
	fmt.Fprintf(&buf, "Options:\n")
	buf.WriteString(c.fs.FlagUsages())
	return buf.String()
}

func (c *Cmd[T]) Synopsis() string {
	return c.syn
}

func (c *Cmd[T]) Run(args []string) int {
	err := c.Invoke(args...)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return cli.RunResultHelp
	case errors.Is(err, context.Canceled):
		return 1
	}

	var code ErrExitCode
	if errors.As(err, &code) {
		return int(code)
	}

	PrintError(err)
	return 1
}

func (c *Cmd[T]) Invoke(args ...string) error {
	if err := c.fs.Parse(args); err != nil {
		return err
	}

	c.manifest.SetFlags = make(map[string]bool)
	c.fs.Visit(func(f *pflag.Flag) {
		c.manifest.SetFlags[f.Name] = true
	})

	ctx := setup(context.Background(), c.global, c.manifest, c.fs.Args())
	defer ctx.Close()

	if err := c.f(ctx, *c.opts); err != nil {
		return err
	}

	if ctx.exitCode != 0 {
		return ErrExitCode(ctx.exitCode)
	}

	return nil
}

type ErrExitCode int

func (e ErrExitCode) Error() string {
	return fmt.Sprintf("exit code %d", e)
}

type CommandOutput struct {
	Stderr bytes.Buffer
	Stdout bytes.Buffer
}

// RunCommand runs f with args, capturing its output.
func RunCommand[T any](f func(*Context, T) error, args ...string) (*CommandOutput, error) {
	cmd := Infer("test command", "A command being tested", f)

	var out CommandOutput

	if err := cmd.fs.Parse(args); err != nil {
		out.Stderr.WriteString(err.Error())
		return &out, err
	}

	cmd.manifest.SetFlags = make(map[string]bool)
	cmd.fs.Visit(func(f *pflag.Flag) {
		cmd.manifest.SetFlags[f.Name] = true
	})

	ctx := setup(context.Background(), cmd.global, cmd.manifest, cmd.fs.Args())
	defer ctx.Close()

	ctx.Stdout = &out.Stdout
	ctx.Stderr = &out.Stderr

	return &out, f(ctx, *cmd.opts)
}
