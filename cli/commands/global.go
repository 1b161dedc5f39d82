package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"miren.dev/indexer/pkg/bind"
	"miren.dev/indexer/pkg/manifest"
	"miren.dev/indexer/pkg/schema"
)

var stderr io.Writer = os.Stderr

type GlobalFlags struct {
	Verbose  int    `short:"v" long:"verbose" count:"true" description:"Enable verbose output (repeat for debug)"`
	Manifest string `short:"m" long:"manifest" description:"Path to the indexer manifest (TOML or YAML)"`
}

type Context struct {
	context.Context

	Log *slog.Logger

	Stdout io.Writer
	Stderr io.Writer

	// Args are the positional arguments left after flag parsing.
	Args []string

	global   *GlobalFlags
	flags    *manifest.Flags
	manifest *manifest.Sourced

	cancels  []func()
	exitCode int
}

func setup(ctx context.Context, global *GlobalFlags, flags *manifest.Flags, args []string) *Context {
	var level slog.Level

	switch global.Verbose {
	case 0:
		level = slog.LevelWarn
	case 1:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, unix.SIGTERM)

	return &Context{
		Context: ctx,
		Log:     log,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Args:    args,
		global:  global,
		flags:   flags,
		cancels: []func(){cancel},
	}
}

func (c *Context) Close() {
	for _, cancel := range c.cancels {
		cancel()
	}
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Stdout, format, args...)
}

// SetExitCode sets the code returned once the command finishes.
func (c *Context) SetExitCode(code int) {
	c.exitCode = code
}

// Manifest loads the manifest named by --manifest, overlaid with the
// environment and the manifest flags.
func (c *Context) Manifest() (*manifest.Sourced, error) {
	if c.manifest != nil {
		return c.manifest, nil
	}

	m, err := manifest.Load(c.global.Manifest, c.flags, c.Log)
	if err != nil {
		return nil, err
	}

	c.manifest = m
	return m, nil
}

// Compile parses the manifest's schema and compiles it.
func (c *Context) Compile() (*bind.Output, error) {
	sc, err := c.Manifest()
	if err != nil {
		return nil, err
	}

	m := &sc.Manifest

	cfg, err := m.SchemaConfig()
	if err != nil {
		return nil, err
	}

	sdl, err := os.ReadFile(m.GraphQLSchema)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	cat, err := schema.Load(cfg, m.GraphQLSchema, string(sdl))
	if err != nil {
		return nil, err
	}

	return bind.NewCompiler(cat, nil, c.Log).Compile(c)
}
