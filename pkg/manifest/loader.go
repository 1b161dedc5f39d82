package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var ErrUnknownFormat = errors.New("unknown manifest format")

// Flags holds the command line values that override the manifest.
type Flags struct {
	Namespace      string   `long:"namespace" description:"Namespace qualifying every type id"`
	Identifier     string   `long:"identifier" description:"Indexer identifier appended to the namespace"`
	GraphQLSchema  string   `long:"schema" description:"Path to the GraphQL schema"`
	Target         string   `long:"target" description:"Execution target: native or sandboxed"`
	Package        string   `long:"package" description:"Package name of generated code"`
	Output         string   `short:"o" long:"output" description:"Path of the generated file"`
	StoreDriver    string   `long:"store" description:"Store driver: memory, sqlite, bolt or etcd"`
	StorePath      string   `long:"store-path" description:"Database file for the sqlite and bolt drivers"`
	StoreEndpoints []string `long:"etcd" description:"etcd endpoints"`
	StorePrefix    string   `long:"etcd-prefix" description:"Key prefix in etcd"`
	CacheSize      int      `long:"cache-size" description:"Rows kept in the read cache"`

	// Flags that were explicitly set (vs using defaults)
	SetFlags map[string]bool
}

var keys = []string{
	"namespace",
	"identifier",
	"graphql_schema",
	"target",
	"output.package",
	"output.path",
	"store.driver",
	"store.path",
	"store.endpoints",
	"store.prefix",
	"store.cache_size",
	"store.dial_timeout",
}

// Load builds a manifest with the precedence
// CLI flags > environment variables > manifest file > defaults.
// An empty path skips the file.
func Load(path string, flags *Flags, log *slog.Logger) (*Sourced, error) {
	if log == nil {
		log = slog.Default()
	}

	m := Default()
	sources := make(map[string]Source, len(keys))
	for _, k := range keys {
		sources[k] = SourceDefault
	}

	if path != "" {
		log.Info("loading manifest", "path", path)
		if err := loadFile(path, m, sources); err != nil {
			return nil, fmt.Errorf("failed to load manifest: %w", err)
		}
	} else {
		log.Debug("no manifest file, using defaults")
	}

	if err := applyEnvironmentVariables(m, sources, log); err != nil {
		return nil, fmt.Errorf("failed to apply environment variables: %w", err)
	}

	if flags != nil {
		applyFlags(m, flags, sources)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}

	logSources(log, m, sources)

	return &Sourced{
		Manifest: *m,
		Sources:  sources,
	}, nil
}

func loadFile(path string, m *Manifest, sources map[string]Source) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	var file Manifest

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	if file.GraphQLSchema != "" && !filepath.IsAbs(file.GraphQLSchema) {
		file.GraphQLSchema = filepath.Join(filepath.Dir(path), file.GraphQLSchema)
	}

	merge(m, &file, sources, SourceFile)

	return nil
}

// merge copies the non-zero values of src into dst.
func merge(dst, src *Manifest, sources map[string]Source, source Source) {
	set := func(key string, ok bool, apply func()) {
		if ok {
			apply()
			sources[key] = source
		}
	}

	set("namespace", src.Namespace != "", func() { dst.Namespace = src.Namespace })
	set("identifier", src.Identifier != "", func() { dst.Identifier = src.Identifier })
	set("graphql_schema", src.GraphQLSchema != "", func() { dst.GraphQLSchema = src.GraphQLSchema })
	set("target", src.Target != "", func() { dst.Target = src.Target })

	set("output.package", src.Output.Package != "", func() { dst.Output.Package = src.Output.Package })
	set("output.path", src.Output.Path != "", func() { dst.Output.Path = src.Output.Path })

	set("store.driver", src.Store.Driver != "", func() { dst.Store.Driver = src.Store.Driver })
	set("store.path", src.Store.Path != "", func() { dst.Store.Path = src.Store.Path })
	set("store.endpoints", len(src.Store.Endpoints) > 0, func() { dst.Store.Endpoints = src.Store.Endpoints })
	set("store.prefix", src.Store.Prefix != "", func() { dst.Store.Prefix = src.Store.Prefix })
	set("store.cache_size", src.Store.CacheSize != 0, func() { dst.Store.CacheSize = src.Store.CacheSize })
	set("store.dial_timeout", src.Store.DialTimeout != 0, func() { dst.Store.DialTimeout = src.Store.DialTimeout })
}

func applyFlags(m *Manifest, flags *Flags, sources map[string]Source) {
	wasSet := func(name string) bool {
		return flags.SetFlags[name]
	}

	var cli Manifest

	if wasSet("namespace") {
		cli.Namespace = flags.Namespace
	}
	if wasSet("identifier") {
		cli.Identifier = flags.Identifier
	}
	if wasSet("schema") {
		cli.GraphQLSchema = flags.GraphQLSchema
	}
	if wasSet("target") {
		cli.Target = flags.Target
	}
	if wasSet("package") {
		cli.Output.Package = flags.Package
	}
	if wasSet("output") {
		cli.Output.Path = flags.Output
	}
	if wasSet("store") {
		cli.Store.Driver = flags.StoreDriver
	}
	if wasSet("store-path") {
		cli.Store.Path = flags.StorePath
	}
	if wasSet("etcd") {
		cli.Store.Endpoints = flags.StoreEndpoints
	}
	if wasSet("etcd-prefix") {
		cli.Store.Prefix = flags.StorePrefix
	}
	if wasSet("cache-size") {
		cli.Store.CacheSize = flags.CacheSize
	}

	merge(m, &cli, sources, SourceCLI)
}

// logSources logs where each setting came from
func logSources(log *slog.Logger, m *Manifest, sources map[string]Source) {
	important := []struct {
		path  string
		value any
	}{
		{"namespace", m.Namespace},
		{"graphql_schema", m.GraphQLSchema},
		{"target", m.Target},
		{"store.driver", m.Store.Driver},
	}

	for _, item := range important {
		if src := sources[item.path]; src != SourceDefault {
			log.Info("manifest "+item.path, "value", item.value, "source", src)
		}
	}

	if log.Enabled(context.TODO(), slog.LevelDebug) {
		for _, k := range keys {
			log.Debug("manifest "+k, "source", sources[k])
		}
	}
}
