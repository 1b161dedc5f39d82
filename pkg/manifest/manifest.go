// Package manifest loads the settings indexgen needs to compile a schema
// and reach a store: defaults, a TOML or YAML file, INDEXGEN_* environment
// variables and command line flags, in increasing precedence.
package manifest

import (
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"miren.dev/indexer/pkg/schema"
	"miren.dev/indexer/pkg/store"
)

// Manifest describes one indexer module.
type Manifest struct {
	// Namespace and Identifier together qualify every type id.
	Namespace  string `toml:"namespace" yaml:"namespace" json:"namespace"`
	Identifier string `toml:"identifier" yaml:"identifier" json:"identifier"`

	// GraphQLSchema is the path of the SDL file. Relative paths in a
	// manifest file are resolved against the file's directory.
	GraphQLSchema string `toml:"graphql_schema" yaml:"graphql_schema" json:"graphql_schema"`

	// Target is "native" or "sandboxed" ("wasm" is accepted).
	Target string `toml:"target" yaml:"target" json:"target"`

	Output OutputConfig `toml:"output" yaml:"output" json:"output"`
	Store  StoreConfig  `toml:"store" yaml:"store" json:"store"`
}

// OutputConfig controls where generated code goes.
type OutputConfig struct {
	Package string `toml:"package" yaml:"package" json:"package"`
	Path    string `toml:"path" yaml:"path" json:"path"`
}

// StoreConfig selects the store handle used by native bindings.
type StoreConfig struct {
	Driver      string   `toml:"driver" yaml:"driver" json:"driver"`
	Path        string   `toml:"path" yaml:"path" json:"path"`
	Endpoints   []string `toml:"endpoints" yaml:"endpoints" json:"endpoints"`
	Prefix      string   `toml:"prefix" yaml:"prefix" json:"prefix"`
	CacheSize   int      `toml:"cache_size" yaml:"cache_size" json:"cache_size"`
	DialTimeout int      `toml:"dial_timeout" yaml:"dial_timeout" json:"dial_timeout"`
}

// Source tracks where a setting came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "environment"
	SourceCLI     Source = "cli"
)

// Sourced wraps a Manifest with the source of each key.
type Sourced struct {
	Manifest Manifest
	Sources  map[string]Source
}

var (
	identRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	packageRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

func (m *Manifest) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Namespace, validation.Required, validation.Match(identRe)),
		validation.Field(&m.Identifier, validation.Match(identRe)),
		validation.Field(&m.GraphQLSchema, validation.Required),
		validation.Field(&m.Target, validation.Required, validation.By(validTarget)),
		validation.Field(&m.Output),
		validation.Field(&m.Store),
	)
}

func (o OutputConfig) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Package, validation.Required, validation.Match(packageRe)),
	)
}

func (s StoreConfig) Validate() error {
	file := s.Driver == store.DriverSQLite || s.Driver == store.DriverBolt

	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required,
			validation.In(store.DriverMemory, store.DriverSQLite, store.DriverBolt, store.DriverEtcd)),
		validation.Field(&s.Path, validation.When(file, validation.Required)),
		validation.Field(&s.Endpoints, validation.When(s.Driver == store.DriverEtcd, validation.Required)),
		validation.Field(&s.CacheSize, validation.Min(0)),
		validation.Field(&s.DialTimeout, validation.Min(0)),
	)
}

func validTarget(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	_, err := schema.ParseTarget(s)
	return err
}

// SchemaConfig returns the catalog settings.
func (m *Manifest) SchemaConfig() (schema.Config, error) {
	target, err := schema.ParseTarget(m.Target)
	if err != nil {
		return schema.Config{}, fmt.Errorf("manifest target: %w", err)
	}

	return schema.Config{
		Namespace:  m.Namespace,
		Identifier: m.Identifier,
		Target:     target,
	}, nil
}

// StoreConfig returns the store settings.
func (m *Manifest) StoreConfig() store.Config {
	return store.Config{
		Driver:      m.Store.Driver,
		Path:        m.Store.Path,
		Endpoints:   m.Store.Endpoints,
		Prefix:      m.Store.Prefix,
		CacheSize:   m.Store.CacheSize,
		DialTimeout: time.Duration(m.Store.DialTimeout) * time.Second,
	}
}

// Default returns a Manifest with all default values set.
func Default() *Manifest {
	return &Manifest{
		Namespace:     "indexer",
		GraphQLSchema: "schema.graphql",
		Target:        schema.Native.String(),
		Output: OutputConfig{
			Package: "entities",
		},
		Store: StoreConfig{
			Driver:      store.DriverMemory,
			Endpoints:   []string{},
			Prefix:      "/indexer",
			DialTimeout: 5,
		},
	}
}
