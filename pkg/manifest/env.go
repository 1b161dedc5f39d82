package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const envPrefix = "INDEXGEN_"

func applyEnvironmentVariables(m *Manifest, sources map[string]Source, log *slog.Logger) error {
	var (
		env     Manifest
		applied []string
	)

	str := func(name string, dst *string) {
		if val := os.Getenv(envPrefix + name); val != "" {
			*dst = val
			applied = append(applied, envPrefix+name)
		}
	}

	integer := func(name string, dst *int) error {
		val := os.Getenv(envPrefix + name)
		if val == "" {
			return nil
		}

		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s%s: %s", envPrefix, name, val)
		}

		*dst = i
		applied = append(applied, envPrefix+name)
		return nil
	}

	str("NAMESPACE", &env.Namespace)
	str("IDENTIFIER", &env.Identifier)
	str("GRAPHQL_SCHEMA", &env.GraphQLSchema)
	str("TARGET", &env.Target)
	str("OUTPUT_PACKAGE", &env.Output.Package)
	str("OUTPUT_PATH", &env.Output.Path)
	str("STORE_DRIVER", &env.Store.Driver)
	str("STORE_PATH", &env.Store.Path)
	str("STORE_PREFIX", &env.Store.Prefix)

	if val := os.Getenv(envPrefix + "STORE_ENDPOINTS"); val != "" {
		env.Store.Endpoints = splitCommaSeparated(val)
		applied = append(applied, envPrefix+"STORE_ENDPOINTS")
	}

	if err := integer("STORE_CACHE_SIZE", &env.Store.CacheSize); err != nil {
		return err
	}

	if err := integer("STORE_DIAL_TIMEOUT", &env.Store.DialTimeout); err != nil {
		return err
	}

	merge(m, &env, sources, SourceEnv)

	if len(applied) > 0 {
		log.Debug("applied environment variables", "count", len(applied), "vars", applied)
	}

	return nil
}

func splitCommaSeparated(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
