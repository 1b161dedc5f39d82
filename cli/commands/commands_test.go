package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `
enum Mood {
  Happy
  Sad
}

type Person {
  id: ID!
  name: Charfield!
  age: UInt1!
  mood: Mood
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.graphql", testSchema)

	t.Run("writes to stdout", func(t *testing.T) {
		r := require.New(t)

		out, err := RunCommand(Generate, "--schema", schemaPath, "--package", "model")
		r.NoError(err)

		code := out.Stdout.String()
		r.Contains(code, "package model")
		r.Contains(code, "func PersonFromRow(r row.Row) (*Person, error) {")
		r.Contains(code, "func ParseMood(s string) (Mood, error) {")
	})

	t.Run("writes the output file", func(t *testing.T) {
		r := require.New(t)

		target := filepath.Join(dir, "model", "model.go")

		_, err := RunCommand(Generate, "--schema", schemaPath, "--package", "model", "-o", target)
		r.NoError(err)

		data, err := os.ReadFile(target)
		r.NoError(err)
		r.Contains(string(data), "Code generated by indexgen. DO NOT EDIT.")

		_, err = RunCommand(Generate, "--schema", schemaPath, "--package", "model", "-o", target, "--check")
		r.NoError(err)
	})

	t.Run("reports schema errors", func(t *testing.T) {
		bad := writeFile(t, t.TempDir(), "bad.graphql", `type Broken { id: ID!, when: Moment! }`)

		_, err := RunCommand(Generate, "--schema", bad)
		require.ErrorContains(t, err, "Moment")
	})

	t.Run("reports a missing schema", func(t *testing.T) {
		_, err := RunCommand(Generate, "--schema", filepath.Join(dir, "missing.graphql"))
		require.ErrorContains(t, err, "reading schema")
	})
}

func TestDescribe(t *testing.T) {
	schemaPath := writeFile(t, t.TempDir(), "schema.graphql", testSchema)

	t.Run("all types", func(t *testing.T) {
		r := require.New(t)

		out, err := RunCommand(Describe, "--schema", schemaPath, "--namespace", "fuel")
		r.NoError(err)

		s := out.Stdout.String()
		r.Contains(s, "namespace: fuel")
		r.Contains(s, "name: Person")
		r.Contains(s, "type_id:")
		r.Contains(s, "- Happy")
	})

	t.Run("one type", func(t *testing.T) {
		r := require.New(t)

		out, err := RunCommand(Describe, "--schema", schemaPath, "--type", "Mood")
		r.NoError(err)
		r.Contains(out.Stdout.String(), "name: Mood")
		r.NotContains(out.Stdout.String(), "Person")

		_, err = RunCommand(Describe, "--schema", schemaPath, "--type", "Nope")
		r.ErrorContains(err, "no type named")
	})
}

func TestPutGet(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.graphql", testSchema)
	recPath := writeFile(t, dir, "person.json", `{"id":42,"name":"ada","age":36,"mood":"Mood::Happy"}`)

	storeArgs := []string{"--schema", schemaPath, "--store", "bolt", "--store-path", filepath.Join(dir, "rows.db")}

	out, err := RunCommand(Put, append(storeArgs, "Person", recPath)...)
	r.NoError(err)
	r.Equal("42\n", out.Stdout.String())

	out, err = RunCommand(Get, append(storeArgs, "Person", "42")...)
	r.NoError(err)
	r.JSONEq(`{"id":42,"name":"ada","age":36,"mood":"Mood::Happy"}`, out.Stdout.String())

	_, err = RunCommand(Get, append(storeArgs, "Person", "43")...)
	r.ErrorContains(err, "not found")

	_, err = RunCommand(Get, append(storeArgs, "Person", "x")...)
	r.ErrorContains(err, "invalid id")

	_, err = RunCommand(Get, append(storeArgs, "Animal", "1")...)
	r.ErrorContains(err, "no entity named")
}

func TestVersion(t *testing.T) {
	out, err := RunCommand(Version, "--json")
	require.NoError(t, err)
	require.Contains(t, out.Stdout.String(), `"generator": "indexgen"`)
}
