// Package gentest provides fixtures shared by the target tests.
package gentest

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/compiler/load"
	"github.com/syssam/metricgen/schema"
)

// Partial declares one renderable entity and one whose payload column has
// a type no target supports.
const Partial = `version: "2.0.0"
metric_groups:
  - {id: system, display_name: System, order: 1}
hosts:
  fields:
    - {name: id, type: SERIAL, primary_key: true}
    - {name: server_name, type: VARCHAR(64), nullable: false}
    - name: uptime
      type: INTEGER
      source: {index: 0}
      validation: {kind: integer, min: 0}
      group: system
events:
  fields:
    - {name: id, type: SERIAL, primary_key: true}
    - {name: payload, type: JSONB, source: {index: 0}}
`

// SchemaPath returns the path of the reference metrics schema.
func SchemaPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "load", "testdata", "metrics_schema.yaml")
}

// Metrics loads the reference metrics schema.
func Metrics(t testing.TB) *schema.Document {
	t.Helper()
	doc, err := load.LoadFile(SchemaPath())
	require.NoError(t, err)
	return doc
}

// Load loads an inline schema.
func Load(t testing.TB, src string) *schema.Document {
	t.Helper()
	doc, err := load.Load([]byte(src))
	require.NoError(t, err)
	return doc
}

// Config returns a reproducible config writing under a temp dir.
func Config(t testing.TB, opts ...gen.Option) *gen.Config {
	t.Helper()
	cfg, err := gen.NewConfig(append([]gen.Option{gen.WithOutDir(t.TempDir())}, opts...)...)
	require.NoError(t, err)
	return cfg
}

// Find returns the file with the given path, failing the test if absent.
func Find(t testing.TB, files []*gen.File, path string) *gen.File {
	t.Helper()
	for _, f := range files {
		if f.Path == path {
			return f
		}
	}
	require.Failf(t, "file not generated", "%s", path)
	return nil
}
