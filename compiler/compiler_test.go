package compiler_test

import (
	"bytes"
	"context"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/metricgen/compiler"
	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/compiler/gen/docs"
	"github.com/syssam/metricgen/compiler/load"
	"github.com/syssam/metricgen/schema"
)

const partial = `version: "2.0.0"
hosts:
  fields:
    - {name: id, type: SERIAL, primary_key: true}
    - {name: server_name, type: VARCHAR(64), nullable: false}
    - {name: uptime, type: INTEGER, source: {index: 0}, validation: {kind: integer, min: 0}}
events:
  fields:
    - {name: id, type: SERIAL, primary_key: true}
    - {name: payload, type: JSONB, source: {index: 0}}
`

const missingPK = `version: "1"
hosts:
  fields:
    - {name: server_name, type: VARCHAR(64)}
`

func metricsSchema(t *testing.T) []byte {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("load", "testdata", "metrics_schema.yaml"))
	require.NoError(t, err)
	return src
}

func newCompiler(t *testing.T, dir string, opts ...compiler.Option) *compiler.Compiler {
	t.Helper()
	cfg, err := gen.NewConfig(gen.WithOutDir(dir))
	require.NoError(t, err)
	c, err := compiler.New(cfg, opts...)
	require.NoError(t, err)
	return c
}

// tree reads every file under dir keyed by slash separated relative path.
func tree(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	files := make(map[string][]byte)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)], err = os.ReadFile(path)
		return err
	})
	require.NoError(t, err)
	return files
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	c := newCompiler(t, dir)
	assert.Equal(t, compiler.Idle, c.State())

	report, err := c.Run(context.Background(), metricsSchema(t))
	require.NoError(t, err)
	assert.Equal(t, compiler.Done, c.State())
	assert.Equal(t, compiler.ExitOK, report.ExitCode())
	assert.Equal(t, "1.0.0", report.Version)
	assert.NotEqual(t, uuid.Nil, report.RunID)
	require.NoError(t, report.TargetErr())

	var targets []string
	for _, r := range report.Results {
		targets = append(targets, r.Target)
	}
	assert.Equal(t, gen.Targets, targets)

	written := tree(t, dir)
	expected := docs.Files(report.Doc, gen.MustNewConfig())
	assert.Len(t, written, len(expected))
	for _, path := range expected {
		assert.Contains(t, written, path)
	}
	assert.Len(t, report.Files(), len(expected))
	assert.Equal(t, []string{filepath.Join(dir, "migrations", "schema.sql")}, report.Result(gen.TargetSQL).Files)
}

func TestDeterministic(t *testing.T) {
	src := metricsSchema(t)
	run := func(opts ...gen.Option) map[string][]byte {
		dir := t.TempDir()
		cfg, err := gen.NewConfig(append([]gen.Option{gen.WithOutDir(dir)}, opts...)...)
		require.NoError(t, err)
		c, err := compiler.New(cfg)
		require.NoError(t, err)
		report, err := c.Run(context.Background(), src)
		require.NoError(t, err)
		require.Equal(t, compiler.ExitOK, report.ExitCode())
		return tree(t, dir)
	}

	t.Run("reproducible", func(t *testing.T) {
		assert.Equal(t, run(), run(gen.WithWorkers(1)))
	})
	t.Run("stamped", func(t *testing.T) {
		a := run(gen.WithGeneratedAt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
		b := run(gen.WithGeneratedAt(time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC)))
		require.Equal(t, len(a), len(b))
		for path, content := range a {
			assert.Contains(t, string(content), "Generated At: 2024-01-02T03:04:05Z", path)
			assert.Equal(t, string(gen.StripGeneratedAt(content)), string(gen.StripGeneratedAt(b[path])), path)
		}
	})
}

func jsonTags(t *testing.T, src []byte) []string {
	t.Helper()
	file, err := parser.ParseFile(token.NewFileSet(), "", src, 0)
	require.NoError(t, err)
	var tags []string
	ast.Inspect(file, func(n ast.Node) bool {
		st, ok := n.(*ast.StructType)
		if !ok {
			return true
		}
		for _, f := range st.Fields.List {
			tag, err := strconv.Unquote(f.Tag.Value)
			require.NoError(t, err)
			name, _, _ := strings.Cut(reflect.StructTag(tag).Get("json"), ",")
			tags = append(tags, name)
		}
		return false
	})
	return tags
}

var tsMemberRE = regexp.MustCompile(`(?m)^  (\w+)\??: `)

func tsMembers(t *testing.T, src, name string) []string {
	t.Helper()
	start := strings.Index(src, "export interface "+name+" {")
	require.NotEqual(t, -1, start, name)
	end := strings.Index(src[start:], "\n}\n")
	require.NotEqual(t, -1, end, name)
	var members []string
	for _, m := range tsMemberRE.FindAllStringSubmatch(src[start:start+end], -1) {
		members = append(members, m[1])
	}
	return members
}

func TestCrossArtifactConsistency(t *testing.T) {
	dir := t.TempDir()
	report, err := newCompiler(t, dir).Run(context.Background(), metricsSchema(t))
	require.NoError(t, err)
	files := tree(t, dir)
	sqlText := string(files["migrations/schema.sql"])
	ts := string(files["clienttypes/types.ts"])

	for _, e := range report.Doc.Entities {
		t.Run(e.Key, func(t *testing.T) {
			var names []string
			for _, f := range e.Fields {
				names = append(names, f.Name)
				assert.Regexp(t, `(?m)^    `+f.Name+` `, sqlText)
			}
			assert.Equal(t, names, jsonTags(t, files["models/"+e.Table+".go"]))
			assert.Equal(t, names, tsMembers(t, ts, gen.Pascal(e.Key)))

			parsers := string(files["parsers/"+e.Table+".go"])
			for _, f := range e.SourcedFields() {
				assert.Regexp(t, strconv.Quote(f.Name)+`:\s+extract\.Value\(`, parsers)
			}
			validators := string(files["validators/"+e.Table+".go"])
			for _, f := range e.ValidatedFields() {
				assert.Contains(t, validators, `validate.Field(`+strconv.Quote(f.Name)+`)`)
			}
		})
	}
}

func TestPartialSuccess(t *testing.T) {
	dir := t.TempDir()
	report, err := newCompiler(t, dir).Run(context.Background(), []byte(partial))
	require.NoError(t, err)
	assert.Equal(t, compiler.ExitTargetFailed, report.ExitCode())

	for _, target := range []string{gen.TargetSQL, gen.TargetModel, gen.TargetParser, gen.TargetValidator, gen.TargetClientType} {
		res := report.Result(target)
		require.NotNil(t, res, target)
		require.Len(t, res.Errors, 1, target)
		var typeErr *gen.UnsupportedTypeError
		require.ErrorAs(t, res.Errors[0], &typeErr, target)
		assert.Equal(t, "events", typeErr.Entity)
		assert.NotEmpty(t, res.Files, target)
	}
	assert.True(t, report.Result(gen.TargetDocs).OK())
	assert.ErrorIs(t, report.TargetErr(), gen.ErrUnsupportedType)

	files := tree(t, dir)
	assert.Contains(t, files, "models/hosts.go")
	assert.Contains(t, files, "parsers/hosts.go")
	assert.Contains(t, files, "validators/hosts.go")
	assert.NotContains(t, files, "models/events.go")
	assert.NotContains(t, files, "parsers/events.go")
	assert.Contains(t, string(files["migrations/schema.sql"]), "CREATE TABLE IF NOT EXISTS hosts (")
	assert.NotContains(t, string(files["migrations/schema.sql"]), "events")
}

func TestValidationFailure(t *testing.T) {
	dir := t.TempDir()
	c := newCompiler(t, dir)
	report, err := c.Run(context.Background(), []byte(missingPK))
	require.Error(t, err)
	assert.True(t, load.IsValidationError(err))
	assert.ErrorIs(t, err, load.ErrInvalidSchema)
	assert.Equal(t, compiler.Failed, c.State())
	assert.Equal(t, compiler.ExitValidationFailed, report.ExitCode())
	require.NotEmpty(t, report.Violations)
	assert.Equal(t, load.RulePrimaryKey, report.Violations[0].Rule)
	assert.Nil(t, report.Doc)
	assert.Empty(t, report.Results)
	assert.Empty(t, tree(t, dir))

	t.Run("malformed yaml", func(t *testing.T) {
		report, err := newCompiler(t, dir).Run(context.Background(), []byte("version: [1"))
		require.Error(t, err)
		assert.True(t, load.IsLoadError(err))
		assert.Equal(t, compiler.ExitValidationFailed, report.ExitCode())
		assert.Empty(t, report.Violations)
	})
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte(missingPK), 0o644))
	_, err := newCompiler(t, t.TempDir()).RunFile(context.Background(), path)
	var valErr *load.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, path, valErr.Path)

	report, err := newCompiler(t, dir).RunFile(context.Background(), filepath.Join("load", "testdata", "metrics_schema.yaml"))
	require.NoError(t, err)
	assert.Equal(t, compiler.ExitOK, report.ExitCode())
}

func TestValidateOnly(t *testing.T) {
	dir := t.TempDir()
	c := newCompiler(t, dir, compiler.WithValidateOnly(true))
	report, err := c.Run(context.Background(), metricsSchema(t))
	require.NoError(t, err)
	assert.Equal(t, compiler.Done, c.State())
	assert.Equal(t, compiler.ExitOK, report.ExitCode())
	assert.NotNil(t, report.Doc)
	assert.Empty(t, report.Results)
	assert.Empty(t, tree(t, dir))
}

func TestTargets(t *testing.T) {
	dir := t.TempDir()
	report, err := newCompiler(t, dir, compiler.WithTargets(gen.TargetDocs, gen.TargetSQL)).Run(context.Background(), metricsSchema(t))
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, gen.TargetSQL, report.Results[0].Target)
	assert.Equal(t, gen.TargetDocs, report.Results[1].Target)
	files := tree(t, dir)
	assert.Len(t, files, 4)
	assert.NotContains(t, files, "clienttypes/types.ts")

	t.Run("invalid", func(t *testing.T) {
		_, err := compiler.New(nil, compiler.WithTargets("python"))
		assert.True(t, gen.IsConfigError(err))
		_, err = compiler.New(nil, compiler.WithTargets())
		assert.True(t, gen.IsConfigError(err))
		_, err = compiler.New(nil, compiler.WithGenerator("python", compiler.Generators()[gen.TargetSQL]))
		assert.True(t, gen.IsConfigError(err))
		_, err = compiler.New(nil, compiler.WithLogger(nil))
		assert.True(t, gen.IsConfigError(err))
	})
}

func TestTargetFailureIsolated(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")
	failing := gen.GenerateFunc(func(*schema.Document, *gen.Config) ([]*gen.File, error) {
		return nil, gen.NewGenerationError(gen.TargetModel, "", "render", boom)
	})
	report, err := newCompiler(t, dir, compiler.WithGenerator(gen.TargetModel, failing)).Run(context.Background(), metricsSchema(t))
	require.NoError(t, err)
	assert.Equal(t, compiler.ExitTargetFailed, report.ExitCode())

	model := report.Result(gen.TargetModel)
	require.Len(t, model.Errors, 1)
	assert.ErrorIs(t, model.Errors[0], boom)
	assert.True(t, gen.IsGenerationError(model.Errors[0]))
	assert.Empty(t, model.Files)
	for _, r := range report.Results {
		if r.Target != gen.TargetModel {
			assert.True(t, r.OK(), r.Target)
			assert.NotEmpty(t, r.Files, r.Target)
		}
	}
	assert.NotContains(t, tree(t, dir), "models/server_metrics.go")
}

func TestCanceledContext(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newCompiler(t, dir)
	report, err := c.Run(ctx, metricsSchema(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, compiler.Failed, c.State())
	assert.Equal(t, compiler.ExitValidationFailed, report.ExitCode())
	assert.Empty(t, tree(t, dir))
}

func TestRunOnce(t *testing.T) {
	c := newCompiler(t, t.TempDir(), compiler.WithValidateOnly(true))
	_, err := c.Run(context.Background(), metricsSchema(t))
	require.NoError(t, err)
	_, err = c.Run(context.Background(), metricsSchema(t))
	assert.ErrorIs(t, err, compiler.ErrAlreadyRun)
}

func TestLogging(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	report, err := newCompiler(t, t.TempDir(), compiler.WithLogger(logger)).Run(context.Background(), []byte(partial))
	require.NoError(t, err)

	var states []string
	targets := make(map[string]logrus.Level)
	for _, e := range hook.AllEntries() {
		assert.Equal(t, report.RunID, e.Data["run"])
		if s, ok := e.Data["state"]; ok {
			states = append(states, s.(compiler.State).String())
		}
		if target, ok := e.Data["target"].(string); ok && e.Level <= logrus.InfoLevel {
			assert.Contains(t, e.Data, "files")
			targets[target] = e.Level
		}
	}
	assert.Equal(t, []string{"validating", "generating", "reporting", "done"}, states)
	assert.Equal(t, logrus.WarnLevel, targets[gen.TargetSQL])
	assert.Equal(t, logrus.InfoLevel, targets[gen.TargetDocs])
}

func TestWriteSummary(t *testing.T) {
	t.Run("generated", func(t *testing.T) {
		report, err := newCompiler(t, t.TempDir()).Run(context.Background(), []byte(partial))
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, report.WriteSummary(&buf))
		out := buf.String()
		assert.Contains(t, out, "sql: failed (1 files)\n")
		assert.Contains(t, out, "docs: ok (3 files)\n")
		assert.Contains(t, out, `! metricgen: unsupported type "JSONB" on events.payload for target sql`)
		assert.Contains(t, out, "for schema version 2.0.0.\n")
	})
	t.Run("violations", func(t *testing.T) {
		report, _ := newCompiler(t, t.TempDir()).Run(context.Background(), []byte(missingPK))
		var buf bytes.Buffer
		require.NoError(t, report.WriteSummary(&buf))
		assert.Contains(t, buf.String(), "Schema validation failed with 1 violation(s):\n  - hosts: ")
		assert.Contains(t, buf.String(), "    hint: mark exactly one field with primary_key: true\n")
	})
	t.Run("validate only", func(t *testing.T) {
		report, err := newCompiler(t, t.TempDir(), compiler.WithValidateOnly(true)).Run(context.Background(), metricsSchema(t))
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, report.WriteSummary(&buf))
		assert.Equal(t, "Schema version 1.0.0 is valid.\n", buf.String())
	})
}

func TestWriteSchemaSummary(t *testing.T) {
	doc, err := load.Load(metricsSchema(t))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, compiler.WriteSchemaSummary(&buf, doc))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Schema version: 1.0.0\n\nENTITY"))
	metrics := doc.Entity("server_metrics")
	assert.Regexp(t, `(?m)^server_metrics\s+server_metrics\s+line\s+`+strconv.Itoa(len(metrics.Fields))+`\s+`+strconv.Itoa(len(metrics.SourcedFields()))+`\s+`, out)
	assert.Regexp(t, `(?m)^top_users\s+top_users\s+rows\s+`, out)
	assert.Contains(t, out, "API endpoints: "+strconv.Itoa(len(doc.Endpoints))+"\n")
	assert.Contains(t, out, "  GET /api/metrics/{server_name}\n")
}
