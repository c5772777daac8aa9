package parser_test

import (
	"fmt"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/compiler/gen/internal/gentest"
	genparser "github.com/syssam/metricgen/compiler/gen/parser"
	"github.com/syssam/metricgen/extract"
)

func TestGenerate(t *testing.T) {
	doc := gentest.Metrics(t)
	files, err := genparser.Generate(doc, gentest.Config(t))
	require.NoError(t, err)
	require.Len(t, files, 2)

	metrics := gentest.Find(t, files, "parsers/server_metrics.go")
	out := string(metrics.Content)
	assert.True(t, strings.HasPrefix(out, "// "+gen.HeaderText+"\n// Schema Version: 1.0.0\n\npackage parsers\n"))
	assert.Contains(t, out, `import "github.com/syssam/metricgen/extract"`)
	assert.Contains(t, out, "func ParseServerMetrics(line string) map[string]any {")
	assert.Contains(t, out, "tokens := extract.Split(line, extract.Comma)")
	assert.NotContains(t, out, "ParseServerMetricsOutput")

	_, err = parser.ParseFile(token.NewFileSet(), metrics.Path, metrics.Content, 0)
	require.NoError(t, err)

	t.Run("every sourced field", func(t *testing.T) {
		e := doc.Entity("server_metrics")
		entries := regexp.MustCompile(`"(\w+)":\s+extract\.Value\(tokens, (\d+), (.+)\),`).FindAllStringSubmatch(out, -1)
		require.Len(t, entries, len(e.SourcedFields()))
		for i, f := range e.SourcedFields() {
			assert.Equal(t, f.Name, entries[i][1])
			assert.Equal(t, fmt.Sprint(f.Source.Index), entries[i][2])
			assert.Equal(t, genparser.RuleExpr(f.Source.Rule, false), entries[i][3])
		}
		assert.NotContains(t, out, `"id":`)
		assert.NotContains(t, out, `"timestamp":`)
	})

	t.Run("rows", func(t *testing.T) {
		users := string(gentest.Find(t, files, "parsers/top_users.go").Content)
		assert.Contains(t, users, "func ParseTopUsers(row string) map[string]any {")
		assert.Contains(t, users, "tokens := extract.Split(row, extract.Whitespace)")
		assert.Contains(t, users, "func ParseTopUsersOutput(output string) []map[string]any {")
		assert.Contains(t, users, "rows := extract.SplitRows(output, 2)")
	})
}

func TestRuleExpr(t *testing.T) {
	tests := []struct {
		rule   extract.Rule
		strict bool
		want   string
	}{
		{extract.Raw(), false, "extract.Raw()"},
		{extract.Raw(), true, "extract.Raw()"},
		{extract.PartBeforeSlash(), false, "extract.PartBeforeSlash()"},
		{extract.PartAfterSlash(), true, "extract.PartAfterSlash().Strict()"},
		{extract.PartAfterSlash().Strict(), false, "extract.PartAfterSlash().Strict()"},
		{extract.CSVSplit(2), true, "extract.CSVSplit(2)"},
		{extract.StripPercent(), false, "extract.StripPercent()"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, genparser.RuleExpr(tt.rule, tt.strict))
		})
	}
}

func TestStrictSlash(t *testing.T) {
	files, err := genparser.Generate(gentest.Metrics(t), gentest.Config(t, gen.WithStrictSlash(true)))
	require.NoError(t, err)
	out := string(gentest.Find(t, files, "parsers/server_metrics.go").Content)
	assert.Regexp(t, `"ram_used":\s+extract\.Value\(tokens, 4, extract\.PartBeforeSlash\(\)\.Strict\(\)\),`, out)
	assert.Regexp(t, `"os":\s+extract\.Value\(tokens, 1, extract\.Raw\(\)\),`, out)
}

func TestNoSourcedFields(t *testing.T) {
	doc := gentest.Load(t, `version: "1"
notes:
  fields:
    - {name: id, type: SERIAL, primary_key: true}
    - {name: body, type: TEXT}
`)
	files, err := genparser.Generate(doc, gentest.Config(t, gen.WithParserPackage("ingest")))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "ingest/notes.go", files[0].Path)
	out := string(files[0].Content)
	assert.Contains(t, out, "return map[string]any{}")
	assert.NotContains(t, out, "import", "unused runtime import is removed")
}

func TestUnsupportedEntitySkipped(t *testing.T) {
	files, err := genparser.Generate(gentest.Load(t, gentest.Partial), gentest.Config(t))
	require.Len(t, files, 1)
	assert.Equal(t, "parsers/hosts.go", files[0].Path)
	assert.True(t, gen.IsUnsupportedTypeError(err))
}
