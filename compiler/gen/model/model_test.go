package model_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/compiler/gen/internal/gentest"
	"github.com/syssam/metricgen/compiler/gen/model"
)

// structFields returns the members of the named struct as name to type
// expression and json tag.
func structFields(t *testing.T, src []byte, name string) (types, tags map[string]string) {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", src, parser.ParseComments)
	require.NoError(t, err)
	types, tags = make(map[string]string), make(map[string]string)
	ast.Inspect(file, func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok || ts.Name.Name != name {
			return true
		}
		st := ts.Type.(*ast.StructType)
		for _, f := range st.Fields.List {
			var b strings.Builder
			writeExpr(&b, f.Type)
			types[f.Names[0].Name] = b.String()
			tag, err := strconv.Unquote(f.Tag.Value)
			require.NoError(t, err)
			tags[f.Names[0].Name] = reflect.StructTag(tag).Get("json")
		}
		return false
	})
	return types, tags
}

func writeExpr(b *strings.Builder, e ast.Expr) {
	switch x := e.(type) {
	case *ast.StarExpr:
		b.WriteString("*")
		writeExpr(b, x.X)
	case *ast.SelectorExpr:
		writeExpr(b, x.X)
		b.WriteString(".")
		b.WriteString(x.Sel.Name)
	case *ast.Ident:
		b.WriteString(x.Name)
	}
}

// toMapKeys returns the keys of the map literal returned by ToMap on the
// named type, in source order.
func toMapKeys(t *testing.T, src []byte, name string) []string {
	t.Helper()
	file, err := parser.ParseFile(token.NewFileSet(), "", src, 0)
	require.NoError(t, err)
	var keys []string
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name.Name != "ToMap" || fn.Recv == nil {
			continue
		}
		var recv strings.Builder
		writeExpr(&recv, fn.Recv.List[0].Type)
		if recv.String() != "*"+name {
			continue
		}
		lit := fn.Body.List[0].(*ast.ReturnStmt).Results[0].(*ast.CompositeLit)
		for _, elt := range lit.Elts {
			key, err := strconv.Unquote(elt.(*ast.KeyValueExpr).Key.(*ast.BasicLit).Value)
			require.NoError(t, err)
			keys = append(keys, key)
		}
	}
	return keys
}

func TestGenerate(t *testing.T) {
	doc := gentest.Metrics(t)
	cfg := gentest.Config(t)
	files, err := model.Generate(doc, cfg)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "models/server_metrics.go", files[0].Path)
	assert.Equal(t, "models/top_users.go", files[1].Path)

	src := files[0].Content
	out := string(src)
	assert.True(t, strings.HasPrefix(out, "// "+gen.HeaderText+"\n// Schema Version: 1.0.0\n\npackage models\n"))
	assert.Contains(t, out, `const ServerMetricsTable = "server_metrics"`)
	assert.Contains(t, out, "func (m *ServerMetrics) ToMap() map[string]any {")
	assert.Contains(t, out, "func (m *ServerMetrics) FromMap(values map[string]any) error {")
	assert.Contains(t, out, "func ServerMetricsFromMap(values map[string]any) (*ServerMetrics, error) {")
	assert.Contains(t, out, `"github.com/syssam/metricgen/coerce"`)
	assert.Regexp(t, `"ram_used":\s+coerce\.Value\(m\.RAMUsed\),`, out)
	assert.Regexp(t, `"timestamp":\s+coerce\.Plain\(m\.Timestamp\),`, out)
	assert.Contains(t, out, `x, err := coerce.Ptr(v, coerce.Int64)`)

	types, tags := structFields(t, src, "ServerMetrics")
	assert.Equal(t, "int64", types["ID"])
	assert.Equal(t, "string", types["ServerName"])
	assert.Equal(t, "time.Time", types["Timestamp"])
	assert.Equal(t, "*string", types["RAMUsed"])
	assert.Equal(t, "*int64", types["RAMPercentage"])
	assert.Equal(t, "*float64", types["DiskPercentage"])
	assert.Equal(t, "*float64", types["CPULoad1min"])
	assert.Equal(t, "ram_used", tags["RAMUsed"])

	e := doc.Entity("server_metrics")
	var columns []string
	for _, f := range e.Fields {
		columns = append(columns, f.Name)
	}
	assert.Equal(t, columns, toMapKeys(t, src, "ServerMetrics"))

	require.Len(t, types, len(e.Fields))
	for _, f := range e.Fields {
		assert.Equal(t, f.Name, tags[gen.Pascal(f.Name)])
		assert.Equal(t, f.Optional(), strings.HasPrefix(types[gen.Pascal(f.Name)], "*"), f.Name)
	}
}

func TestPackageOptions(t *testing.T) {
	cfg := gentest.Config(t, gen.WithModelPackage("entities"), gen.WithRuntimePath("example.com/rt"))
	files, err := model.Generate(gentest.Metrics(t), cfg)
	require.NoError(t, err)
	out := string(files[1].Content)
	assert.Equal(t, "entities/top_users.go", files[1].Path)
	assert.Contains(t, out, "package entities\n")
	assert.Contains(t, out, `"example.com/rt/coerce"`)
}

func TestDeterministic(t *testing.T) {
	doc := gentest.Metrics(t)
	stamp := gentest.Config(t, gen.WithGeneratedAt(time.Date(2025, 11, 5, 0, 11, 46, 0, time.UTC)))
	a, err := model.Generate(doc, stamp)
	require.NoError(t, err)
	b, err := model.Generate(doc, gentest.Config(t))
	require.NoError(t, err)
	require.Len(t, a, len(b))
	for i := range a {
		assert.Contains(t, string(a[i].Content), "// Generated At: 2025-11-05T00:11:46Z\n")
		assert.Equal(t, string(b[i].Content), string(gen.StripGeneratedAt(a[i].Content)))
	}
}

func TestUnsupportedEntitySkipped(t *testing.T) {
	files, err := model.Generate(gentest.Load(t, gentest.Partial), gentest.Config(t))
	require.Len(t, files, 1)
	assert.Equal(t, "models/hosts.go", files[0].Path)
	var typeErr *gen.UnsupportedTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, gen.TargetModel, typeErr.Target)
	assert.Equal(t, "events", typeErr.Entity)
}
