// Package parser implements the parser target: one Go file per entity
// turning raw monitoring-script output into records keyed by field name.
//
// Only fields with a source are extracted. Values are left as strings; the
// generated models convert them with FromMap.
package parser

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"text/template"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/extract"
	"github.com/syssam/metricgen/schema"
)

//go:embed template/parser.tmpl
var templates embed.FS

var tmpl = template.Must(template.New("parser.tmpl").ParseFS(templates, "template/parser.tmpl"))

// Generator is the parser target.
var Generator gen.Generator = gen.GenerateFunc(Generate)

// Path returns the artifact path of the parser of e.
func Path(cfg *gen.Config, e *schema.Entity) string {
	return path.Join(cfg.ParserPackage, e.Table+".go")
}

type (
	fileData struct {
		Header  string
		Package string
		Extract string
		Entity  entityData
	}
	entityData struct {
		Name        string
		Table       string
		Record      string
		Arg         string
		Delimiter   string
		Rows        bool
		HeaderLines int
		Fields      []fieldData
	}
	fieldData struct {
		Name  string
		Index int
		Rule  string
	}
)

// Generate renders one parser file per entity. Entities the models cannot
// represent are skipped, since their records would have no consumer.
func Generate(doc *schema.Document, cfg *gen.Config) ([]*gen.File, error) {
	var files []*gen.File
	err := gen.EachEntity(doc, func(e *schema.Entity) error {
		if err := gen.CheckEntity(e, func(f *schema.Field) error {
			_, err := gen.GoTypeOf(gen.TargetParser, e, f)
			return err
		}); err != nil {
			return err
		}
		file, err := render(doc, cfg, e)
		if err != nil {
			return gen.NewGenerationError(gen.TargetParser, Path(cfg, e), "render parser", err)
		}
		files = append(files, file)
		return nil
	})
	return files, err
}

func render(doc *schema.Document, cfg *gen.Config, e *schema.Entity) (*gen.File, error) {
	data := fileData{
		Header:  gen.Header("//", doc, cfg),
		Package: cfg.ParserPackage,
		Extract: cfg.RuntimePkg("extract"),
		Entity: entityData{
			Name:        gen.Pascal(e.Key),
			Table:       e.Table,
			Record:      "line",
			Arg:         "line",
			Delimiter:   "extract.Comma",
			Rows:        e.Records == schema.Rows,
			HeaderLines: e.HeaderLines,
		},
	}
	if e.Records == schema.Rows {
		data.Entity.Record, data.Entity.Arg, data.Entity.Delimiter = "row", "row", "extract.Whitespace"
	}
	for _, f := range e.SourcedFields() {
		data.Entity.Fields = append(data.Entity.Fields, fieldData{
			Name:  f.Name,
			Index: f.Source.Index,
			Rule:  RuleExpr(f.Source.Rule, cfg.StrictSlash),
		})
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	p := Path(cfg, e)
	src, err := gen.FormatGo(p, buf.Bytes())
	if err != nil {
		return nil, err
	}
	return &gen.File{Path: p, Content: src}, nil
}

// RuleExpr returns the Go expression constructing r. Slash rules are made
// strict when strict is set.
func RuleExpr(r extract.Rule, strict bool) string {
	var expr string
	switch r.Kind() {
	case extract.KindPartBeforeSlash:
		expr = "extract.PartBeforeSlash()"
	case extract.KindPartAfterSlash:
		expr = "extract.PartAfterSlash()"
	case extract.KindCSVSplit:
		return fmt.Sprintf("extract.CSVSplit(%d)", r.SubIndex())
	case extract.KindStripPercent:
		return "extract.StripPercent()"
	default:
		return "extract.Raw()"
	}
	if strict || r.IsStrict() {
		expr += ".Strict()"
	}
	return expr
}
