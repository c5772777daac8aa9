// Package docs implements the documentation target: Markdown references
// for the database schema, the API endpoints and day-to-day usage.
//
// Documentation does not depend on the type mapping tables, so the target
// succeeds for every valid document.
package docs

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/compiler/gen/clienttype"
	"github.com/syssam/metricgen/compiler/gen/model"
	"github.com/syssam/metricgen/compiler/gen/parser"
	"github.com/syssam/metricgen/compiler/gen/sql"
	"github.com/syssam/metricgen/compiler/gen/validator"
	"github.com/syssam/metricgen/schema"
)

// Artifact paths, relative to the output directory.
const (
	DatabaseSchemaPath = "docs/DATABASE_SCHEMA.md"
	APIPath            = "docs/API_DOCUMENTATION.md"
	QuickReferencePath = "docs/QUICK_REFERENCE.md"
)

//go:embed template/*.tmpl
var templates embed.FS

var tmpl = template.Must(template.New("docs").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(templates, "template/*.tmpl"))

// Generator is the documentation target.
var Generator gen.Generator = gen.GenerateFunc(Generate)

var validationDocs = map[schema.ValidationKind]string{
	schema.ValidatePercentage: "Number between 0 and 100",
	schema.ValidateInteger:    "Whole number (supports min/max)",
	schema.ValidateFloat:      "Decimal number (supports min/max)",
	schema.ValidateString:     "Text (supports max_length)",
	schema.ValidateDatetime:   "Timestamp in RFC 3339 or a common date layout",
	schema.ValidateMemorySize: `Byte count or size such as "2.5G" (supports min/max in bytes)`,
}

type (
	entityDoc struct {
		Table       string
		Description string
		Records     string
		Fields      []fieldDoc
		Indexes     []string
	}
	fieldDoc struct {
		Name        string
		Type        string
		PrimaryKey  bool
		Nullable    bool
		Group       string
		Description string
	}
	groupDoc struct {
		Title       string
		Description string
		Fields      []groupField
	}
	groupField struct {
		Title         string
		Entity        string
		Name          string
		Unit          string
		Visualization string
	}
	validationDoc struct {
		Name        string
		Description string
	}
)

// Generate renders the three documentation files.
func Generate(doc *schema.Document, cfg *gen.Config) ([]*gen.File, error) {
	header := gen.MarkdownHeader(doc, cfg)
	pages := []struct {
		path, name string
		data       any
	}{
		{DatabaseSchemaPath, "database_schema.tmpl", databaseSchema(doc, header)},
		{APIPath, "api_documentation.tmpl", map[string]any{
			"Header":    header,
			"Version":   doc.Version,
			"Endpoints": doc.Endpoints,
		}},
		{QuickReferencePath, "quick_reference.tmpl", quickReference(doc, cfg, header)},
	}
	files := make([]*gen.File, 0, len(pages))
	for _, p := range pages {
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, p.name, p.data); err != nil {
			return files, gen.NewGenerationError(gen.TargetDocs, p.path, "render documentation", err)
		}
		files = append(files, &gen.File{Path: p.path, Content: buf.Bytes()})
	}
	return files, nil
}

func databaseSchema(doc *schema.Document, header string) map[string]any {
	// A Caser keeps state and is not shared across runs.
	title := cases.Title(language.English)
	entities := make([]entityDoc, 0, len(doc.Entities))
	for _, e := range doc.Entities {
		ed := entityDoc{Table: e.Table, Description: e.Description, Records: e.Records.String()}
		for _, f := range e.Fields {
			ed.Fields = append(ed.Fields, fieldDoc{
				Name:        f.Name,
				Type:        strings.ToUpper(f.Type.String()),
				PrimaryKey:  f.PrimaryKey,
				Nullable:    f.Nullable,
				Group:       f.Group,
				Description: f.Description,
			})
		}
		for _, name := range sql.Indexes(e) {
			ed.Indexes = append(ed.Indexes, sql.IndexName(e, name))
		}
		entities = append(entities, ed)
	}
	groups := make([]groupDoc, 0, len(doc.Groups))
	for _, g := range doc.OrderedGroups() {
		gd := groupDoc{Title: g.DisplayName, Description: g.Description}
		if gd.Title == "" {
			gd.Title = title.String(strings.ReplaceAll(g.ID, "_", " "))
		}
		for _, e := range doc.Entities {
			for _, f := range e.Fields {
				if f.Group != g.ID {
					continue
				}
				gf := groupField{Title: gen.DisplayName(f.Name, f.DisplayName), Entity: e.Table, Name: f.Name, Unit: f.Unit}
				if f.Visualization != nil {
					gf.Visualization = title.String(strings.ReplaceAll(f.Visualization.Type.String(), "_", " "))
				}
				gd.Fields = append(gd.Fields, gf)
			}
		}
		groups = append(groups, gd)
	}
	return map[string]any{
		"Header":   header,
		"Version":  doc.Version,
		"Entities": entities,
		"Groups":   groups,
	}
}

func quickReference(doc *schema.Document, cfg *gen.Config, header string) map[string]any {
	validations := make([]validationDoc, 0, len(schema.ValidationKinds))
	for _, k := range schema.ValidationKinds {
		validations = append(validations, validationDoc{Name: k.String(), Description: validationDocs[k]})
	}
	return map[string]any{
		"Header":      header,
		"Version":     doc.Version,
		"Migration":   sql.Path,
		"StrictSlash": cfg.StrictSlash,
		"Validations": validations,
		"Files":       Files(doc, cfg),
		"Frontend":    doc.Frontend,
	}
}

// Files lists every artifact a full run writes for doc, in target order.
func Files(doc *schema.Document, cfg *gen.Config) []string {
	files := []string{sql.Path}
	for _, path := range []func(*gen.Config, *schema.Entity) string{model.Path, parser.Path, validator.Path} {
		for _, e := range doc.Entities {
			files = append(files, path(cfg, e))
		}
	}
	return append(files, clienttype.Path, DatabaseSchemaPath, APIPath, QuickReferencePath)
}
