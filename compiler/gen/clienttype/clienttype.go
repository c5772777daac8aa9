// Package clienttype implements the client type target: TypeScript
// interfaces mirroring the generated models, plus the API response
// envelope shared by every endpoint.
package clienttype

import (
	"bytes"
	"embed"
	"text/template"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/schema"
)

// Path is the artifact written by the target.
const Path = "clienttypes/types.ts"

//go:embed template/types.tmpl
var templates embed.FS

var tmpl = template.Must(template.New("types.tmpl").ParseFS(templates, "template/types.tmpl"))

// Generator is the client type target.
var Generator gen.Generator = gen.GenerateFunc(Generate)

type (
	entityData struct {
		Name        string
		Table       string
		Description string
		Fields      []fieldData
	}
	fieldData struct {
		Name        string
		Type        string
		Optional    bool
		Description string
	}
)

// Generate renders the type declarations. An entity with a storage type
// missing from the client mapping is left out and reported in the returned
// error; the envelope types are always emitted.
func Generate(doc *schema.Document, cfg *gen.Config) ([]*gen.File, error) {
	var entities []entityData
	err := gen.EachEntity(doc, func(e *schema.Entity) error {
		data := entityData{Name: gen.Pascal(e.Key), Table: e.Table, Description: e.Description}
		if err := gen.CheckEntity(e, func(f *schema.Field) error {
			typ, optional, err := gen.ClientType(e, f)
			if err != nil {
				return err
			}
			data.Fields = append(data.Fields, fieldData{Name: f.Name, Type: typ, Optional: optional, Description: f.Description})
			return nil
		}); err != nil {
			return err
		}
		entities = append(entities, data)
		return nil
	})
	var buf bytes.Buffer
	if terr := tmpl.Execute(&buf, struct {
		Header   string
		Entities []entityData
	}{gen.Header("//", doc, cfg), entities}); terr != nil {
		return nil, gen.NewGenerationError(gen.TargetClientType, Path, "render client types", terr)
	}
	return []*gen.File{{Path: Path, Content: buf.Bytes()}}, err
}
