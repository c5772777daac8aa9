// Package model implements the model target: one Go file per entity with a
// struct mirroring the table and map conversions used by the API layer.
package model

import (
	"path"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/schema"
)

// Generator is the model target.
var Generator gen.Generator = gen.GenerateFunc(Generate)

// Path returns the artifact path of the model of e.
func Path(cfg *gen.Config, e *schema.Entity) string {
	return path.Join(cfg.ModelPackage, e.Table+".go")
}

// Generate renders one model file per entity. Entities with a storage type
// missing from the Go mapping are skipped and reported in the returned error.
func Generate(doc *schema.Document, cfg *gen.Config) ([]*gen.File, error) {
	var files []*gen.File
	err := gen.EachEntity(doc, func(e *schema.Entity) error {
		types, err := fieldTypes(e)
		if err != nil {
			return err
		}
		f := gen.NewFile(cfg.ModelPackage, doc, cfg)
		genEntity(f, cfg, e, types)
		out, err := gen.RenderFile(Path(cfg, e), f)
		if err != nil {
			return gen.NewGenerationError(gen.TargetModel, Path(cfg, e), "render model", err)
		}
		files = append(files, out)
		return nil
	})
	return files, err
}

func fieldTypes(e *schema.Entity) (map[string]gen.GoType, error) {
	types := make(map[string]gen.GoType, len(e.Fields))
	err := gen.CheckEntity(e, func(f *schema.Field) error {
		t, err := gen.GoTypeOf(gen.TargetModel, e, f)
		if err != nil {
			return err
		}
		types[f.Name] = t
		return nil
	})
	return types, err
}

func genEntity(f *jen.File, cfg *gen.Config, e *schema.Entity, types map[string]gen.GoType) {
	name := gen.Pascal(e.Key)
	coerce := cfg.RuntimePkg("coerce")

	f.Commentf("%sTable is the table backing %s.", name, name)
	f.Const().Id(name + "Table").Op("=").Lit(e.Table)

	if e.Description != "" {
		f.Commentf("%s is a row of %s. %s", name, e.Table, e.Description)
	} else {
		f.Commentf("%s is a row of %s.", name, e.Table)
	}
	f.Type().Id(name).StructFunc(func(g *jen.Group) {
		for _, fd := range e.Fields {
			field := g.Id(gen.Pascal(fd.Name)).Add(gen.TypeCode(types[fd.Name])).Tag(map[string]string{"json": fd.Name})
			if fd.Description != "" {
				field.Comment(fd.Description)
			}
		}
	})

	f.Comment("ToMap returns the record keyed by column name. Times are RFC 3339")
	f.Comment("strings and unset optional values are nil.")
	f.Func().Params(jen.Id("m").Op("*").Id(name)).Id("ToMap").Params().Map(jen.String()).Any().Block(
		jen.Return(jen.Map(jen.String()).Any().ValuesFunc(func(g *jen.Group) {
			// Keys follow the column order of the table.
			for _, fd := range e.Fields {
				conv := "Plain"
				if types[fd.Name].Optional {
					conv = "Value"
				}
				g.Line().Lit(fd.Name).Op(":").Qual(coerce, conv).Call(jen.Id("m").Dot(gen.Pascal(fd.Name)))
			}
			g.Line()
		})),
	)

	f.Comment("FromMap sets the members present in values. Unknown keys are ignored")
	f.Comment("and conversion failures are joined.")
	f.Func().Params(jen.Id("m").Op("*").Id(name)).Id("FromMap").Params(
		jen.Id("values").Map(jen.String()).Any(),
	).Error().BlockFunc(func(g *jen.Group) {
		g.Var().Id("errs").Index().Error()
		for _, fd := range e.Fields {
			g.Add(fromMapField(coerce, fd, types[fd.Name]))
		}
		g.Return(jen.Qual("errors", "Join").Call(jen.Id("errs").Op("...")))
	})

	f.Commentf("%sFromMap builds a %s from a record.", name, name)
	f.Func().Id(name+"FromMap").Params(jen.Id("values").Map(jen.String()).Any()).Params(
		jen.Op("*").Id(name), jen.Error(),
	).Block(
		jen.Id("m").Op(":=").Op("&").Id(name).Values(),
		jen.If(jen.Err().Op(":=").Id("m").Dot("FromMap").Call(jen.Id("values")), jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Nil(), jen.Err()),
		),
		jen.Return(jen.Id("m"), jen.Nil()),
	)
}

// fromMapField renders the conversion of one member:
//
//	if v, ok := values["name"]; ok {
//		x, err := coerce.String(v)
//		if err != nil {
//			errs = append(errs, fmt.Errorf("name: %w", err))
//		} else {
//			m.Name = x
//		}
//	}
func fromMapField(coerce string, fd *schema.Field, t gen.GoType) jen.Code {
	conv := jen.Qual(coerce, t.Kind.CoerceFunc()).Call(jen.Id("v"))
	if t.Optional {
		conv = jen.Qual(coerce, "Ptr").Call(jen.Id("v"), jen.Qual(coerce, t.Kind.CoerceFunc()))
	}
	return jen.If(jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("values").Index(jen.Lit(fd.Name)), jen.Id("ok")).Block(
		jen.List(jen.Id("x"), jen.Err()).Op(":=").Add(conv),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Id("errs").Op("=").Append(jen.Id("errs"), jen.Qual("fmt", "Errorf").Call(jen.Lit(fd.Name+": %w"), jen.Err())),
		).Else().Block(
			jen.Id("m").Dot(gen.Pascal(fd.Name)).Op("=").Id("x"),
		),
	)
}
