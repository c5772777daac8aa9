// Package validator implements the validator target: one Go file per
// entity with a function per validated field and one checking a whole
// record.
package validator

import (
	"path"
	"strconv"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/schema"
)

// Generator is the validator target.
var Generator gen.Generator = gen.GenerateFunc(Generate)

// Path returns the artifact path of the validators of e.
func Path(cfg *gen.Config, e *schema.Entity) string {
	return path.Join(cfg.ValidatorPackage, e.Table+".go")
}

// kinds maps a validation kind to its runtime function and result type.
var kinds = map[schema.ValidationKind]struct {
	fn     string
	result gen.GoKind
}{
	schema.ValidatePercentage: {"Percentage", gen.GoFloat64},
	schema.ValidateInteger:    {"Integer", gen.GoInt64},
	schema.ValidateFloat:      {"Float", gen.GoFloat64},
	schema.ValidateString:     {"String", gen.GoString},
	schema.ValidateDatetime:   {"Datetime", gen.GoTime},
	schema.ValidateMemorySize: {"MemorySize", gen.GoInt64},
}

// FuncName returns the name of the validator of field f in e.
func FuncName(e *schema.Entity, f *schema.Field) string {
	return gen.ValidatorName(e, f)
}

// Generate renders one validator file per entity. Entities with a storage
// type missing from the Go mapping are skipped and reported in the returned
// error.
func Generate(doc *schema.Document, cfg *gen.Config) ([]*gen.File, error) {
	var files []*gen.File
	err := gen.EachEntity(doc, func(e *schema.Entity) error {
		if err := gen.CheckEntity(e, func(f *schema.Field) error {
			_, err := gen.GoTypeOf(gen.TargetValidator, e, f)
			return err
		}); err != nil {
			return err
		}
		f := gen.NewFile(cfg.ValidatorPackage, doc, cfg)
		genEntity(f, cfg.RuntimePkg("validate"), e)
		out, err := gen.RenderFile(Path(cfg, e), f)
		if err != nil {
			return gen.NewGenerationError(gen.TargetValidator, Path(cfg, e), "render validators", err)
		}
		files = append(files, out)
		return nil
	})
	return files, err
}

func genEntity(f *jen.File, pkg string, e *schema.Entity) {
	fields := e.ValidatedFields()
	for _, fd := range fields {
		genField(f, pkg, e, fd)
	}

	name := "Validate" + gen.Pascal(e.Key)
	f.Commentf("%s runs the validator of every field present in record and", name)
	f.Comment("joins the failures. Unset optional values are skipped.")
	f.Func().Id(name).Params(jen.Id("record").Map(jen.String()).Any()).Error().BlockFunc(func(g *jen.Group) {
		if len(fields) == 0 {
			g.Return(jen.Nil())
			return
		}
		g.Var().Id("errs").Index().Error()
		for _, fd := range fields {
			present := jen.Id("ok")
			if fd.Optional() {
				present = jen.Id("ok").Op("&&").Id("v").Op("!=").Nil()
			}
			g.If(jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("record").Index(jen.Lit(fd.Name)), present).Block(
				jen.If(jen.List(jen.Id("_"), jen.Err()).Op(":=").Id(FuncName(e, fd)).Call(jen.Id("v")), jen.Err().Op("!=").Nil()).Block(
					jen.Id("errs").Op("=").Append(jen.Id("errs"), jen.Err()),
				),
			)
		}
		g.Return(jen.Qual("errors", "Join").Call(jen.Id("errs").Op("...")))
	})
}

// genField renders the validator of one field:
//
//	func ValidateServerMetricsPhysicalCPUs(value any, opts ...validate.Option) (int64, error) {
//		return validate.Integer(value, append([]validate.Option{validate.Field("physical_cpus"), validate.Min(0), validate.Max(256)}, opts...)...)
//	}
func genField(f *jen.File, pkg string, e *schema.Entity, fd *schema.Field) {
	v := fd.Validation
	k := kinds[v.Kind]
	defaults := []jen.Code{jen.Qual(pkg, "Field").Call(jen.Lit(fd.Name))}
	if v.Min != nil {
		defaults = append(defaults, jen.Qual(pkg, "Min").Call(jen.Lit(*v.Min)))
	}
	if v.Max != nil {
		defaults = append(defaults, jen.Qual(pkg, "Max").Call(jen.Lit(*v.Max)))
	}
	if v.MaxLength != nil {
		defaults = append(defaults, jen.Qual(pkg, "MaxLength").Call(jen.Lit(*v.MaxLength)))
	}

	name := FuncName(e, fd)
	f.Commentf("%s validates %s as %s%s.", name, fd.Name, article(v.Kind), describe(v))
	f.Comment("Out-of-bound values fail unless opts include validate.Clamp().")
	f.Func().Id(name).Params(
		jen.Id("value").Any(),
		jen.Id("opts").Op("...").Qual(pkg, "Option"),
	).Params(gen.BaseTypeCode(k.result), jen.Error()).Block(
		jen.Return(jen.Qual(pkg, k.fn).Call(
			jen.Id("value"),
			jen.Append(jen.Index().Qual(pkg, "Option").Values(defaults...), jen.Id("opts").Op("...")).Op("..."),
		)),
	)
}

func article(k schema.ValidationKind) string {
	switch k {
	case schema.ValidateInteger:
		return "an integer"
	case schema.ValidateMemorySize:
		return "a memory size"
	default:
		return "a " + k.String()
	}
}

func describe(v *schema.Validation) string {
	var s string
	if v.Min != nil {
		s += " >= " + strconv.FormatFloat(*v.Min, 'g', -1, 64)
	}
	if v.Max != nil {
		if s != "" {
			s += " and"
		}
		s += " <= " + strconv.FormatFloat(*v.Max, 'g', -1, 64)
	}
	if v.MaxLength != nil {
		s += " of at most " + strconv.Itoa(*v.MaxLength) + " characters"
	}
	return s
}
