package gen

import (
	"bytes"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/metricgen/schema"
)

// NewFile creates a Jennifer file in package pkg carrying the artifact header.
func NewFile(pkg string, doc *schema.Document, cfg *Config) *jen.File {
	f := jen.NewFile(pkg)
	for _, l := range HeaderLines(doc, cfg) {
		f.HeaderComment(l)
	}
	for _, name := range []string{"coerce", "extract", "validate"} {
		f.ImportName(cfg.RuntimePkg(name), name)
	}
	return f
}

// RenderFile renders a Jennifer file to an artifact at path.
func RenderFile(path string, f *jen.File) (*File, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return &File{Path: path, Content: buf.Bytes()}, nil
}

// BaseTypeCode returns the Jennifer code of k.
func BaseTypeCode(k GoKind) jen.Code {
	if k == GoTime {
		return jen.Qual("time", "Time")
	}
	return jen.Id(k.String())
}

// TypeCode returns the Jennifer code of t, a pointer when t is optional.
func TypeCode(t GoType) jen.Code {
	if t.Optional {
		return jen.Op("*").Add(BaseTypeCode(t.Kind))
	}
	return BaseTypeCode(t.Kind)
}
