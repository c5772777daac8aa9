package gen

import (
	"go/token"

	"github.com/syssam/metricgen/schema"
)

// Namespaces of the identifiers declared by generated code. Packages are
// distinct per target, so each target is its own namespace, and the members
// of a model struct share one namespace per entity.
const (
	ScopeModel      = "model"
	ScopeParser     = "parser"
	ScopeValidator  = "validator"
	ScopeClientType = "clienttype"
)

// Ident is an identifier declared by generated code.
type Ident struct {
	Scope string // one of the Scope constants, or "model <entity key>" for struct members
	Name  string
	Path  string // schema path deriving the identifier
}

// Valid reports whether the name is usable as a Go or TypeScript identifier.
func (i Ident) Valid() bool {
	return token.IsIdentifier(i.Name)
}

// ValidatorName returns the name of the generated validator of f in e.
func ValidatorName(e *schema.Entity, f *schema.Field) string {
	return "Validate" + Pascal(e.Key) + Pascal(f.Name)
}

// Idents lists the identifiers the targets derive from doc. Two entries with
// the same Scope and Name clash in generated code.
func Idents(doc *schema.Document) []Ident {
	var ids []Ident
	for _, e := range doc.Entities {
		name := Pascal(e.Key)
		members := ScopeModel + " " + e.Key
		ids = append(ids,
			Ident{Scope: ScopeModel, Name: name, Path: e.Key},
			Ident{Scope: ScopeModel, Name: name + "Table", Path: e.Key},
			Ident{Scope: ScopeModel, Name: name + "FromMap", Path: e.Key},
			Ident{Scope: members, Name: "ToMap", Path: e.Key},
			Ident{Scope: members, Name: "FromMap", Path: e.Key},
			Ident{Scope: ScopeParser, Name: "Parse" + name, Path: e.Key},
			Ident{Scope: ScopeValidator, Name: "Validate" + name, Path: e.Key},
			Ident{Scope: ScopeClientType, Name: name, Path: e.Key},
		)
		if e.Records == schema.Rows {
			ids = append(ids, Ident{Scope: ScopeParser, Name: "Parse" + name + "Output", Path: e.Key})
		}
		for _, f := range e.Fields {
			path := e.Key + "." + f.Name
			ids = append(ids, Ident{Scope: members, Name: Pascal(f.Name), Path: path})
			if f.Validation != nil {
				ids = append(ids, Ident{Scope: ScopeValidator, Name: ValidatorName(e, f), Path: path})
			}
		}
	}
	return ids
}
