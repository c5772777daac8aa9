package schema

import (
	"slices"
	"sort"

	"github.com/syssam/metricgen/extract"
)

// CurrentTimestamp is the default value rendered as the SQL function
// rather than as a literal.
const CurrentTimestamp = "CURRENT_TIMESTAMP"

// Document is a loaded and validated schema document.
type Document struct {
	Version   string
	Groups    []*MetricGroup
	Entities  []*Entity
	Endpoints []*Endpoint
	Frontend  *FrontendConfig
}

// Entity returns the entity with the given key, or nil.
func (d *Document) Entity(key string) *Entity {
	for _, e := range d.Entities {
		if e.Key == key {
			return e
		}
	}
	return nil
}

// Group returns the metric group with the given id, or nil.
func (d *Document) Group(id string) *MetricGroup {
	for _, g := range d.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// OrderedGroups returns the groups sorted by Order. Ties keep document order.
func (d *Document) OrderedGroups() []*MetricGroup {
	groups := slices.Clone(d.Groups)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Order < groups[j].Order
	})
	return groups
}

// MetricGroup groups fields for display.
type MetricGroup struct {
	ID          string
	DisplayName string
	Order       int
	Description string
}

// RecordFormat describes how raw output for an entity is delimited.
type RecordFormat uint8

// Record formats.
const (
	// Line is a single comma-delimited line per record.
	Line RecordFormat = iota
	// Rows is a multi-row table with whitespace-delimited columns.
	Rows
)

// String returns the schema name of the format.
func (f RecordFormat) String() string {
	if f == Rows {
		return "rows"
	}
	return "line"
}

// Delimiter returns the token delimiter used by the format.
func (f RecordFormat) Delimiter() extract.Delimiter {
	if f == Rows {
		return extract.Whitespace
	}
	return extract.Comma
}

// Entity is one generated table and model pair.
type Entity struct {
	Key         string
	Table       string
	Description string
	Records     RecordFormat
	HeaderLines int
	Fields      []*Field
}

// PrimaryKey returns the primary key field. It is nil only for documents
// that did not pass validation.
func (e *Entity) PrimaryKey() *Field {
	for _, f := range e.Fields {
		if f.PrimaryKey {
			return f
		}
	}
	return nil
}

// Field returns the field with the given name, or nil.
func (e *Entity) Field(name string) *Field {
	for _, f := range e.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// SourcedFields returns the fields filled by the parser, in declared order.
func (e *Entity) SourcedFields() []*Field {
	return e.filter(func(f *Field) bool { return f.Source != nil })
}

// ValidatedFields returns the fields carrying a validation rule.
func (e *Entity) ValidatedFields() []*Field {
	return e.filter(func(f *Field) bool { return f.Validation != nil })
}

func (e *Entity) filter(keep func(*Field) bool) []*Field {
	var fields []*Field
	for _, f := range e.Fields {
		if keep(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Field is a single column of an entity.
type Field struct {
	Name          string
	Type          StorageType
	Nullable      bool
	NotNull       bool // nullable: false written out, kept on primary keys
	Default       *string
	PrimaryKey    bool
	Source        *Extraction
	Validation    *Validation
	Group         string
	Description   string
	DisplayName   string
	Unit          string
	Visualization *Visualization
}

// Optional reports whether the field may be absent in a record.
func (f *Field) Optional() bool {
	return f.Nullable && !f.PrimaryKey
}

// HasThresholds reports whether the field declares visualization thresholds.
func (f *Field) HasThresholds() bool {
	return f.Visualization != nil && f.Visualization.Thresholds != nil
}

// Extraction locates a field value in a raw record.
type Extraction struct {
	Index    int
	Rule     extract.Rule
	SubIndex *int
}

// Endpoint describes an API endpoint serving generated models. It is used
// by documentation only.
type Endpoint struct {
	Path        string
	Method      string
	Description string
	Response    string
}

// FrontendConfig holds dashboard settings passed through to documentation.
type FrontendConfig struct {
	RefreshInterval int
	Theme           string
	Cards           []string
}
