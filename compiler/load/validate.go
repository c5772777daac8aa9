package load

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/extract"
	"github.com/syssam/metricgen/schema"
)

var identRE = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// entity converts one raw entity, checking entity-scoped invariants.
func (c *checker) entity(re namedEntity, groups map[string]bool) *schema.Entity {
	e := &schema.Entity{
		Key:         re.key,
		Table:       re.TableName,
		Description: re.Description,
		HeaderLines: re.HeaderLines,
	}
	if e.Table == "" {
		e.Table = re.key
	}
	if !identRE.MatchString(e.Table) {
		c.add(re.key, RuleRequiredName, "use lower_snake_case", "table name %q is not a valid identifier", e.Table)
	}
	switch re.Records {
	case "", "line":
		e.Records = schema.Line
	case "rows":
		e.Records = schema.Rows
	default:
		c.add(re.key+".records", RuleEntity, `use "line" or "rows"`, "unknown record format %q", re.Records)
	}
	if re.HeaderLines < 0 {
		c.add(re.key+".header_lines", RuleEntity, "use a count >= 0", "negative header_lines %d", re.HeaderLines)
	}
	if len(re.Fields) == 0 {
		c.add(re.key, RuleEntity, "add a fields list", "entity %q declares no fields", re.key)
		return e
	}

	names := make(map[string]bool)
	var pks []string
	for i, rf := range re.Fields {
		path := fmt.Sprintf("%s.fields[%d]", re.key, i)
		if rf.Name != "" {
			path = re.key + "." + rf.Name
		}
		f := c.field(path, rf, groups)
		if f.Name != "" {
			if names[f.Name] {
				c.add(path, RuleUniqueName, "rename one of the fields", "field %q is declared more than once", f.Name)
			}
			names[f.Name] = true
		}
		if f.PrimaryKey {
			pks = append(pks, path)
		}
		// Line tokens are themselves comma separated, so they hold no commas.
		if e.Records == schema.Line && f.Source != nil && f.Source.Rule.Kind() == extract.KindCSVSplit && f.Source.Rule.SubIndex() > 0 {
			c.add(path+".source.rule", RuleSource, "give each value its own index, or use records: rows",
				"%s never matches on a comma separated line record", f.Source.Rule)
		}
		e.Fields = append(e.Fields, f)
	}
	switch len(pks) {
	case 0:
		c.add(re.key, RulePrimaryKey, "mark exactly one field with primary_key: true", "entity %q has no primary key", re.key)
	case 1:
	default:
		c.add(re.key, RulePrimaryKey, "keep primary_key: true on a single field", "entity %q has %d primary keys (%s)", re.key, len(pks), strings.Join(pks, ", "))
	}
	c.indexCollisions(re.key, e.Fields)
	return e
}

// identifiers checks that the names generated code derives from entity keys
// and field names are valid and do not clash within a package or struct,
// e.g. fields disk_1 and disk1 both become Disk1.
func (c *checker) identifiers(doc *schema.Document) {
	declared := make(map[string]gen.Ident)
	reported := make(map[[2]string]bool)
	for _, id := range gen.Idents(doc) {
		if strings.HasSuffix(id.Path, ".") {
			continue
		}
		if !id.Valid() {
			if !reported[[2]string{id.Path}] {
				reported[[2]string{id.Path}] = true
				c.add(id.Path, RuleIdentifier, "start each word with a letter", "%q does not derive a valid identifier", id.Path[strings.LastIndex(id.Path, ".")+1:])
			}
			continue
		}
		key := id.Scope + " " + id.Name
		prev, ok := declared[key]
		if !ok {
			declared[key] = id
			continue
		}
		pair := [2]string{prev.Path, id.Path}
		if prev.Path == id.Path || reported[pair] {
			continue
		}
		reported[pair] = true
		c.add(id.Path, RuleIdentifier, "rename one of them", "%s identifier %s is already derived from %s", id.Scope, id.Name, prev.Path)
	}
}

// field converts one raw field, checking field-scoped invariants.
func (c *checker) field(path string, rf rawField, groups map[string]bool) *schema.Field {
	f := &schema.Field{
		Name:        rf.Name,
		Default:     rf.Default,
		PrimaryKey:  rf.PrimaryKey,
		Group:       rf.Group,
		Description: rf.Description,
		DisplayName: rf.DisplayName,
		Unit:        rf.Unit,
	}
	switch {
	case rf.Name == "":
		c.add(path, RuleRequiredName, "set name", "field has no name")
	case !identRE.MatchString(rf.Name):
		c.add(path, RuleFieldName, "use lower_snake_case", "field name %q is not a valid identifier", rf.Name)
	}

	if rf.Type == "" {
		c.add(path+".type", RuleStorageType, "set a type such as INTEGER or VARCHAR(255)", "field has no type")
	} else if st, err := schema.ParseStorageType(rf.Type); err != nil {
		c.add(path+".type", RuleStorageType, "supported types: serial, integer, varchar(n), decimal(p,s), timestamp, text, boolean", "%v", err)
	} else {
		f.Type = st
	}

	switch {
	case rf.PrimaryKey && rf.Nullable != nil && *rf.Nullable:
		c.add(path+".nullable", RulePrimaryKey, "remove nullable from the primary key", "primary key cannot be nullable")
	case rf.PrimaryKey:
		f.Nullable = false
	case rf.Nullable == nil:
		f.Nullable = true
	default:
		f.Nullable = *rf.Nullable
	}
	f.NotNull = rf.Nullable != nil && !*rf.Nullable

	if rf.Source != nil {
		f.Source = c.source(path+".source", rf.Source)
	}
	if rf.Validation != nil {
		f.Validation = c.validation(path+".validation", rf.Validation)
	}
	if rf.Group != "" && !groups[rf.Group] {
		c.add(path+".group", RuleGroupRef, "declare it under metric_groups or fix the spelling", "unknown group %q", rf.Group)
	}
	if rf.Visualization != nil {
		f.Visualization = c.visualization(path+".visualization", rf.Visualization)
	}
	return f
}

func (c *checker) source(path string, rs *rawSource) *schema.Extraction {
	ex := &schema.Extraction{SubIndex: rs.SubIndex}
	valid := true
	switch {
	case rs.Index == nil:
		c.add(path+".index", RuleSource, "set the delimiter index of the token", "source has no index")
		valid = false
	case *rs.Index < 0:
		c.add(path+".index", RuleSource, "indexes start at 0", "negative index %d", *rs.Index)
		valid = false
	default:
		ex.Index = *rs.Index
	}
	r, err := extract.ParseRule(rs.Rule, rs.SubIndex)
	if err != nil {
		c.add(path+".rule", RuleSource, "rules: raw, part_before_slash, part_after_slash, csv_split (with sub_index), strip_percent", "%v", err)
		valid = false
	}
	// Broken sources are dropped so they cannot cause index collisions.
	if !valid {
		return nil
	}
	ex.Rule = r
	if r.Kind() == extract.KindCSVSplit && ex.SubIndex == nil {
		sub := r.SubIndex()
		ex.SubIndex = &sub
	}
	return ex
}

func (c *checker) validation(path string, rv *rawValidation) *schema.Validation {
	v := &schema.Validation{Min: rv.Min, Max: rv.Max, MaxLength: rv.MaxLength}
	kind, err := schema.ParseValidationKind(rv.Kind)
	if err != nil {
		c.add(path+".kind", RuleValidation, "kinds: percentage, integer, float, string, datetime, memory_size", "%v", err)
		return v
	}
	v.Kind = kind
	if rv.Min != nil && rv.Max != nil && *rv.Min > *rv.Max {
		c.add(path, RuleBounds, "swap min and max", "min %v is greater than max %v", *rv.Min, *rv.Max)
	}
	if (rv.Min != nil || rv.Max != nil) && (kind == schema.ValidateString || kind == schema.ValidateDatetime) {
		c.add(path, RuleBounds, "use max_length for strings", "min/max do not apply to kind %s", kind)
	}
	if rv.MaxLength != nil {
		switch {
		case kind != schema.ValidateString:
			c.add(path+".max_length", RuleBounds, "max_length applies to kind string only", "max_length set on kind %s", kind)
		case *rv.MaxLength <= 0:
			c.add(path+".max_length", RuleBounds, "use a positive length", "max_length %d is not positive", *rv.MaxLength)
		}
	}
	return v
}

func (c *checker) visualization(path string, rv *rawVisualization) *schema.Visualization {
	v := &schema.Visualization{}
	typ, err := schema.ParseVisualizationType(rv.Type)
	if err != nil {
		c.add(path+".type", RuleVisualization, "types: progress_bar, line_chart, bar_chart, badge", "%v", err)
	}
	v.Type = typ
	if t := rv.Thresholds; t != nil {
		if t.Warning == nil || t.Critical == nil {
			c.add(path+".thresholds", RuleVisualization, "set both warning and critical", "incomplete thresholds")
			return v
		}
		v.Thresholds = &schema.Thresholds{Warning: *t.Warning, Critical: *t.Critical}
	}
	return v
}

// indexCollisions reports fields sharing a source index unless every rule at
// that index reads a distinct part of the same composite token.
func (c *checker) indexCollisions(key string, fields []*schema.Field) {
	byIndex := make(map[int][]*schema.Field)
	var order []int
	for _, f := range fields {
		if f.Source == nil {
			continue
		}
		idx := f.Source.Index
		if _, ok := byIndex[idx]; !ok {
			order = append(order, idx)
		}
		byIndex[idx] = append(byIndex[idx], f)
	}
	for _, idx := range order {
		shared := byIndex[idx]
		for j := 1; j < len(shared); j++ {
			for i := 0; i < j; i++ {
				a, b := shared[i], shared[j]
				if a.Source.Rule.Complements(b.Source.Rule) {
					continue
				}
				c.add(key+"."+b.Name+".source", RuleIndexCollision,
					"fields may share an index only with part_before_slash/part_after_slash or distinct csv_split sub_index values",
					"index %d is also read by %q (%s vs %s)", idx, a.Name, a.Source.Rule, b.Source.Rule)
				break
			}
		}
	}
}
