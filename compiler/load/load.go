// Package load reads metrics schema documents and checks their invariants.
//
// Load never returns a partially valid document: either every invariant
// holds, or a *ValidationError lists every violation found in a single pass.
package load

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/metricgen/schema"
)

// Reserved top-level keys. Every other top-level key declares an entity.
const (
	keyVersion   = "version"
	keyGroups    = "metric_groups"
	keyEndpoints = "api_endpoints"
	keyFrontend  = "frontend"
)

type (
	rawGroup struct {
		ID          string `yaml:"id"`
		DisplayName string `yaml:"display_name"`
		Order       int    `yaml:"order"`
		Description string `yaml:"description"`
	}

	rawEntity struct {
		TableName   string     `yaml:"table_name"`
		Description string     `yaml:"description"`
		Records     string     `yaml:"records"`
		HeaderLines int        `yaml:"header_lines"`
		Fields      []rawField `yaml:"fields"`
	}

	rawField struct {
		Name          string            `yaml:"name"`
		Type          string            `yaml:"type"`
		Nullable      *bool             `yaml:"nullable"`
		Default       *string           `yaml:"default"`
		PrimaryKey    bool              `yaml:"primary_key"`
		Source        *rawSource        `yaml:"source"`
		Validation    *rawValidation    `yaml:"validation"`
		Group         string            `yaml:"group"`
		Description   string            `yaml:"description"`
		DisplayName   string            `yaml:"display_name"`
		Unit          string            `yaml:"unit"`
		Visualization *rawVisualization `yaml:"visualization"`
	}

	rawSource struct {
		Index    *int   `yaml:"index"`
		Rule     string `yaml:"rule"`
		SubIndex *int   `yaml:"sub_index"`
	}

	rawValidation struct {
		Kind      string   `yaml:"kind"`
		Min       *float64 `yaml:"min"`
		Max       *float64 `yaml:"max"`
		MaxLength *int     `yaml:"max_length"`
	}

	rawVisualization struct {
		Type       string `yaml:"type"`
		Thresholds *struct {
			Warning  *float64 `yaml:"warning"`
			Critical *float64 `yaml:"critical"`
		} `yaml:"thresholds"`
	}

	rawEndpoint struct {
		Path        string `yaml:"path"`
		Method      string `yaml:"method"`
		Description string `yaml:"description"`
		Response    string `yaml:"response"`
	}

	rawFrontend struct {
		RefreshInterval int      `yaml:"refresh_interval"`
		Theme           string   `yaml:"theme"`
		Cards           []string `yaml:"cards"`
	}

	// namedEntity is an entity with its top-level key, in document order.
	namedEntity struct {
		key string
		rawEntity
	}

	rawDocument struct {
		version   string
		groups    []rawGroup
		endpoints []rawEndpoint
		frontend  *rawFrontend
		entities  []namedEntity
	}
)

// LoadFile reads and loads the schema at path.
func LoadFile(path string) (*schema.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	doc, err := Load(src)
	switch e := err.(type) {
	case nil:
		return doc, nil
	case *LoadError:
		e.Path = path
	case *ValidationError:
		e.Path = path
	}
	return nil, err
}

// Load parses a schema document and checks every invariant. It returns a
// *LoadError for malformed YAML and a *ValidationError listing all
// violations otherwise.
func Load(src []byte) (*schema.Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, &LoadError{Err: err}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &LoadError{Err: errors.New("empty document")}
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, &LoadError{Line: top.Line, Err: errors.New("top level must be a mapping")}
	}
	c := &checker{}
	raw, err := c.decode(top)
	if err != nil {
		return nil, err
	}
	doc := c.build(raw)
	if len(c.violations) > 0 {
		return nil, &ValidationError{Violations: c.violations}
	}
	return doc, nil
}

// checker accumulates violations while a document is decoded and built.
type checker struct {
	violations []*Violation
}

func (c *checker) add(path, rule, hint, format string, args ...any) {
	c.violations = append(c.violations, &Violation{
		Path:    path,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
		Hint:    hint,
	})
}

// decode walks the top-level mapping in order, rejecting unknown and
// duplicate keys, and decodes each value into its raw form.
func (c *checker) decode(top *yaml.Node) (*rawDocument, error) {
	d := &rawDocument{}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(top.Content); i += 2 {
		k, v := top.Content[i], top.Content[i+1]
		key := k.Value
		if seen[key] {
			c.add(key, RuleDuplicateKey, "remove the repeated key", "key %q is defined more than once (line %d)", key, k.Line)
			continue
		}
		seen[key] = true
		var (
			target any
			typ    reflect.Type
		)
		switch key {
		case keyVersion:
			target = &d.version
		case keyGroups:
			target = &d.groups
		case keyEndpoints:
			target = &d.endpoints
		case keyFrontend:
			target = &d.frontend
		default:
			if v.Kind != yaml.MappingNode {
				c.add(key, RuleEntity, "an entity is a mapping with a fields list", "top-level key %q is not an entity mapping (line %d)", key, v.Line)
				continue
			}
			d.entities = append(d.entities, namedEntity{key: key})
			target = &d.entities[len(d.entities)-1].rawEntity
		}
		typ = reflect.TypeOf(target).Elem()
		c.checkKeys(v, typ, key)
		if err := v.Decode(target); err != nil {
			return nil, &LoadError{Line: v.Line, Err: fmt.Errorf("%s: %w", key, err)}
		}
	}
	return d, nil
}

// checkKeys reports mapping keys that have no matching yaml tag in t.
func (c *checker) checkKeys(n *yaml.Node, t reflect.Type, path string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch {
	case t.Kind() == reflect.Struct && n.Kind == yaml.MappingNode:
		fields := yamlFields(t)
		seen := make(map[string]bool)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i].Value, n.Content[i+1]
			p := path + "." + k
			if seen[k] {
				c.add(p, RuleDuplicateKey, "remove the repeated key", "key %q is defined more than once", k)
				continue
			}
			seen[k] = true
			ft, ok := fields[k]
			if !ok {
				c.add(p, RuleUnknownKey, "allowed keys: "+strings.Join(sortedKeys(fields), ", "), "unknown key %q", k)
				continue
			}
			c.checkKeys(v, ft, p)
		}
	case t.Kind() == reflect.Slice && n.Kind == yaml.SequenceNode:
		for i, item := range n.Content {
			c.checkKeys(item, t.Elem(), fmt.Sprintf("%s[%d]", path, i))
		}
	}
}

func yamlFields(t reflect.Type) map[string]reflect.Type {
	fields := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = f.Type
	}
	return fields
}

func sortedKeys(m map[string]reflect.Type) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// build converts the raw document and checks cross-cutting invariants.
func (c *checker) build(raw *rawDocument) *schema.Document {
	doc := &schema.Document{Version: strings.TrimSpace(raw.version)}
	if doc.Version == "" {
		c.add(keyVersion, RuleVersion, `add a top-level version, e.g. version: "1.0.0"`, "schema version is missing")
	}
	groups := make(map[string]bool)
	for i, g := range raw.groups {
		path := fmt.Sprintf("%s[%d]", keyGroups, i)
		switch {
		case g.ID == "":
			c.add(path, RuleRequiredName, "set id", "metric group has no id")
			continue
		case groups[g.ID]:
			c.add(path, RuleUniqueGroup, "rename one of the groups", "metric group id %q is declared more than once", g.ID)
			continue
		}
		groups[g.ID] = true
		doc.Groups = append(doc.Groups, &schema.MetricGroup{
			ID:          g.ID,
			DisplayName: g.DisplayName,
			Order:       g.Order,
			Description: g.Description,
		})
	}
	if len(raw.entities) == 0 {
		c.add("", RuleEntity, "declare at least one entity with a fields list", "schema declares no entities")
	}
	tables := make(map[string]string)
	for _, re := range raw.entities {
		e := c.entity(re, groups)
		if prev, ok := tables[e.Table]; ok {
			c.add(re.key, RuleUniqueTable, "set a distinct table_name", "table %q is already used by entity %q", e.Table, prev)
		} else {
			tables[e.Table] = re.key
		}
		doc.Entities = append(doc.Entities, e)
	}
	c.identifiers(doc)
	for i, ep := range raw.endpoints {
		path := fmt.Sprintf("%s[%d]", keyEndpoints, i)
		if !strings.HasPrefix(ep.Path, "/") {
			c.add(path, RuleEndpoint, `paths start with "/"`, "endpoint path %q is not absolute", ep.Path)
		}
		method := strings.ToUpper(ep.Method)
		if method == "" {
			method = "GET"
		}
		if !slices.Contains(httpMethods, method) {
			c.add(path, RuleEndpoint, "use one of "+strings.Join(httpMethods, ", "), "unknown method %q", ep.Method)
		}
		doc.Endpoints = append(doc.Endpoints, &schema.Endpoint{
			Path:        ep.Path,
			Method:      method,
			Description: ep.Description,
			Response:    ep.Response,
		})
	}
	if f := raw.frontend; f != nil {
		if f.RefreshInterval < 0 {
			c.add(keyFrontend+".refresh_interval", RuleFrontend, "use seconds >= 0", "negative refresh interval %d", f.RefreshInterval)
		}
		doc.Frontend = &schema.FrontendConfig{
			RefreshInterval: f.RefreshInterval,
			Theme:           f.Theme,
			Cards:           f.Cards,
		}
	}
	return doc
}

var httpMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}
