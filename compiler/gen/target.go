package gen

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/syssam/metricgen/schema"
)

// Target names, in the order the orchestrator reports them.
const (
	TargetSQL        = "sql"
	TargetModel      = "model"
	TargetParser     = "parser"
	TargetValidator  = "validator"
	TargetClientType = "clienttype"
	TargetDocs       = "docs"
)

// Targets lists every target name.
var Targets = []string{TargetSQL, TargetModel, TargetParser, TargetValidator, TargetClientType, TargetDocs}

// File is one generated artifact.
type File struct {
	// Path is slash separated and relative to Config.OutDir.
	Path    string
	Content []byte
}

// Generator produces the artifacts of one target. Implementations are pure:
// they read the document and config and never touch the filesystem.
//
// On partial failure a generator returns the files it could render together
// with the joined errors of the entities it skipped.
type Generator interface {
	Generate(doc *schema.Document, cfg *Config) ([]*File, error)
}

// GenerateFunc adapts a function to the Generator interface.
type GenerateFunc func(doc *schema.Document, cfg *Config) ([]*File, error)

// Generate calls f(doc, cfg).
func (f GenerateFunc) Generate(doc *schema.Document, cfg *Config) ([]*File, error) {
	return f(doc, cfg)
}

// EachEntity calls fn for every entity in document order. A failing entity
// does not stop the walk; the failures are joined.
func EachEntity(doc *schema.Document, fn func(*schema.Entity) error) error {
	var errs []error
	for _, e := range doc.Entities {
		if err := fn(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HeaderText is the marker recognized by tools as generated code.
const HeaderText = "Code generated by metricgen. DO NOT EDIT."

const generatedAtPrefix = "Generated At: "

// HeaderLines returns the header of every artifact, without comment markers.
func HeaderLines(doc *schema.Document, cfg *Config) []string {
	lines := []string{HeaderText, "Schema Version: " + doc.Version}
	if !cfg.GeneratedAt.IsZero() {
		lines = append(lines, generatedAtPrefix+cfg.GeneratedAt.UTC().Format(time.RFC3339))
	}
	return lines
}

// Header renders HeaderLines with a line comment prefix such as "--" or "//".
func Header(prefix string, doc *schema.Document, cfg *Config) string {
	var b strings.Builder
	for _, l := range HeaderLines(doc, cfg) {
		b.WriteString(prefix)
		b.WriteString(" ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

// MarkdownHeader renders HeaderLines as an HTML comment.
func MarkdownHeader(doc *schema.Document, cfg *Config) string {
	return "<!--\n" + strings.Join(HeaderLines(doc, cfg), "\n") + "\n-->\n"
}

var generatedAtRE = regexp.MustCompile(`(?m)^.*` + generatedAtPrefix + `.*\n`)

// StripGeneratedAt removes the Generated At header line, leaving content
// that is identical across runs.
func StripGeneratedAt(content []byte) []byte {
	return generatedAtRE.ReplaceAll(content, nil)
}
