package compiler

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/syssam/metricgen/compiler/load"
	"github.com/syssam/metricgen/schema"
)

// Exit codes reported by Report.ExitCode.
const (
	ExitOK               = 0
	ExitValidationFailed = 1
	ExitTargetFailed     = 2
)

// Report is the outcome of a compiler run.
type Report struct {
	RunID        uuid.UUID
	Version      string
	ValidateOnly bool
	// Doc is the validated document, nil when validation failed.
	Doc *schema.Document
	// Err is the error that stopped the run before generation.
	Err        error
	Violations []*load.Violation
	// Results holds one entry per selected target, in target order.
	Results []*Result
}

// Result is the outcome of one target.
type Result struct {
	Target string
	Files  []string
	Errors []error
}

// OK reports whether the target succeeded for every entity.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Result returns the result of the named target, or nil.
func (r *Report) Result(target string) *Result {
	for _, res := range r.Results {
		if res.Target == target {
			return res
		}
	}
	return nil
}

// Files returns every written path across targets.
func (r *Report) Files() []string {
	var files []string
	for _, res := range r.Results {
		files = append(files, res.Files...)
	}
	return files
}

// TargetErr joins the errors of every failed target.
func (r *Report) TargetErr() error {
	var errs []error
	for _, res := range r.Results {
		errs = append(errs, res.Errors...)
	}
	return errors.Join(errs...)
}

// ExitCode maps the report to a process exit status: 1 when the run
// stopped before generation, 2 when any target failed, 0 otherwise.
func (r *Report) ExitCode() int {
	if r.Err != nil || len(r.Violations) > 0 {
		return ExitValidationFailed
	}
	for _, res := range r.Results {
		if !res.OK() {
			return ExitTargetFailed
		}
	}
	return ExitOK
}

// WriteSummary prints the violations of a failed run, or the status and
// files of every target.
func (r *Report) WriteSummary(w io.Writer) error {
	var b strings.Builder
	switch {
	case len(r.Violations) > 0:
		fmt.Fprintf(&b, "Schema validation failed with %d violation(s):\n", len(r.Violations))
		for _, v := range r.Violations {
			fmt.Fprintf(&b, "  - %s: %s [%s]\n", v.Path, v.Message, v.Rule)
			if v.Hint != "" {
				fmt.Fprintf(&b, "    hint: %s\n", v.Hint)
			}
		}
	case r.Err != nil:
		fmt.Fprintf(&b, "Run failed: %v\n", r.Err)
	case r.ValidateOnly:
		fmt.Fprintf(&b, "Schema version %s is valid.\n", r.Version)
	default:
		for _, res := range r.Results {
			status := "ok"
			if !res.OK() {
				status = "failed"
			}
			fmt.Fprintf(&b, "%s: %s (%d files)\n", res.Target, status, len(res.Files))
			for _, f := range res.Files {
				fmt.Fprintf(&b, "  - %s\n", f)
			}
			for _, err := range res.Errors {
				fmt.Fprintf(&b, "  ! %v\n", err)
			}
		}
		fmt.Fprintf(&b, "Generated %d files for schema version %s.\n", len(r.Files()), r.Version)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSchemaSummary prints the version, per entity field counts and the
// endpoints of doc.
func WriteSchemaSummary(w io.Writer, doc *schema.Document) error {
	fmt.Fprintf(w, "Schema version: %s\n\n", doc.Version)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tTABLE\tRECORDS\tFIELDS\tEXTRACTED\tVALIDATED")
	for _, e := range doc.Entities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			e.Key, e.Table, e.Records, len(e.Fields), len(e.SourcedFields()), len(e.ValidatedFields()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nAPI endpoints: %d\n", len(doc.Endpoints))
	for _, ep := range doc.Endpoints {
		fmt.Fprintf(w, "  %s %s\n", ep.Method, ep.Path)
	}
	return nil
}
