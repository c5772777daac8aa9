// Package compiler runs a schema document through the loader and the
// selected targets, writing their artifacts and reporting the outcome.
//
//	cfg := gen.MustNewConfig(gen.WithOutDir("generated"))
//	c, err := compiler.New(cfg, compiler.WithTargets("sql", "model"))
//	if err != nil {
//		return err
//	}
//	report, err := c.RunFile(ctx, "metrics_schema.yaml")
//	...
//	os.Exit(report.ExitCode())
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/compiler/gen/clienttype"
	"github.com/syssam/metricgen/compiler/gen/docs"
	"github.com/syssam/metricgen/compiler/gen/model"
	"github.com/syssam/metricgen/compiler/gen/parser"
	"github.com/syssam/metricgen/compiler/gen/sql"
	"github.com/syssam/metricgen/compiler/gen/validator"
	"github.com/syssam/metricgen/compiler/load"
	"github.com/syssam/metricgen/schema"
)

// State is a stage of a compiler run.
type State int32

// Run states. A run moves from Idle to Validating, then either to Failed or
// through Generating and Reporting to Done.
const (
	Idle State = iota
	Validating
	Failed
	Generating
	Reporting
	Done
)

var stateNames = [...]string{
	Idle:       "idle",
	Validating: "validating",
	Failed:     "failed",
	Generating: "generating",
	Reporting:  "reporting",
	Done:       "done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ErrAlreadyRun is returned when Run is called twice on one Compiler.
var ErrAlreadyRun = errors.New("metricgen: compiler already run")

// Generators returns the built-in targets keyed by name.
func Generators() map[string]gen.Generator {
	return map[string]gen.Generator{
		gen.TargetSQL:        sql.Generator,
		gen.TargetModel:      model.Generator,
		gen.TargetParser:     parser.Generator,
		gen.TargetValidator:  validator.Generator,
		gen.TargetClientType: clienttype.Generator,
		gen.TargetDocs:       docs.Generator,
	}
}

// Compiler is a single-shot run of the schema compiler.
type Compiler struct {
	cfg          *gen.Config
	log          logrus.FieldLogger
	targets      []string
	generators   map[string]gen.Generator
	validateOnly bool
	state        atomic.Int32
}

// Option configures a Compiler.
type Option func(*Compiler) error

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Compiler) error {
		if log == nil {
			return gen.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.log = log
		return nil
	}
}

// WithTargets restricts the run to the named targets. Reports list them in
// the canonical target order regardless of the order given here.
func WithTargets(names ...string) Option {
	return func(c *Compiler) error {
		if len(names) == 0 {
			return gen.NewConfigError("Targets", nil, "at least one target is required")
		}
		selected := make(map[string]bool, len(names))
		for _, name := range names {
			if _, ok := c.generators[name]; !ok {
				return gen.NewConfigError("Targets", name, "unknown target")
			}
			selected[name] = true
		}
		c.targets = c.targets[:0]
		for _, name := range gen.Targets {
			if selected[name] {
				c.targets = append(c.targets, name)
			}
		}
		return nil
	}
}

// WithValidateOnly stops the run after validation.
func WithValidateOnly(only bool) Option {
	return func(c *Compiler) error {
		c.validateOnly = only
		return nil
	}
}

// WithGenerator replaces the generator of a built-in target.
func WithGenerator(target string, g gen.Generator) Option {
	return func(c *Compiler) error {
		if _, ok := c.generators[target]; !ok {
			return gen.NewConfigError("Generator", target, "unknown target")
		}
		if g == nil {
			return gen.NewConfigError("Generator", target, "generator cannot be nil")
		}
		c.generators[target] = g
		return nil
	}
}

// New returns a compiler for cfg. A nil cfg uses gen.NewConfig defaults.
func New(cfg *gen.Config, opts ...Option) (*Compiler, error) {
	if cfg == nil {
		var err error
		if cfg, err = gen.NewConfig(); err != nil {
			return nil, err
		}
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := &Compiler{
		cfg:        cfg,
		log:        logger,
		targets:    append([]string(nil), gen.Targets...),
		generators: Generators(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// State returns the current stage of the run.
func (c *Compiler) State() State {
	return State(c.state.Load())
}

func (c *Compiler) setState(log logrus.FieldLogger, s State) {
	c.state.Store(int32(s))
	log.WithField("state", s).Debug("Compiler state changed")
}

// Run loads and validates src, then generates the selected targets.
//
// The returned error is non-nil only when the run stops before fan-out:
// the schema is malformed or invalid, or ctx is done. Target failures are
// recorded in the report and never stop sibling targets.
func (c *Compiler) Run(ctx context.Context, src []byte) (*Report, error) {
	return c.run(ctx, func() (*schema.Document, error) { return load.Load(src) })
}

// RunFile is like Run but reads the schema from path.
func (c *Compiler) RunFile(ctx context.Context, path string) (*Report, error) {
	return c.run(ctx, func() (*schema.Document, error) { return load.LoadFile(path) })
}

func (c *Compiler) run(ctx context.Context, loadDoc func() (*schema.Document, error)) (*Report, error) {
	if !c.state.CompareAndSwap(int32(Idle), int32(Validating)) {
		return nil, ErrAlreadyRun
	}
	report := &Report{RunID: uuid.New(), ValidateOnly: c.validateOnly}
	log := c.log.WithField("run", report.RunID)
	log.WithField("state", Validating).Debug("Compiler state changed")

	doc, err := loadDoc()
	if err != nil {
		report.Err = err
		report.Violations = load.Violations(err)
		c.setState(log, Failed)
		log.WithError(err).Error("Schema validation failed")
		return report, err
	}
	report.Doc = doc
	report.Version = doc.Version
	log.WithFields(logrus.Fields{
		"version":  doc.Version,
		"entities": len(doc.Entities),
	}).Info("Schema validated")

	if c.validateOnly {
		c.setState(log, Reporting)
		c.setState(log, Done)
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		report.Err = err
		c.setState(log, Failed)
		return report, err
	}

	c.setState(log, Generating)
	report.Results = make([]*Result, len(c.targets))
	errg, _ := errgroup.WithContext(ctx)
	errg.SetLimit(max(c.cfg.Workers, 1))
	for i, target := range c.targets {
		errg.Go(func() error {
			// Each goroutine owns one slot; failures stay in the result.
			report.Results[i] = c.generate(log, doc, target)
			return nil
		})
	}
	_ = errg.Wait()

	c.setState(log, Reporting)
	for _, r := range report.Results {
		entry := log.WithFields(logrus.Fields{"target": r.Target, "files": len(r.Files)})
		if r.OK() {
			entry.Info("Target generated")
			continue
		}
		for _, err := range r.Errors {
			entry.WithError(err).Warn("Target failed")
		}
	}
	c.setState(log, Done)
	return report, nil
}

// generate runs one target and writes whatever files it produced, so the
// valid entities of a partially failing target still reach disk.
func (c *Compiler) generate(log logrus.FieldLogger, doc *schema.Document, target string) *Result {
	log = log.WithField("target", target)
	log.Debug("Generating target")
	res := &Result{Target: target}
	files, genErr := c.generators[target].Generate(doc, c.cfg)
	written, writeErr := gen.WriteFiles(target, c.cfg.OutDir, files)
	res.Files = written
	res.Errors = append(res.Errors, flatten(genErr)...)
	if writeErr != nil {
		res.Errors = append(res.Errors, writeErr)
	}
	return res
}

// flatten expands a joined error into its parts.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var errs []error
		for _, e := range joined.Unwrap() {
			errs = append(errs, flatten(e)...)
		}
		return errs
	}
	return []error{err}
}
