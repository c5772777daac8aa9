package cmd

import (
	"context"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/syssam/metricgen/compiler"
	"github.com/syssam/metricgen/compiler/gen"
)

func newGenerateCommand(vp *viper.Viper, logger *logrus.Logger) *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Validate a schema and generate artifacts",
		Long: `Generate validates the schema document and, when it is valid, runs the
selected targets in parallel. A failing target never stops the others.

Exit status is 0 on success, 1 when the schema is invalid (nothing is
written) and 2 when any target failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), vp, logger)
		},
	}

	flags := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	flags.StringP(keySchema, "s", defaultSchemaFile, "Path of the schema document")
	flags.StringSliceP(keyTarget, "t", append([]string(nil), gen.Targets...), "Targets to generate, any of: "+strings.Join(gen.Targets, ", "))
	flags.Bool(keyValidateOnly, false, "Validate the schema without generating")
	flags.Bool(keySummary, false, "Validate the schema and print a summary of its entities")
	flags.StringP(keyOut, "o", ".", "Directory artifacts are written under")
	flags.Bool(keyStrictSlash, false, "Generated parsers yield nothing for slash rules on tokens without a slash")
	flags.Bool(keyReproducible, false, "Omit the generation timestamp from artifact headers")
	flags.Int(keyWorkers, runtime.GOMAXPROCS(0), "Number of targets generated in parallel")
	flags.String(keyModelPackage, gen.DefaultModelPackage, "Package name of generated models")
	flags.String(keyParserPackage, gen.DefaultParserPackage, "Package name of generated parsers")
	flags.String(keyValidatorPackage, gen.DefaultValidatorPackage, "Package name of generated validators")
	flags.String(keyRuntimePath, gen.DefaultRuntimePath, "Import path prefix of the extract, coerce and validate packages")
	generateCmd.Flags().AddFlagSet(flags)
	vp.BindPFlags(flags)

	generateCmd.RegisterFlagCompletionFunc(keyTarget, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return gen.Targets, cobra.ShellCompDirectiveNoFileComp
	})
	return generateCmd
}

func runGenerate(ctx context.Context, out io.Writer, vp *viper.Viper, logger *logrus.Logger) error {
	cfg, err := gen.NewConfig(configOptions(vp)...)
	if err != nil {
		return err
	}
	schemaPath := vp.GetString(keySchema)
	summary := vp.GetBool(keySummary)
	c, err := compiler.New(cfg,
		compiler.WithLogger(logger.WithField("schema", schemaPath)),
		compiler.WithTargets(targets(vp)...),
		compiler.WithValidateOnly(summary || vp.GetBool(keyValidateOnly)),
	)
	if err != nil {
		return err
	}
	report, err := c.RunFile(ctx, schemaPath)
	if report == nil {
		return err
	}
	if summary && report.Doc != nil {
		err = compiler.WriteSchemaSummary(out, report.Doc)
	} else {
		err = report.WriteSummary(out)
	}
	if err != nil {
		return err
	}
	if code := report.ExitCode(); code != compiler.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

func configOptions(vp *viper.Viper) []gen.Option {
	opts := []gen.Option{
		gen.WithOutDir(vp.GetString(keyOut)),
		gen.WithStrictSlash(vp.GetBool(keyStrictSlash)),
		gen.WithWorkers(vp.GetInt(keyWorkers)),
		gen.WithModelPackage(vp.GetString(keyModelPackage)),
		gen.WithParserPackage(vp.GetString(keyParserPackage)),
		gen.WithValidatorPackage(vp.GetString(keyValidatorPackage)),
		gen.WithRuntimePath(vp.GetString(keyRuntimePath)),
	}
	if !vp.GetBool(keyReproducible) {
		opts = append(opts, gen.WithGeneratedAt(time.Now()))
	}
	return opts
}

// targets returns the selected target names. Env and config values may be
// a single comma separated string rather than a list.
func targets(vp *viper.Viper) []string {
	var names []string
	for _, v := range vp.GetStringSlice(keyTarget) {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
