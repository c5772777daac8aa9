// Package cmd implements the metricgen command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is the tool version, set with -ldflags at build time.
var Version = "dev"

// Keys of the flags bound to viper. Each is also read from the
// environment as METRICGEN_<KEY> with dashes replaced by underscores.
const (
	keyConfig = "config" // string
	keyDebug  = "debug"  // bool

	keySchema           = "schema"            // string
	keyTarget           = "target"            // []string
	keyValidateOnly     = "validate-only"     // bool
	keySummary          = "summary"           // bool
	keyOut              = "out"               // string
	keyStrictSlash      = "strict-slash"      // bool
	keyReproducible     = "reproducible"      // bool
	keyWorkers          = "workers"           // int
	keyModelPackage     = "model-package"     // string
	keyParserPackage    = "parser-package"    // string
	keyValidatorPackage = "validator-package" // string
	keyRuntimePath      = "runtime-path"      // string
)

const (
	envPrefix         = "metricgen"
	defaultConfigFile = "metricgen.yaml"
	defaultSchemaFile = "metrics_schema.yaml"
)

// exitError carries a process exit status through cobra.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// New creates the metricgen root command.
func New(vp *viper.Viper, logger *logrus.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "metricgen",
		Short: "metricgen compiles a metrics schema into code and documentation",
		Long: `metricgen reads a declarative metrics schema and generates a SQL migration,
Go models, parsers and validators, TypeScript types and Markdown documentation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return initConfig(vp, logger)
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.String(keyConfig, "", "Optional config file (default "+defaultConfigFile+" when present)")
	flags.BoolP(keyDebug, "D", false, "Enable debug messages")
	vp.BindPFlags(flags)

	rootCmd.AddCommand(
		newGenerateCommand(vp, logger),
		newConfigCommand(vp),
		newVersionCommand(),
	)
	rootCmd.SetVersionTemplate("{{with .Name}}{{printf \"%s \" .}}{{end}}{{printf \"%s\" .Version}}\n")
	return rootCmd
}

func newViper() *viper.Viper {
	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv()
	return vp
}

func newLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logger
}

// initConfig loads .env into the environment, then the config file, then
// applies the log level. Flags win over env, which wins over the file.
func initConfig(vp *viper.Viper, logger *logrus.Logger) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	path := vp.GetString(keyConfig)
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		vp.SetConfigFile(path)
		if err := vp.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if vp.GetBool(keyDebug) {
		logger.SetLevel(logrus.DebugLevel)
	}
	if path != "" {
		logger.WithField("config", path).Debug("Loaded config file")
	}
	return nil
}

// Execute runs the command line with the process arguments and returns
// the exit status.
func Execute() int {
	return Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes args and returns the exit status: 0 on success, 1 on
// usage, load or validation errors and 2 when a target failed.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := New(newViper(), newLogger(stderr))
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.ExecuteContext(ctx)
	var exitErr *exitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.code
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
}
