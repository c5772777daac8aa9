// metricgen compiles a metrics schema document into SQL migrations, Go
// models, parsers and validators, TypeScript types and documentation.
package main

import (
	"os"

	"github.com/syssam/metricgen/cmd/metricgen/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
