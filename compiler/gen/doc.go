// Package gen holds what the metricgen targets share: configuration, the
// type mapping tables, naming helpers, artifact headers and file writing.
//
// # Architecture
//
// The pipeline follows this flow:
//
//	metrics_schema.yaml
//	        ↓
//	   load.Load (parse + invariants)
//	        ↓
//	   *schema.Document (read-only)
//	        ↓
//	   Generator per target (pure, returns []*File)
//	        ↓
//	   WriteFiles (orchestrator only)
//
// Targets live in subpackages: sql, model, parser, validator, clienttype
// and docs. Each exports a Generate function satisfying GenerateFunc.
//
// # Error Handling
//
// A storage type missing from a mapping table yields an
// *UnsupportedTypeError for that entity only. Generators skip the entity,
// keep rendering the others and return the joined errors next to the files
// they did produce:
//
//	files, err := sql.Generate(doc, cfg)
//	if errors.Is(err, gen.ErrUnsupportedType) {
//	    // files still holds every valid entity
//	}
//
// # Configuration
//
// Config is built with functional options:
//
//	cfg, err := gen.NewConfig(
//	    gen.WithOutDir("generated"),
//	    gen.WithGeneratedAt(time.Now()),
//	    gen.WithStrictSlash(true),
//	)
package gen
