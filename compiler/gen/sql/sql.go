// Package sql implements the migration target. It renders one re-runnable
// SQL script creating every table and its lookup indexes:
//
//	BEGIN;
//
//	-- Server Metrics Table
//	CREATE TABLE IF NOT EXISTS server_metrics (
//	    id SERIAL PRIMARY KEY,
//	    server_name VARCHAR(20) NOT NULL,
//	    ...
//	);
//	CREATE INDEX IF NOT EXISTS idx_server_metrics_server_name ON server_metrics(server_name);
//
//	COMMIT;
//
// Every statement is guarded with IF NOT EXISTS so the script can be applied
// to a database that already holds the tables.
package sql

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/metricgen/compiler/gen"
	"github.com/syssam/metricgen/schema"
)

// Path is the migration file written by the target, relative to the
// output directory.
const Path = "migrations/schema.sql"

// indexed lists the columns indexed on every table that has them.
var indexed = []string{"server_name", "timestamp"}

// Generator is the migration target.
var Generator gen.Generator = gen.GenerateFunc(Generate)

// Generate renders the migration. Entities with a storage type missing from
// the SQL mapping are left out of the script and reported in the returned
// error.
func Generate(doc *schema.Document, cfg *gen.Config) ([]*gen.File, error) {
	var b strings.Builder
	b.WriteString(gen.Header("--", doc, cfg))
	b.WriteString("\nBEGIN;\n")
	err := gen.EachEntity(doc, func(e *schema.Entity) error {
		stmts, err := entity(e)
		if err != nil {
			return err
		}
		b.WriteString("\n")
		b.WriteString(stmts)
		return nil
	})
	b.WriteString("\nCOMMIT;\n")
	return []*gen.File{{Path: Path, Content: []byte(b.String())}}, err
}

// entity renders the table and index statements of e.
func entity(e *schema.Entity) (string, error) {
	columns := make([]string, 0, len(e.Fields))
	err := gen.CheckEntity(e, func(f *schema.Field) error {
		c, err := column(e, f)
		if err != nil {
			return err
		}
		columns = append(columns, c)
		return nil
	})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s Table\n", gen.Title(e.Key))
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", e.Table)
	b.WriteString(strings.Join(columns, ",\n"))
	b.WriteString("\n);\n")
	for _, name := range Indexes(e) {
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s ON %s(%s);\n", IndexName(e, name), e.Table, name)
	}
	return b.String(), nil
}

// column renders one column definition. Constraints follow the type in the
// order PRIMARY KEY, NOT NULL, DEFAULT. A primary key is implicitly not null
// and gets NOT NULL only when the schema says nullable: false.
func column(e *schema.Entity, f *schema.Field) (string, error) {
	typ, err := gen.SQLType(e, f)
	if err != nil {
		return "", err
	}
	parts := []string{"    " + f.Name, typ}
	if f.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if !f.Nullable && (!f.PrimaryKey || f.NotNull) {
		parts = append(parts, "NOT NULL")
	}
	if f.Default != nil {
		parts = append(parts, "DEFAULT", Literal(*f.Default))
	}
	return strings.Join(parts, " "), nil
}

// Literal renders a default value. CURRENT_TIMESTAMP is emitted as the SQL
// function, anything else as a quoted string literal.
func Literal(v string) string {
	if strings.EqualFold(v, schema.CurrentTimestamp) {
		return schema.CurrentTimestamp
	}
	return strings.TrimSpace(pq.QuoteLiteral(v))
}

// Indexes returns the indexed columns of e: server_name and timestamp when
// present, then every field with visualization thresholds, without
// duplicates.
func Indexes(e *schema.Entity) []string {
	var (
		names []string
		seen  = make(map[string]bool)
	)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, name := range indexed {
		if e.Field(name) != nil {
			add(name)
		}
	}
	for _, f := range e.Fields {
		if f.HasThresholds() {
			add(f.Name)
		}
	}
	return names
}

// IndexName returns the name of the index on column of e.
func IndexName(e *schema.Entity, column string) string {
	return "idx_" + e.Table + "_" + column
}
