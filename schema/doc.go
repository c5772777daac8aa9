// Package schema holds the in-memory model of a metrics schema document.
//
// A Document is produced by compiler/load and is read-only afterwards. Every
// generator walks the same Document in the same order: entities in document
// order, then fields in declared order.
//
//	version: "1.0.0"
//	metric_groups:
//	  - id: memory
//	    display_name: Memory
//	    order: 2
//	server_metrics:
//	  table_name: server_metrics
//	  fields:
//	    - name: id
//	      type: SERIAL
//	      primary_key: true
//	    - name: ram_used
//	      type: VARCHAR(20)
//	      source: {index: 4, rule: part_before_slash}
//	      validation: {kind: memory_size}
//	      group: memory
//
// # Storage Types
//
// Field types form a closed set (serial, integer, varchar(n), decimal(p,s),
// timestamp, text, boolean). A well-formed identifier outside that set
// loads as KindOther so generators can report it per target.
//
// # Extraction
//
// A field with a Source is filled from raw monitoring-script output by the
// rule engine in package extract. Entities declare whether records are
// single comma-delimited lines or whitespace-delimited rows.
package schema
