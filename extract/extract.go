// Package extract implements the positional extraction rules that turn raw
// monitoring-script output into field values.
//
// A record is split on its delimiter (comma for line records, whitespace for
// row records) and each field reads the token at its index through a Rule:
//
//	tokens := extract.Split("x86_64,Ubuntu,1,4,2.5G/16G", extract.Comma)
//	used, _ := extract.Token(tokens, 4, extract.PartBeforeSlash())  // "2.5G"
//	total, _ := extract.Token(tokens, 4, extract.PartAfterSlash())  // "16G"
//
// A missing token is reported as ok == false, never as a panic. Generated
// parsers call Value, which maps a missing token to nil.
package extract

import "strings"

// Delimiter separates tokens in a record.
type Delimiter uint8

// Record delimiters.
const (
	Comma Delimiter = iota
	Whitespace
)

// String returns the delimiter name.
func (d Delimiter) String() string {
	if d == Whitespace {
		return "whitespace"
	}
	return "comma"
}

// Split splits a record into trimmed tokens. An empty record has no tokens.
func Split(line string, d Delimiter) []string {
	if d == Whitespace {
		return strings.Fields(line)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Token applies r to the token at index.
func Token(tokens []string, index int, r Rule) (string, bool) {
	if index < 0 || index >= len(tokens) {
		return "", false
	}
	return r.Apply(tokens[index])
}

// Extract splits line and applies r to the token at index.
func Extract(line string, d Delimiter, index int, r Rule) (string, bool) {
	return Token(Split(line, d), index, r)
}

// Value is Token returning nil instead of ok == false.
func Value(tokens []string, index int, r Rule) any {
	if v, ok := Token(tokens, index, r); ok {
		return v
	}
	return nil
}

// SplitRows returns the data rows of a multi-row output. The first
// headerLines non-blank lines are skipped, as are blank lines and
// "----" separator lines.
func SplitRows(output string, headerLines int) []string {
	var rows []string
	seen := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		seen++
		if seen <= headerLines || strings.Contains(line, "----") {
			continue
		}
		rows = append(rows, strings.TrimRight(line, "\r"))
	}
	return rows
}
