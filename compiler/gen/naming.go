package gen

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// acronyms are kept upper-case in Go identifiers.
var acronyms = map[string]bool{
	"ACL": true, "API": true, "ASCII": true, "CPU": true, "CSS": true,
	"DNS": true, "EOF": true, "GB": true, "GPU": true, "GUID": true,
	"HTML": true, "HTTP": true, "HTTPS": true, "ID": true, "IO": true,
	"IP": true, "JSON": true, "KB": true, "MB": true, "OS": true,
	"RAM": true, "RPC": true, "SQL": true, "SSH": true, "TB": true,
	"TCP": true, "TLS": true, "TTL": true, "UDP": true, "UI": true,
	"URI": true, "URL": true, "UTF8": true, "UUID": true, "VNC": true,
	"XML": true,
}

// acronym reports the upper-case form of w when it is a known acronym or
// the plural of one ("cpus" becomes "CPUs").
func acronym(w string) (string, bool) {
	u := strings.ToUpper(w)
	if acronyms[u] {
		return u, true
	}
	if stem := strings.TrimSuffix(u, "S"); len(stem) > 1 && stem != u && acronyms[stem] {
		return stem + "s", true
	}
	return "", false
}

// Pascal converts a snake or kebab case name to a Go exported identifier,
// e.g. "ram_used" to "RAMUsed" and "cpu_load_1min" to "CPULoad1min".
func Pascal(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	var b strings.Builder
	for _, w := range words {
		if u, ok := acronym(w); ok {
			b.WriteString(u)
			continue
		}
		b.WriteString(inflect.Capitalize(w))
	}
	return b.String()
}

// Camel is Pascal with a lower-case first word, e.g. "user_id" to "userID".
func Camel(s string) string {
	p := Pascal(s)
	if p == "" {
		return ""
	}
	// Lower the whole leading acronym or the first letter.
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if first, ok := acronym(words[0]); ok {
		return strings.ToLower(first) + p[len(first):]
	}
	r := []rune(p)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// Title returns a human readable title for a field name, e.g. "ram_used" to
// "RAM Used". Known acronyms stay upper-case.
func Title(s string) string {
	// Humanize strips a trailing "_id" and cannot handle an empty result.
	if s == "" || s == "_id" {
		return ""
	}
	words := strings.Fields(inflect.Humanize(s))
	for i, w := range words {
		if u, ok := acronym(w); ok {
			words[i] = u
		} else {
			words[i] = inflect.Capitalize(w)
		}
	}
	return strings.Join(words, " ")
}

// DisplayName returns the explicit display name of a field or its title.
func DisplayName(name, display string) string {
	if display != "" {
		return display
	}
	return Title(name)
}
