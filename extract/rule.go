package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownRule is returned by ParseRule for a rule name outside the closed set.
var ErrUnknownRule = errors.New("extract: unknown rule")

// Kind identifies one of the closed set of extraction rules.
type Kind uint8

// Extraction rule kinds.
const (
	KindRaw Kind = iota
	KindPartBeforeSlash
	KindPartAfterSlash
	KindCSVSplit
	KindStripPercent
)

var kindNames = [...]string{
	KindRaw:             "raw",
	KindPartBeforeSlash: "part_before_slash",
	KindPartAfterSlash:  "part_after_slash",
	KindCSVSplit:        "csv_split",
	KindStripPercent:    "strip_percent",
}

// String returns the schema name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Rule maps one raw token to a normalized value. The zero value is Raw.
type Rule struct {
	kind   Kind
	sub    int
	strict bool
}

// Raw returns the token unchanged (surrounding spaces trimmed).
func Raw() Rule { return Rule{kind: KindRaw} }

// PartBeforeSlash returns the part of "used/total" before the slash.
func PartBeforeSlash() Rule { return Rule{kind: KindPartBeforeSlash} }

// PartAfterSlash returns the part of "used/total" after the slash.
func PartAfterSlash() Rule { return Rule{kind: KindPartAfterSlash} }

// CSVSplit returns the k-th element of a comma separated token.
func CSVSplit(k int) Rule { return Rule{kind: KindCSVSplit, sub: k} }

// StripPercent removes a trailing percent sign.
func StripPercent() Rule { return Rule{kind: KindStripPercent} }

// Strict returns a copy of r that yields no value when a slash rule is
// applied to a token without a slash. Non-slash rules are unaffected.
func (r Rule) Strict() Rule {
	r.strict = true
	return r
}

// Kind returns the rule kind.
func (r Rule) Kind() Kind { return r.kind }

// SubIndex returns the element index of a CSVSplit rule.
func (r Rule) SubIndex() int { return r.sub }

// IsStrict reports whether Strict was applied.
func (r Rule) IsStrict() bool { return r.strict }

// IsSubExtraction reports whether the rule reads one part of a composite token.
func (r Rule) IsSubExtraction() bool {
	switch r.kind {
	case KindPartBeforeSlash, KindPartAfterSlash, KindCSVSplit:
		return true
	default:
		return false
	}
}

// Complements reports whether r and o read different parts of the same
// composite token, which is the only case where two fields may share an index.
func (r Rule) Complements(o Rule) bool {
	if !r.IsSubExtraction() || !o.IsSubExtraction() {
		return false
	}
	switch {
	case r.kind == KindCSVSplit && o.kind == KindCSVSplit:
		return r.sub != o.sub
	case r.kind == KindCSVSplit || o.kind == KindCSVSplit:
		return false
	default:
		return r.kind != o.kind
	}
}

// String returns the rule in schema notation, e.g. "csv_split(1)".
func (r Rule) String() string {
	if r.kind == KindCSVSplit {
		return fmt.Sprintf("%s(%d)", r.kind, r.sub)
	}
	return r.kind.String()
}

// Apply runs the rule on a single token.
func (r Rule) Apply(token string) (string, bool) {
	switch r.kind {
	case KindRaw:
		return strings.TrimSpace(token), true
	case KindPartBeforeSlash, KindPartAfterSlash:
		before, after, found := strings.Cut(token, "/")
		switch {
		case !found && r.strict:
			return "", false
		case !found:
			return strings.TrimSpace(token), true
		case r.kind == KindPartBeforeSlash:
			return strings.TrimSpace(before), true
		default:
			return strings.TrimSpace(after), true
		}
	case KindCSVSplit:
		parts := strings.Split(token, ",")
		if r.sub < 0 || r.sub >= len(parts) {
			return "", false
		}
		return strings.TrimSpace(parts[r.sub]), true
	case KindStripPercent:
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(token), "%")), true
	default:
		return "", false
	}
}

// ParseRule resolves a schema rule name. sub is the csv element index and
// must be set for csv_split only. The legacy "csv_split_<k>" spelling is
// accepted and carries its own index.
func ParseRule(name string, sub *int) (Rule, error) {
	if k, ok := strings.CutPrefix(name, "csv_split_"); ok {
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 {
			return Rule{}, fmt.Errorf("%w %q", ErrUnknownRule, name)
		}
		if sub != nil && *sub != n {
			return Rule{}, fmt.Errorf("extract: rule %q conflicts with sub_index %d", name, *sub)
		}
		return CSVSplit(n), nil
	}
	var r Rule
	switch name {
	case "", "raw":
		r = Raw()
	case "part_before_slash":
		r = PartBeforeSlash()
	case "part_after_slash":
		r = PartAfterSlash()
	case "strip_percent":
		r = StripPercent()
	case "csv_split":
		if sub == nil {
			return Rule{}, errors.New("extract: csv_split requires sub_index")
		}
		if *sub < 0 {
			return Rule{}, fmt.Errorf("extract: negative sub_index %d", *sub)
		}
		return CSVSplit(*sub), nil
	default:
		return Rule{}, fmt.Errorf("%w %q", ErrUnknownRule, name)
	}
	if sub != nil {
		return Rule{}, fmt.Errorf("extract: sub_index is only valid with csv_split, not %s", r.kind)
	}
	return r, nil
}
