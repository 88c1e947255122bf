// Package rules parses textual score/classification rules into ordered
// lookup tables and reclassifies grids through them. The grammar follows the
// recode-rule convention: records separated by commas or newlines, fields by
// colons, `min:max:score` with an optional fourth alternate score, and `*`
// for an unbounded side of a range. The first matching rule wins.
package rules

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Rule maps a half-open value range to a score. Ranges are inclusive on both
// bounds; Min or Max may be infinite when the source used `*`.
type Rule struct {
	Min      float64
	Max      float64
	Score    float64
	AltScore float64
	HasAlt   bool
}

// Contains reports whether v falls inside the rule's range.
func (r Rule) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Table is an ordered list of rules. Order is the input order: earlier,
// narrower rules are never overridden by later, broader ones.
type Table struct {
	rules []Rule
}

// Rules returns the rules in table order.
func (t *Table) Rules() []Rule { return t.rules }

// Len returns the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Match returns the first rule containing v.
func (t *Table) Match(v float64) (Rule, bool) {
	for _, r := range t.rules {
		if r.Contains(v) {
			return r, true
		}
	}
	return Rule{}, false
}

// ParseError reports a malformed rule record, with the offending token and
// the zero-based record index.
type ParseError struct {
	Record int
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rules: record %d: %s: %q", e.Record, e.Reason, e.Token)
}

// Source selects where rule text comes from: an inline string or a file
// path. Exactly one side is set.
type Source struct {
	Inline string
	Path   string
}

// Inline wraps literal rule text as a Source.
func Inline(text string) Source { return Source{Inline: text} }

// File wraps a rule file path as a Source.
func File(path string) Source { return Source{Path: path} }

// IsZero reports whether the source is empty.
func (s Source) IsZero() bool { return s.Inline == "" && s.Path == "" }

// Load resolves the source to a parsed table. Sources are parsed once at the
// boundary; stages only ever see a Table.
func Load(src Source) (*Table, error) {
	text := src.Inline
	if src.Path != "" {
		raw, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "rules: read %s", src.Path)
		}
		text = string(raw)
	}
	return Parse(text)
}

// Parse builds an ordered Table from rule text.
func Parse(text string) (*Table, error) {
	records := splitRecords(text)
	if len(records) == 0 {
		return nil, eris.New("rules: empty rule text")
	}

	table := &Table{rules: make([]Rule, 0, len(records))}
	for i, record := range records {
		rule, err := parseRecord(i, record)
		if err != nil {
			return nil, err
		}
		table.rules = append(table.rules, rule)
	}
	return table, nil
}

func splitRecords(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	records := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			records = append(records, r)
		}
	}
	return records
}

func parseRecord(index int, record string) (Rule, error) {
	fields := strings.Split(record, ":")
	if len(fields) < 3 || len(fields) > 4 {
		return Rule{}, &ParseError{Record: index, Token: record, Reason: "want 3 or 4 fields"}
	}

	min, err := parseBound(index, fields[0], math.Inf(-1))
	if err != nil {
		return Rule{}, err
	}
	max, err := parseBound(index, fields[1], math.Inf(1))
	if err != nil {
		return Rule{}, err
	}
	if min > max {
		return Rule{}, &ParseError{Record: index, Token: record, Reason: "min exceeds max"}
	}

	score, err := parseField(index, fields[2])
	if err != nil {
		return Rule{}, err
	}

	rule := Rule{Min: min, Max: max, Score: score}
	if len(fields) == 4 {
		alt, err := parseField(index, fields[3])
		if err != nil {
			return Rule{}, err
		}
		rule.AltScore = alt
		rule.HasAlt = true
	}
	return rule, nil
}

func parseBound(index int, field string, open float64) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "*" {
		return open, nil
	}
	return parseField(index, field)
}

func parseField(index int, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, &ParseError{Record: index, Token: field, Reason: "not a number"}
	}
	return v, nil
}
