// Package keywords holds keyword/value definitions and the stores that
// persist them between sessions.
package keywords

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidValue marks a keyword whose value is not an integer.
	ErrInvalidValue = errors.New("value must be an integer")
	// ErrMalformedRow marks a stored row that could not be read at all.
	ErrMalformedRow = errors.New("malformed keyword row")
)

// Entry is one keyword and its value per occurrence.
type Entry struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Value   int64  `json:"value" yaml:"value"`
}

// Spec is an ordered keyword set with no duplicate keywords.
type Spec []Entry

// Row is a keyword pair as entered or stored, before the value is parsed.
type Row struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Value   string `json:"value" yaml:"value"`
}

// Warning reports a row that was skipped without aborting the load.
type Warning struct {
	Row     int // 1-based position in the source, 0 when unknown
	Keyword string
	Value   string
	Err     error
}

func (w Warning) Error() string {
	switch {
	case errors.Is(w.Err, ErrInvalidValue):
		return fmt.Sprintf("invalid value for %q: %q is not an integer", w.Keyword, w.Value)
	case w.Row > 0:
		return fmt.Sprintf("row %d: %v", w.Row, w.Err)
	default:
		return w.Err.Error()
	}
}

func (w Warning) Unwrap() error { return w.Err }

// ParseRows converts raw rows into a Spec. Rows with an empty keyword or
// value are ignored. Rows whose value does not parse are reported as
// warnings and skipped. A repeated keyword keeps its first position and
// takes the last value.
func ParseRows(rows []Row) (Spec, []Warning) {
	var (
		spec     Spec
		warnings []Warning
		index    = make(map[string]int)
	)
	for i, r := range rows {
		kw := strings.TrimSpace(r.Keyword)
		raw := strings.TrimSpace(r.Value)
		if kw == "" || raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			warnings = append(warnings, Warning{Row: i + 1, Keyword: kw, Value: raw, Err: ErrInvalidValue})
			continue
		}
		if at, ok := index[kw]; ok {
			spec[at].Value = v
			continue
		}
		index[kw] = len(spec)
		spec = append(spec, Entry{Keyword: kw, Value: v})
	}
	return spec, warnings
}

// ParseAssignment parses "keyword=value". The keyword may itself contain
// '='; the value is taken after the last one.
func ParseAssignment(s string) (Entry, error) {
	i := strings.LastIndex(s, "=")
	if i < 0 {
		return Entry{}, fmt.Errorf("%q: expected keyword=value", s)
	}
	kw := strings.TrimSpace(s[:i])
	raw := strings.TrimSpace(s[i+1:])
	if kw == "" {
		return Entry{}, fmt.Errorf("%q: empty keyword", s)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Entry{}, Warning{Keyword: kw, Value: raw, Err: ErrInvalidValue}
	}
	return Entry{Keyword: kw, Value: v}, nil
}

// Clone returns an independent copy safe to hand to a running calculation.
func (s Spec) Clone() Spec {
	if s == nil {
		return nil
	}
	out := make(Spec, len(s))
	copy(out, s)
	return out
}

// Rows renders the spec back into storable rows.
func (s Spec) Rows() []Row {
	rows := make([]Row, len(s))
	for i, e := range s {
		rows[i] = Row{Keyword: e.Keyword, Value: strconv.FormatInt(e.Value, 10)}
	}
	return rows
}

func (s Spec) Keywords() []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.Keyword
	}
	return out
}

// Set adds or replaces an entry, keeping the position of an existing one.
func (s Spec) Set(e Entry) Spec {
	for i := range s {
		if s[i].Keyword == e.Keyword {
			s[i].Value = e.Value
			return s
		}
	}
	return append(s, e)
}

// Remove drops the named keyword and reports whether it was present.
func (s Spec) Remove(keyword string) (Spec, bool) {
	for i := range s {
		if s[i].Keyword == keyword {
			return append(s[:i:i], s[i+1:]...), true
		}
	}
	return s, false
}

// Table is a keyword set as stored, including rows that do not parse.
// Editing a Table and saving it keeps those rows, so a bad value stays in
// the store and keeps being reported instead of disappearing.
type Table []Row

func (t Table) Spec() (Spec, []Warning) { return ParseRows(t) }

// Set gives every row named e.Keyword the value of e, or appends a row.
func (t Table) Set(e Entry) Table {
	v := strconv.FormatInt(e.Value, 10)
	found := false
	for i := range t {
		if strings.TrimSpace(t[i].Keyword) == e.Keyword {
			t[i] = Row{Keyword: e.Keyword, Value: v}
			found = true
		}
	}
	if found {
		return t
	}
	return append(t, Row{Keyword: e.Keyword, Value: v})
}

// Remove drops every row named keyword and reports whether any was present.
func (t Table) Remove(keyword string) (Table, bool) {
	out := make(Table, 0, len(t))
	for _, r := range t {
		if strings.TrimSpace(r.Keyword) != keyword {
			out = append(out, r)
		}
	}
	return out, len(out) != len(t)
}
