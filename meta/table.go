// Package meta holds per-cell metadata as a copy-on-write table.
//
// A Table grows monotonically: With* returns a new table with one extra
// column and fails when the column already exists, so a stage can never
// silently overwrite what an earlier stage recorded.
package meta

import (
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/scflow/diag"
)

// Sentinel errors; all match diag.ErrInvalidInput.
var (
	// ErrColumnExists is returned when adding a column whose name is taken.
	ErrColumnExists = diag.NewSentinel("meta: column already exists")

	// ErrColumnNotFound is returned when a requested column is absent.
	ErrColumnNotFound = diag.NewSentinel("meta: column not found")

	// ErrLength is returned when a column length differs from the row count.
	ErrLength = diag.NewSentinel("meta: column length mismatch")

	// ErrBadID is returned for empty, duplicate or unknown cell identifiers.
	ErrBadID = diag.NewSentinel("meta: bad cell identifier")

	// ErrNonFinite is returned when a numeric column holds NaN or ±Inf.
	ErrNonFinite = diag.NewSentinel("meta: non-finite numeric value")
)

// Kind distinguishes numeric from categorical columns.
type Kind int

const (
	// Numeric columns hold float64 values.
	Numeric Kind = iota
	// Categorical columns hold string values.
	Categorical
)

// Column describes one column of the table.
type Column struct {
	Name string
	Kind Kind
}

// Table is an immutable set of columns keyed by cell identifier.
type Table struct {
	ids     []string
	index   map[string]int
	numeric map[string][]float64
	categ   map[string][]string
	order   []Column
}

// NewTable returns an empty table over the given cell identifiers.
// Errors: ErrBadID on an empty list, an empty or duplicate identifier.
func NewTable(ids []string) (*Table, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no rows: %w", ErrBadID)
	}
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("row %d: %w", i, ErrBadID)
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("duplicate %q: %w", id, ErrBadID)
		}
		index[id] = i
	}

	return &Table{
		ids:     append([]string(nil), ids...),
		index:   index,
		numeric: map[string][]float64{},
		categ:   map[string][]string{},
	}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.ids) }

// IDs returns a copy of the row identifiers.
func (t *Table) IDs() []string { return append([]string(nil), t.ids...) }

// Index returns the row of a cell identifier.
func (t *Table) Index(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, n := t.numeric[name]
	_, c := t.categ[name]

	return n || c
}

// Columns returns the columns in insertion order.
func (t *Table) Columns() []Column { return append([]Column(nil), t.order...) }

func (t *Table) clone() *Table {
	out := &Table{
		ids:     t.ids,
		index:   t.index,
		numeric: make(map[string][]float64, len(t.numeric)+1),
		categ:   make(map[string][]string, len(t.categ)+1),
		order:   append([]Column(nil), t.order...),
	}
	for k, v := range t.numeric {
		out.numeric[k] = v
	}
	for k, v := range t.categ {
		out.categ[k] = v
	}

	return out
}

func (t *Table) checkNew(name string, n int) error {
	if name == "" {
		return fmt.Errorf("empty column name: %w", diag.ErrInvalidInput)
	}
	if t.Has(name) {
		return fmt.Errorf("%q: %w", name, ErrColumnExists)
	}
	if n != len(t.ids) {
		return fmt.Errorf("%q has %d values for %d rows: %w", name, n, len(t.ids), ErrLength)
	}

	return nil
}

// WithNumeric returns a new table with an extra numeric column (values copied).
// Errors: ErrColumnExists, ErrLength, ErrNonFinite.
func (t *Table) WithNumeric(name string, values []float64) (*Table, error) {
	if err := t.checkNew(name, len(values)); err != nil {
		return nil, err
	}
	if i := diag.CheckFinite(values); i >= 0 {
		return nil, fmt.Errorf("%q row %d: %w", name, i, ErrNonFinite)
	}
	out := t.clone()
	out.numeric[name] = append([]float64(nil), values...)
	out.order = append(out.order, Column{Name: name, Kind: Numeric})

	return out, nil
}

// WithCategorical returns a new table with an extra categorical column.
// Errors: ErrColumnExists, ErrLength.
func (t *Table) WithCategorical(name string, values []string) (*Table, error) {
	if err := t.checkNew(name, len(values)); err != nil {
		return nil, err
	}
	out := t.clone()
	out.categ[name] = append([]string(nil), values...)
	out.order = append(out.order, Column{Name: name, Kind: Categorical})

	return out, nil
}

// Numeric returns a copy of a numeric column.
// Errors: ErrColumnNotFound.
func (t *Table) Numeric(name string) ([]float64, error) {
	v, ok := t.numeric[name]
	if !ok {
		return nil, fmt.Errorf("numeric %q: %w", name, ErrColumnNotFound)
	}

	return append([]float64(nil), v...), nil
}

// Categorical returns a copy of a categorical column.
// Errors: ErrColumnNotFound.
func (t *Table) Categorical(name string) ([]string, error) {
	v, ok := t.categ[name]
	if !ok {
		return nil, fmt.Errorf("categorical %q: %w", name, ErrColumnNotFound)
	}

	return append([]string(nil), v...), nil
}

// Levels returns the sorted distinct values of a categorical column.
func (t *Table) Levels(name string) ([]string, error) {
	v, err := t.Categorical(name)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, s := range v {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)

	return out, nil
}

// Subset returns the rows for ids in the given order with every column.
// Errors: ErrBadID for unknown or repeated identifiers.
func (t *Table) Subset(ids []string) (*Table, error) {
	out, err := NewTable(ids)
	if err != nil {
		return nil, err
	}
	rows := make([]int, len(ids))
	for k, id := range ids {
		i, ok := t.index[id]
		if !ok {
			return nil, fmt.Errorf("unknown %q: %w", id, ErrBadID)
		}
		rows[k] = i
	}
	out.order = append([]Column(nil), t.order...)
	for name, col := range t.numeric {
		v := make([]float64, len(rows))
		for k, i := range rows {
			v[k] = col[i]
		}
		out.numeric[name] = v
	}
	for name, col := range t.categ {
		v := make([]string, len(rows))
		for k, i := range rows {
			v[k] = col[i]
		}
		out.categ[name] = v
	}

	return out, nil
}

// Summary returns min, mean and max of a numeric column.
func (t *Table) Summary(name string) (lo, mean, hi float64, err error) {
	v, ok := t.numeric[name]
	if !ok {
		return 0, 0, 0, fmt.Errorf("numeric %q: %w", name, ErrColumnNotFound)
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
		mean += x
	}

	return lo, mean / float64(len(v)), hi, nil
}
