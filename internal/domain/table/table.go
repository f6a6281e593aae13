// Package table holds the immutable score table every analysis runs on.
package table

import (
	"fmt"
	"strconv"
)

// Fixed column keys. They are part of the input contract and not configurable.
const (
	// NameColumn holds the display name used to select a target student.
	NameColumn = "name"
	// IDColumn holds the record identifier. When absent the 1-based row
	// number is used.
	IDColumn = "id"
)

// Record is one student row.
type Record struct {
	ID   string
	Name string
	// Scores holds every numeric subject column of the row.
	Scores map[string]float64
	// Fields holds the raw text of every column of the row.
	Fields map[string]string
}

func (r Record) clone() Record {
	out := Record{ID: r.ID, Name: r.Name}
	out.Scores = make(map[string]float64, len(r.Scores))
	for k, v := range r.Scores {
		out.Scores[k] = v
	}
	out.Fields = make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

// Table is an ordered, immutable collection of records sharing one header.
type Table struct {
	columns []string
	numeric map[string]bool
	records []Record
}

// New builds a table from records that all carry exactly the given subjects.
// Columns are laid out as id, name, then subjects in the given order.
func New(subjects []string, records ...Record) (*Table, error) {
	seen := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		if s == "" {
			return nil, fmt.Errorf("%w: empty subject name", ErrValidation)
		}
		if isReserved(s) {
			return nil, fmt.Errorf("%w: %q", ErrReservedColumn, s)
		}
		if seen[s] {
			return nil, fmt.Errorf("%w: duplicate subject %q", ErrValidation, s)
		}
		seen[s] = true
	}

	t := &Table{
		columns: append([]string{IDColumn, NameColumn}, subjects...),
		numeric: make(map[string]bool, len(subjects)),
		records: make([]Record, 0, len(records)),
	}
	for _, s := range subjects {
		t.numeric[s] = true
	}

	for i, r := range records {
		if len(r.Scores) != len(subjects) {
			return nil, fmt.Errorf("%w: row %d has %d subjects, want %d", ErrInconsistentSubjects, i+1, len(r.Scores), len(subjects))
		}
		rec := Record{
			ID:     r.ID,
			Name:   r.Name,
			Scores: make(map[string]float64, len(subjects)),
			Fields: make(map[string]string, len(t.columns)),
		}
		if rec.ID == "" {
			rec.ID = strconv.Itoa(i + 1)
		}
		for _, s := range subjects {
			v, ok := r.Scores[s]
			if !ok {
				return nil, fmt.Errorf("%w: row %d is missing %q", ErrInconsistentSubjects, i+1, s)
			}
			rec.Scores[s] = v
			rec.Fields[s] = formatFloat(v)
		}
		rec.Fields[IDColumn] = rec.ID
		rec.Fields[NameColumn] = rec.Name
		t.records = append(t.records, rec)
	}
	return t, nil
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Columns returns the header in original order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// IsNumeric reports whether every cell of the column parsed as a number.
func (t *Table) IsNumeric(name string) bool { return t.numeric[name] }

// Subjects returns the numeric columns in header order, excluding the
// reserved id and name columns.
func (t *Table) Subjects() []string {
	var out []string
	for _, c := range t.columns {
		if t.numeric[c] {
			out = append(out, c)
		}
	}
	return out
}

// Records returns a deep copy of all rows.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	for i, r := range t.records {
		out[i] = r.clone()
	}
	return out
}

// Record returns a copy of row i.
func (t *Table) Record(i int) Record { return t.records[i].clone() }

// FindByName returns the index of the first record whose name equals name
// exactly. Duplicate names are not an error; the first one wins.
func (t *Table) FindByName(name string) (int, bool) {
	for i, r := range t.records {
		if r.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns the values of a subject column in row order.
func (t *Table) Column(name string) ([]float64, error) {
	if isReserved(name) {
		return nil, fmt.Errorf("%w: %q", ErrReservedColumn, name)
	}
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, name)
	}
	if !t.numeric[name] {
		for i, r := range t.records {
			if _, err := parseFloat(r.Fields[name]); err != nil {
				return nil, fmt.Errorf("%w: column %q row %d value %q", ErrNonNumeric, name, i+1, r.Fields[name])
			}
		}
		// A header-only column never proved numeric.
		return nil, fmt.Errorf("%w: column %q", ErrNonNumeric, name)
	}
	out := make([]float64, len(t.records))
	for i, r := range t.records {
		out[i] = r.Scores[name]
	}
	return out, nil
}

// Matrix returns rows x subjects after validating the selection. It is the
// shared entry point for every aggregate.
func (t *Table) Matrix(subjects []string) ([][]float64, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	if len(subjects) == 0 {
		return nil, ErrNoSubjects
	}
	cols := make([][]float64, len(subjects))
	for j, s := range subjects {
		col, err := t.Column(s)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}
	rows := make([][]float64, len(t.records))
	for i := range rows {
		rows[i] = make([]float64, len(subjects))
		for j := range subjects {
			rows[i][j] = cols[j][i]
		}
	}
	return rows, nil
}

// Filter returns a new table with the same header holding the rows keep
// accepts, in original order.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := &Table{
		columns: t.Columns(),
		numeric: make(map[string]bool, len(t.numeric)),
	}
	for k, v := range t.numeric {
		out.numeric[k] = v
	}
	for _, r := range t.records {
		if keep(r.clone()) {
			out.records = append(out.records, r.clone())
		}
	}
	return out
}

// Select returns a new table restricted to the id and name columns plus the
// given subjects, in the given order.
func (t *Table) Select(subjects []string) (*Table, error) {
	if len(subjects) == 0 {
		return nil, ErrNoSubjects
	}
	for _, s := range subjects {
		if _, err := t.Column(s); err != nil {
			return nil, err
		}
	}
	var cols []string
	for _, c := range t.columns {
		if isReserved(c) {
			cols = append(cols, c)
		}
	}
	cols = append(cols, subjects...)

	out := &Table{columns: cols, numeric: make(map[string]bool, len(subjects))}
	for _, s := range subjects {
		out.numeric[s] = true
	}
	for _, r := range t.records {
		rec := Record{ID: r.ID, Name: r.Name, Scores: map[string]float64{}, Fields: map[string]string{}}
		for _, c := range cols {
			rec.Fields[c] = r.Fields[c]
		}
		for _, s := range subjects {
			rec.Scores[s] = r.Scores[s]
		}
		out.records = append(out.records, rec)
	}
	return out, nil
}

// AverageBetween builds a Filter predicate keeping records whose mean over
// subjects lies in [minAvg, maxAvg].
func AverageBetween(subjects []string, minAvg, maxAvg float64) func(Record) bool {
	return func(r Record) bool {
		if len(subjects) == 0 {
			return false
		}
		var sum float64
		for _, s := range subjects {
			sum += r.Scores[s]
		}
		avg := sum / float64(len(subjects))
		return avg >= minAvg && avg <= maxAvg
	}
}

func isReserved(name string) bool { return name == IDColumn || name == NameColumn }
