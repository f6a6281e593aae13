package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Download artifact contract for the filtered table.
const (
	DownloadFileName = "filtered_scores.csv"
	DownloadMIME     = "text/csv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseOption configures ParseCSV.
type ParseOption func(*parseConfig)

type parseConfig struct {
	delimiter rune
	maxRows   int
}

// WithDelimiter sets the field delimiter. Defaults to ','.
func WithDelimiter(d rune) ParseOption {
	return func(c *parseConfig) {
		if d != 0 {
			c.delimiter = d
		}
	}
}

// WithMaxRows caps the number of data rows accepted; 0 means unlimited.
func WithMaxRows(n int) ParseOption {
	return func(c *parseConfig) {
		if n > 0 {
			c.maxRows = n
		}
	}
}

// ParseCSV reads a header row and data rows. A column is numeric when every
// cell parses as a float; numeric columns other than id and name become
// subjects.
func ParseCSV(r io.Reader, opts ...ParseOption) (*Table, error) {
	cfg := parseConfig{delimiter: ','}
	for _, opt := range opts {
		opt(&cfg)
	}

	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = cfg.delimiter
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", ErrMalformedCSV)
		}
		return nil, fmt.Errorf("%w: read header: %w", ErrMalformedCSV, err)
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("%w: empty header at column %d", ErrMalformedCSV, i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("%w: duplicate header %q", ErrMalformedCSV, h)
		}
		seen[h] = true
		header[i] = h
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
		}
		if cfg.maxRows > 0 && len(rows) >= cfg.maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrMalformedCSV, cfg.maxRows)
		}
		rows = append(rows, row)
	}

	return fromRows(header, rows), nil
}

func fromRows(header []string, rows [][]string) *Table {
	t := &Table{
		columns: header,
		numeric: make(map[string]bool, len(header)),
		records: make([]Record, 0, len(rows)),
	}

	for j, col := range header {
		if isReserved(col) || len(rows) == 0 {
			continue
		}
		numeric := true
		for _, row := range rows {
			if _, err := parseFloat(row[j]); err != nil {
				numeric = false
				break
			}
		}
		t.numeric[col] = numeric
	}

	for i, row := range rows {
		rec := Record{
			Scores: make(map[string]float64),
			Fields: make(map[string]string, len(header)),
		}
		for j, col := range header {
			cell := strings.TrimSpace(row[j])
			rec.Fields[col] = cell
			switch {
			case col == IDColumn:
				rec.ID = cell
			case col == NameColumn:
				rec.Name = cell
			case t.numeric[col]:
				v, _ := parseFloat(cell)
				rec.Scores[col] = v
			}
		}
		if rec.ID == "" {
			rec.ID = strconv.Itoa(i + 1)
		}
		t.records = append(t.records, rec)
	}
	return t
}

// WriteCSV writes the header and every row in original column order.
// Numeric cells use the shortest representation that parses back to the
// same float64.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(t.columns))
	for _, r := range t.records {
		for j, col := range t.columns {
			if v, ok := r.Scores[col]; ok {
				row[j] = formatFloat(v)
				continue
			}
			row[j] = r.Fields[col]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeCSV returns the table serialized as UTF-8 CSV bytes.
func (t *Table) EncodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
