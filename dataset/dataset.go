// Package dataset reads grouped observations from CSV into the per-group
// moments consumed by the measurement step, and writes them back.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/katalvlaran/mmgsem/measurement"
)

var (
	// ErrMissingColumn reports a required header that is absent.
	ErrMissingColumn = errors.New("dataset: missing column")

	// ErrBadValue reports a cell that is neither numeric nor missing.
	ErrBadValue = errors.New("dataset: non-numeric value")

	// ErrMissingValue reports a missing cell when listwise deletion is off.
	ErrMissingValue = errors.New("dataset: missing value")
)

// Options configures Read.
type Options struct {
	// GroupColumn names the grouping variable.
	GroupColumn string

	// Indicators are the observed variables, in model order.
	Indicators []string

	// Listwise drops rows with a missing indicator ("", "NA", "NaN", ".")
	// instead of failing.
	Listwise bool
}

// Data is a grouped sample. Groups keep the order of first appearance.
type Data struct {
	Groups  []measurement.GroupData
	Rows    [][][]float64
	Dropped int // rows removed by listwise deletion
}

// ReadFile opens path and calls Read.
func ReadFile(path string, opts Options) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()

	return Read(bufio.NewReader(f), opts)
}

// Read parses a CSV with a header row.
func Read(r io.Reader, opts Options) (*Data, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	gcol, ok := pos[opts.GroupColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, opts.GroupColumn)
	}
	cols := make([]int, len(opts.Indicators))
	for i, name := range opts.Indicators {
		c, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		cols[i] = c
	}

	var (
		order []string
		rows  = map[string][][]float64{}
		out   = &Data{}
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		x := make([]float64, len(cols))
		missing := false
		for i, c := range cols {
			cell := strings.TrimSpace(rec[c])
			if isMissing(cell) {
				missing = true

				break
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %q", ErrBadValue, line, opts.Indicators[i], cell)
			}
			x[i] = v
		}
		if missing {
			if !opts.Listwise {
				return nil, fmt.Errorf("%w: line %d", ErrMissingValue, line)
			}
			out.Dropped++

			continue
		}
		g := strings.TrimSpace(rec[gcol])
		if _, seen := rows[g]; !seen {
			order = append(order, g)
		}
		rows[g] = append(rows[g], x)
	}

	for _, g := range order {
		gd, err := measurement.NewGroupData(g, rows[g])
		if err != nil {
			return nil, fmt.Errorf("dataset: group %s: %w", g, err)
		}
		out.Groups = append(out.Groups, gd)
		out.Rows = append(out.Rows, rows[g])
	}

	return out, nil
}

func isMissing(cell string) bool {
	switch strings.ToUpper(cell) {
	case "", "NA", "NAN", ".":
		return true
	}

	return false
}

// Write emits a CSV with the group column first, then the indicators.
func Write(w io.Writer, groupColumn string, indicators []string, ids []string, rows [][][]float64) error {
	if len(ids) != len(rows) {
		return fmt.Errorf("dataset: %d group ids for %d groups", len(ids), len(rows))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{groupColumn}, indicators...)); err != nil {
		return err
	}
	rec := make([]string, len(indicators)+1)
	for g, id := range ids {
		for _, x := range rows[g] {
			if len(x) != len(indicators) {
				return fmt.Errorf("dataset: group %s: row has %d values, want %d", id, len(x), len(indicators))
			}
			rec[0] = id
			for i, v := range x {
				rec[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()

	return cw.Error()
}
