package types

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// SeriesColumn is the column name used for single-column frames.
const SeriesColumn = "value"

// Frame is a time-indexed numeric table. A frame with a single column named
// "value" represents a plain series; multi-column frames represent indicators
// with several output values per timestamp (e.g. Bollinger Bands).
//
// Values is column-major: Values[c][i] is column c at timestamp Times[i].
// Column order is significant and must survive serialisation round trips.
type Frame struct {
	Times   []time.Time
	Columns []string
	Values  [][]float64
}

// NewSeries creates a single-column frame from a timestamp and value slice.
func NewSeries(times []time.Time, values []float64) (Frame, error) {
	return NewTable(times, []string{SeriesColumn}, [][]float64{values})
}

// NewTable creates a multi-column frame. Every column must have exactly one
// value per timestamp.
func NewTable(times []time.Time, columns []string, values [][]float64) (Frame, error) {
	if len(columns) == 0 {
		return Frame{}, errors.New(errors.ErrCodeInvalidParameter, "frame requires at least one column")
	}

	if len(columns) != len(values) {
		return Frame{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"frame has %d columns but %d value slices", len(columns), len(values))
	}

	for i, col := range values {
		if len(col) != len(times) {
			return Frame{}, errors.Newf(errors.ErrCodeInvalidParameter,
				"column %s has %d values for %d timestamps", columns[i], len(col), len(times))
		}
	}

	return Frame{
		Times:   times,
		Columns: columns,
		Values:  values,
	}, nil
}

// IsSeries reports whether the frame is a plain single-value series.
func (f Frame) IsSeries() bool {
	return len(f.Columns) == 1 && f.Columns[0] == SeriesColumn
}

// Len returns the number of timestamps.
func (f Frame) Len() int {
	return len(f.Times)
}

// Column returns the values of the named column.
func (f Frame) Column(name string) ([]float64, error) {
	for i, c := range f.Columns {
		if c == name {
			return f.Values[i], nil
		}
	}

	return nil, errors.Newf(errors.ErrCodeDataNotFound, "frame has no column %s", name)
}

// SeriesValues returns the values of a single-column series frame.
func (f Frame) SeriesValues() ([]float64, error) {
	if !f.IsSeries() {
		return nil, errors.Newf(errors.ErrCodeInvalidType,
			"frame with columns %v is not a series", f.Columns)
	}

	return f.Values[0], nil
}

// ValueAt returns the value of the named column at the given timestamp.
// Returns ErrCodeDataNotFound when the timestamp is not present.
func (f Frame) ValueAt(name string, at time.Time) (float64, error) {
	col, err := f.Column(name)
	if err != nil {
		return 0, err
	}

	for i, ts := range f.Times {
		if ts.Equal(at) {
			return col[i], nil
		}
	}

	return 0, errors.Newf(errors.ErrCodeDataNotFound, "no value at %s", at)
}

// Equal reports whether two frames are identical within the given absolute
// float tolerance. NaN values compare equal to NaN at the same position.
func (f Frame) Equal(other Frame, tolerance float64) bool {
	if len(f.Times) != len(other.Times) || len(f.Columns) != len(other.Columns) {
		return false
	}

	for i := range f.Times {
		if !f.Times[i].Equal(other.Times[i]) {
			return false
		}
	}

	for i := range f.Columns {
		if f.Columns[i] != other.Columns[i] {
			return false
		}

		for j := range f.Values[i] {
			a, b := f.Values[i][j], other.Values[i][j]
			if math.IsNaN(a) && math.IsNaN(b) {
				continue
			}

			if math.Abs(a-b) > tolerance {
				return false
			}
		}
	}

	return true
}
