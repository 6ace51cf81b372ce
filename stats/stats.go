// Package stats provides summary statistics that degrade to "N/A" on
// empty input instead of failing.
package stats

import (
	"strconv"

	"github.com/docker/go-units"
	"gonum.org/v1/gonum/stat"
)

// Value is a statistic that may be absent.
type Value struct {
	V     float64
	Valid bool
}

// NA is the absent value.
var NA = Value{}

// Of wraps a known value.
func Of(v float64) Value {
	return Value{V: v, Valid: true}
}

// String renders the value with full precision, or "N/A".
func (v Value) String() string {
	if !v.Valid {
		return "N/A"
	}

	return strconv.FormatFloat(v.V, 'f', -1, 64)
}

// Format renders the value with a fixed number of decimals, or "N/A".
func (v Value) Format(decimals int) string {
	if !v.Valid {
		return "N/A"
	}

	return strconv.FormatFloat(v.V, 'f', decimals, 64)
}

// Scale multiplies a valid value by f.
func (v Value) Scale(f float64) Value {
	if !v.Valid {
		return NA
	}

	return Of(v.V * f)
}

// Mean is the arithmetic mean of xs.
func Mean[T int64 | float64](xs []T) Value {
	if len(xs) == 0 {
		return NA
	}

	return Of(stat.Mean(floats(xs), nil))
}

// StdDev is the population standard deviation of xs.
func StdDev[T int64 | float64](xs []T) Value {
	if len(xs) == 0 {
		return NA
	}

	_, std := stat.PopMeanStdDev(floats(xs), nil)

	return Of(std)
}

func floats[T int64 | float64](xs []T) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}

	return out
}

// MiB converts a valid byte count to mebibytes.
func (v Value) MiB() Value {
	return v.Scale(1.0 / units.MiB)
}

// MiB converts a byte count to mebibytes.
func MiB[T int64 | float64](bytes T) float64 {
	return float64(bytes) / units.MiB
}
