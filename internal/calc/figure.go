package calc

import (
	"bytes"
	"math"
	"strconv"
)

// Figure is a numeric result that may be undefined, such as a payback period
// when there are no savings. Undefined figures marshal to JSON null.
type Figure struct {
	Value   float64
	Defined bool
}

// Defined wraps a finite value. NaN and infinities yield an undefined Figure.
func Defined(v float64) Figure {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Figure{}
	}
	return Figure{Value: v, Defined: true}
}

// Undefined returns the undefined Figure.
func Undefined() Figure { return Figure{} }

// Or returns the value, or fallback when the figure is undefined.
func (f Figure) Or(fallback float64) float64 {
	if !f.Defined {
		return fallback
	}
	return f.Value
}

// Float returns the value, or +Inf when the figure is undefined.
func (f Figure) Float() float64 {
	return f.Or(math.Inf(1))
}

func (f Figure) String() string {
	if !f.Defined {
		return "undefined"
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.Defined {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f.Value, 'f', -1, 64), nil
}

func (f *Figure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = Figure{}
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Defined(v)
	return nil
}
