package sensor

import (
	"fmt"
	"math"

	"firedetect/errs"
)

// int64Bound is 2^63. Integral columns must fit in int64.
const int64Bound = 1 << 63

// FeatureVector is a single model input row in schema order. Integral
// columns always hold whole numbers.
type FeatureVector struct {
	names  []string
	kinds  []Kind
	values []float64
}

// Shape reinterprets a reading as a feature vector for the given schema,
// coercing real columns to float64 and integral columns to int64.
func Shape(r Reading, s Schema) (FeatureVector, error) {
	if err := r.Validate(); err != nil {
		return FeatureVector{}, err
	}
	raw := r.values()
	values := make([]float64, Width)
	for i, v := range raw {
		values[i] = *v
	}
	return NewFeatureVector(s, values)
}

// NewFeatureVector coerces values given in schema order.
func NewFeatureVector(s Schema, values []float64) (FeatureVector, error) {
	if len(values) != s.Len() {
		return FeatureVector{}, fmt.Errorf("%w: expected %d values, got %d", errs.ErrSchemaMismatch, s.Len(), len(values))
	}
	v := FeatureVector{
		names:  s.Names(),
		kinds:  make([]Kind, s.Len()),
		values: make([]float64, s.Len()),
	}
	for i, value := range values {
		col := s.Column(i)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return FeatureVector{}, fmt.Errorf("%w: %s (%s) is not a finite number", errs.ErrSchemaMismatch, WireFields[i], col.Name)
		}
		if col.Kind == Integral {
			if value != math.Trunc(value) {
				return FeatureVector{}, fmt.Errorf("%w: %s (%s) must be an integer, got %v", errs.ErrSchemaMismatch, WireFields[i], col.Name, value)
			}
			if value >= int64Bound || value < -int64Bound {
				return FeatureVector{}, fmt.Errorf("%w: %s (%s) does not fit in int64, got %v", errs.ErrSchemaMismatch, WireFields[i], col.Name, value)
			}
		}
		v.kinds[i] = col.Kind
		v.values[i] = value
	}
	return v, nil
}

func (v FeatureVector) Len() int {
	return len(v.values)
}

func (v FeatureVector) Name(i int) string {
	return v.names[i]
}

func (v FeatureVector) Kind(i int) Kind {
	return v.kinds[i]
}

func (v FeatureVector) Float(i int) float64 {
	return v.values[i]
}

func (v FeatureVector) Int(i int) int64 {
	return int64(v.values[i])
}

// Row returns a copy of the values as the tree models consume them.
func (v FeatureVector) Row() []float64 {
	return append([]float64(nil), v.values...)
}

// Map keys each value by predictor name, keeping its training dtype.
func (v FeatureVector) Map() map[string]any {
	out := make(map[string]any, len(v.values))
	for i, name := range v.names {
		if v.kinds[i] == Integral {
			out[name] = v.Int(i)
			continue
		}
		out[name] = v.values[i]
	}
	return out
}
