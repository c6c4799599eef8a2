package sensor

import (
	"fmt"
	"strconv"
	"strings"
)

type Violation struct {
	Name  string
	Kind  Kind
	Value float64
	// Bound is "min" or "max".
	Bound string
	Limit float64
}

func (v Violation) String() string {
	relation := "below"
	if v.Bound == "max" {
		relation = "above"
	}
	return fmt.Sprintf("%s out of range: %s is %s %s %s",
		v.Name, formatValue(v.Value, v.Kind), relation, v.Bound, formatValue(v.Limit, Real))
}

// Violations is the outcome of Check. An empty value means the vector is valid.
type Violations []Violation

func (vs Violations) Valid() bool {
	return len(vs) == 0
}

// Message joins every violation into a single caller-facing description.
func (vs Violations) Message() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}

// Check reports every column whose value lies outside its inclusive range.
func Check(v FeatureVector, s Schema) Violations {
	var out Violations
	for i := 0; i < v.Len() && i < s.Len(); i++ {
		col := s.Column(i)
		value := v.Float(i)
		switch {
		case value < col.Range.Min:
			out = append(out, Violation{Name: col.Name, Kind: col.Kind, Value: value, Bound: "min", Limit: col.Range.Min})
		case value > col.Range.Max:
			out = append(out, Violation{Name: col.Name, Kind: col.Kind, Value: value, Bound: "max", Limit: col.Range.Max})
		}
	}
	return out
}

func formatValue(value float64, kind Kind) string {
	if kind == Integral {
		return strconv.FormatFloat(value, 'f', 0, 64)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
