// Package sensor shapes gas-sensor readings into the fixed feature layout
// the fire classifier was trained on and checks them against configured ranges.
package sensor

import (
	"fmt"

	"firedetect/errs"
)

// Kind is the numeric type a column had at training time.
type Kind int

const (
	Real Kind = iota
	Integral
)

func (k Kind) String() string {
	if k == Integral {
		return "int64"
	}
	return "float64"
}

// Width is the number of predictors the model consumes.
const Width = 8

// realColumns leading columns are float64, the rest int64.
const realColumns = 4

// WireFields are the request field names in training order.
var WireFields = [Width]string{
	"Temperature",
	"Humidity",
	"Pressure",
	"PM1",
	"TVOC",
	"eCO2",
	"H2",
	"Ethanol",
}

// RangeRule holds the inclusive bounds accepted for one predictor.
type RangeRule struct {
	Min float64
	Max float64
}

func (r RangeRule) Contains(value float64) bool {
	return value >= r.Min && value <= r.Max
}

type Column struct {
	Name  string
	Kind  Kind
	Range RangeRule
}

// Schema is the ordered predictor layout shared by validation and
// feature vector construction. It is immutable once built.
type Schema struct {
	columns []Column
}

// NewSchema binds the configured predictor names positionally to the wire
// fields and attaches exactly one range rule to each of them.
func NewSchema(predictors []string, ranges map[string]RangeRule) (Schema, error) {
	if len(predictors) != Width {
		return Schema{}, fmt.Errorf("%w: expected %d predictors, got %d", errs.ErrInvalidConfig, Width, len(predictors))
	}
	seen := make(map[string]struct{}, Width)
	columns := make([]Column, Width)
	for i, name := range predictors {
		if name == "" {
			return Schema{}, fmt.Errorf("%w: predictor %d has no name", errs.ErrInvalidConfig, i)
		}
		if _, dup := seen[name]; dup {
			return Schema{}, fmt.Errorf("%w: duplicate predictor %q", errs.ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}

		rule, ok := ranges[name]
		if !ok {
			return Schema{}, fmt.Errorf("%w: no range configured for %q", errs.ErrInvalidConfig, name)
		}
		if rule.Min > rule.Max {
			return Schema{}, fmt.Errorf("%w: range for %q has min %v above max %v", errs.ErrInvalidConfig, name, rule.Min, rule.Max)
		}
		kind := Real
		if i >= realColumns {
			kind = Integral
		}
		columns[i] = Column{Name: name, Kind: kind, Range: rule}
	}
	for name := range ranges {
		if _, ok := seen[name]; !ok {
			return Schema{}, fmt.Errorf("%w: range configured for unknown predictor %q", errs.ErrInvalidConfig, name)
		}
	}
	return Schema{columns: columns}, nil
}

func (s Schema) Len() int {
	return len(s.columns)
}

func (s Schema) Column(i int) Column {
	return s.columns[i]
}

func (s Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

func (s Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}
