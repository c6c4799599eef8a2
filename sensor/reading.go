package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"firedetect/errs"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Reading is one observation as received on the wire. Fields are pointers
// so that an absent field can be told apart from a zero value.
type Reading struct {
	Temperature *float64 `json:"Temperature" validate:"required"`
	Humidity    *float64 `json:"Humidity" validate:"required"`
	Pressure    *float64 `json:"Pressure" validate:"required"`
	PM1         *float64 `json:"PM1" validate:"required"`
	TVOC        *float64 `json:"TVOC" validate:"required"`
	ECO2        *float64 `json:"eCO2" validate:"required"`
	H2          *float64 `json:"H2" validate:"required"`
	Ethanol     *float64 `json:"Ethanol" validate:"required"`
}

// DecodeReading reads exactly one JSON object holding only the known fields.
func DecodeReading(r io.Reader) (Reading, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var reading Reading
	if err := dec.Decode(&reading); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", errs.ErrSchemaMismatch, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Reading{}, fmt.Errorf("%w: unexpected data after request object", errs.ErrSchemaMismatch)
	}
	return reading, nil
}

// Validate reports every missing field at once.
func (r Reading) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", errs.ErrSchemaMismatch, err)
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		missing = append(missing, fe.Field())
	}
	return fmt.Errorf("%w: missing field(s) %s", errs.ErrSchemaMismatch, strings.Join(missing, ", "))
}

func (r Reading) values() [Width]*float64 {
	return [Width]*float64{
		r.Temperature,
		r.Humidity,
		r.Pressure,
		r.PM1,
		r.TVOC,
		r.ECO2,
		r.H2,
		r.Ethanol,
	}
}

// NewReading builds a complete reading from values in WireFields order.
func NewReading(values [Width]float64) Reading {
	return Reading{
		Temperature: &values[0],
		Humidity:    &values[1],
		Pressure:    &values[2],
		PM1:         &values[3],
		TVOC:        &values[4],
		ECO2:        &values[5],
		H2:          &values[6],
		Ethanol:     &values[7],
	}
}
