// Package validate runs struct-tag validation on request bodies and turns
// failures into validation errors keyed by JSON field name.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"restoran-kpi/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()

	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// lets numeric tags like gte=0 apply to decimals
	val.RegisterCustomTypeFunc(func(rv reflect.Value) any {
		d, ok := rv.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})

	return val
}

// Struct validates s and returns an *apperr.Error whose detail maps each
// failing field to the rule it broke.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	return apperr.Validation("invalid request", ProcessValidationErrors(ve))
}

// ProcessValidationErrors keys each failure by its JSON path below the root
// struct, e.g. "revenue" or "labour_cost_percent.warning".
func ProcessValidationErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out[field] = fe.Tag()
	}
	return out
}
