package api

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldErrors maps a form field name to every problem found with it.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Get joins the messages of field for display.
func (fe FieldErrors) Get(field string) string {
	return strings.Join(fe[field], " ")
}

func (fe FieldErrors) Any() bool { return len(fe) > 0 }

// newValidator returns a validator that reports fields by their form name
// and validates decimals numerically.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// collectValidation appends every validator failure of s to errs.
// It returns a non-nil error only when s could not be validated at all.
func collectValidation(v *validator.Validate, s any, errs FieldErrors) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), validationMessage(fe))
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "max":
		return fmt.Sprintf("Máximo %s caracteres.", fe.Param())
	case "gte":
		return fmt.Sprintf("Debe ser mayor o igual a %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Debe ser mayor a %s.", fe.Param())
	case "url":
		return "URL inválida."
	default:
		return "Valor inválido."
	}
}

const (
	msgRequired = "El campo es obligatorio."
	msgNumber   = "Ingrese un número válido."
	msgInteger  = "Ingrese un número entero."

	msgImageTooLarge = "La imagen supera el tamaño permitido."
	msgTooBig        = "El valor es demasiado grande."
)

// maxMoney is the largest amount a NUMERIC(18, 2) column holds.
var maxMoney = decimal.RequireFromString("9999999999999999.99")

// parseDecimal reads a money field; "1234.5" and "1234,5" are both accepted.
// The second result is a user-facing problem, empty when the value is valid.
func parseDecimal(raw string) (decimal.Decimal, string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, msgRequired
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, msgNumber
	}
	if d.Abs().GreaterThan(maxMoney) {
		return decimal.Zero, msgTooBig
	}
	return d, ""
}

// parseInt reads a whole-number field the same way, bounded to an INTEGER column.
func parseInt(raw string) (int, string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, msgRequired
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		return 0, msgTooBig
	}
	if err != nil {
		return 0, msgInteger
	}
	return int(n), ""
}
