// internal/app/system/inputval/inputval.go
//
// Package inputval validates form input with struct tags.
//
// Fields carry a `validate` tag understood by go-playground/validator and a
// `label` tag used in messages:
//
//	type approveInput struct {
//		LoanAmount string `validate:"required,positive" label:"Loan amount"`
//	}
//
// Besides the built-in rules, two string rules are registered:
//   - positive: a plain decimal greater than zero
//   - posint:   parses as a whole number greater than zero
package inputval

import (
	"fmt"
	"math"
	"regexp"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		_ = v.RegisterValidation("positive", func(fl validator.FieldLevel) bool {
			_, ok := PositiveNumber(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("posint", func(fl validator.FieldLevel) bool {
			_, ok := PositiveInt(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

// FieldError is one failed rule, already phrased for the user.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// Result holds the failures of one Validate call in field order.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// For returns the message for a struct field name, or "".
func (r Result) For(field string) string {
	for _, e := range r.Errors {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// Validate checks input against its struct tags.
func Validate(input any) Result {
	err := instance().Struct(input)
	if err == nil {
		return Result{}
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Result{Errors: []FieldError{{Message: err.Error()}}}
	}
	out := Result{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fe.StructField(),
			Label:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "positive":
		return label + " must be a number greater than zero."
	case "posint":
		return label + " must be a whole number greater than zero."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return label + " is invalid."
	}
}

// plainDecimal is digits with an optional fractional part. Exponents, hex,
// signs and digit separators are rejected so the backend receives a value
// it reads the same way.
var plainDecimal = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// PositiveNumber parses s as a plain decimal greater than zero.
func PositiveNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !plainDecimal.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// PositiveInt parses s as a whole number greater than zero. "12.0" is
// accepted, "12.5" is not.
func PositiveInt(s string) (int, bool) {
	f, ok := PositiveNumber(s)
	if !ok || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
