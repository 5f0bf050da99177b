package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// ErrValidation wraps field-level validation failures.
var ErrValidation = errors.New("validation failed")

type ValidationResult struct {
	FailedRules []string `json:"failed_rules"`
}

func ValidationPassed(r ValidationResult) bool {
	return len(r.FailedRules) == 0
}

func (r ValidationResult) Err() error {
	if ValidationPassed(r) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(r.FailedRules, ", "))
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator. Field names are reported by their
// json tag.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateStruct runs the struct tags of v and reports each failure as
// "<type>.<field>_<tag>", e.g. "district.code_max".
func ValidateStruct(v any) ValidationResult {
	failed := make([]string, 0)
	err := Validator().Struct(v)
	if err == nil {
		return ValidationResult{FailedRules: failed}
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationResult{FailedRules: append(failed, err.Error())}
	}
	for _, fe := range fieldErrs {
		failed = append(failed, ruleName(fe))
	}
	return ValidationResult{FailedRules: failed}
}

func ruleName(fe validator.FieldError) string {
	ns := fe.Namespace()
	typ, _, _ := strings.Cut(ns, ".")
	return fmt.Sprintf("%s.%s_%s", toSnake(typ), fe.Field(), fe.Tag())
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseISODate(v *string) (time.Time, error) {
	if v == nil {
		return time.Time{}, errors.New("date is null")
	}
	return time.Parse(dateLayout, *v)
}

// ParseDate parses a yyyy-mm-dd date.
func ParseDate(v string) (time.Time, error) {
	return parseISODate(&v)
}
