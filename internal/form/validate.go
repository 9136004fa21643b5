package form

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/combatwarrior/academy/internal/common/apperrors"
)

// DateLayout is the calendar date format used by date fields.
const DateLayout = "2006-01-02"

// ErrInvalidInput is returned by Validate. Details holds one message per failed
// check, in field order.
var ErrInvalidInput = apperrors.New("please correct the highlighted fields").SetStatusCode(422)

// now is replaced in tests.
var now = time.Now

var (
	v    *validator.Validate
	once sync.Once
)

// Validator returns the shared validator with the minage and date tags registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.Split(f.Tag.Get("json"), ",")[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("minage", minAge)
		_ = v.RegisterValidation("date", isDate)
	})
	return v
}

// AgeOn returns the age in whole years on the given day. A birthday not yet
// reached in today's year does not count.
func AgeOn(birth, today time.Time) int {
	years := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		years--
	}
	return years
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func isDate(fl validator.FieldLevel) bool {
	if _, ok := fl.Field().Interface().(time.Time); ok {
		return true
	}
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := ParseDate(s)
	return err == nil
}

// minAge checks a birth date against the minimum age in the tag parameter.
func minAge(fl validator.FieldLevel) bool {
	years, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	var birth time.Time
	switch f := fl.Field().Interface().(type) {
	case time.Time:
		birth = f
	case string:
		if f == "" {
			return true
		}
		if birth, err = ParseDate(f); err != nil {
			return false
		}
	default:
		return false
	}
	today := now()
	return AgeOn(birth, today) >= years
}

// Validate checks s against its validate tags. Callers send nothing when it fails.
func Validate(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrInvalidInput.Err(err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, message(e))
	}
	return ErrInvalidInput.Msg(msgs[0]).WithDetails(msgs...)
}

func message(e validator.FieldError) string {
	field := fieldPath(e)
	numeric := false
	switch e.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		if numeric {
			return fmt.Sprintf("%s must be %s or greater", field, e.Param())
		}
		if e.Kind() == reflect.Slice || e.Kind() == reflect.Map {
			return fmt.Sprintf("%s must have at least %s %s", field, e.Param(), plural(e.Param(), "entry", "entries"))
		}
		return fmt.Sprintf("%s must be at least %s %s long", field, e.Param(), plural(e.Param(), "character", "characters"))
	case "max", "lte":
		if numeric {
			return fmt.Sprintf("%s must be %s or less", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s %s long", field, e.Param(), plural(e.Param(), "character", "characters"))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(e.Param(), " ", ", "))
	case "hexcolor":
		return field + " must be a hex color such as #1a2b3c"
	case "date":
		return field + " must be a date in YYYY-MM-DD form"
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, e.Param())
	case "minage":
		return fmt.Sprintf("student must be at least %s years old", e.Param())
	default:
		return field + " is invalid"
	}
}

// fieldPath is the dotted json path of the failing field without the struct name.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func plural(n, one, many string) string {
	if n == "1" {
		return one
	}
	return many
}
