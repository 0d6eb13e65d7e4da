// Package validation turns untyped form input into typed, constrained
// records. A schema reports every invalid field in one pass.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
)

type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New builds a validator. now anchors the date rules and defaults to time.Now.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled()), now: now}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v.validate, "notfuture", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !t.After(v.today())
	})
	mustRegister(v.validate, "notpast", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !t.Before(v.today())
	})
	mustRegister(v.validate, "fighterage", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		age := AgeOn(t, v.now().UTC())
		return age >= constants.MinFighterAge && age <= constants.MaxFighterAge
	})

	// bcrypt hashes at most 72 bytes; max counts runes.
	mustRegister(v.validate, "bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= constants.MaxPasswordBytes
	})

	v.validate.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(FightRecordInput)
		if in.Result == domain.ResultDraw && in.Method.Decisive() {
			sl.ReportError(in.Method, "method", "Method", "decisive", "")
		}
	}, FightRecordInput{})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

func (v *Validator) today() time.Time {
	now := v.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// AgeOn returns the age in whole years of someone born on birthday.
func AgeOn(birthday, now time.Time) int {
	age := now.Year() - birthday.Year()
	if now.Month() < birthday.Month() || (now.Month() == birthday.Month() && now.Day() < birthday.Day()) {
		age--
	}
	return age
}

// check runs the struct rules over rec and merges their messages with the
// coercion failures already collected by d. Coercion messages win.
func check[T any](v *Validator, d *decoder, rec T) (T, error) {
	if err := v.validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return rec, apperr.Wrap(apperr.CodeUnexpected, "validation failed", err)
		}
		for _, fe := range fieldErrs {
			d.fail(fe.Field(), message(fe))
		}
	}
	if len(d.errs) > 0 {
		return rec, apperr.Invalid(d.errs)
	}
	return rec, nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "eqfield":
		return "must match " + humanize(fe.Param())
	case "gtfield":
		return "must be after the " + humanize(fe.Param())
	case "notfuture":
		return "cannot be in the future"
	case "notpast":
		return "cannot be in the past"
	case "fighterage":
		return fmt.Sprintf("fighter age must be between %d and %d", constants.MinFighterAge, constants.MaxFighterAge)
	case "bcryptlen":
		return fmt.Sprintf("must be at most %d bytes", constants.MaxPasswordBytes)
	case "decisive":
		return "cannot be used with a draw result"
	default:
		return "is invalid"
	}
}

// humanize turns a Go field name such as StartDate into "start date".
func humanize(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte(' ')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
