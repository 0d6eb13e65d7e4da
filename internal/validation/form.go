package validation

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of every date field.
const DateLayout = "2006-01-02"

// Form is raw submitted input, one string per key.
type Form map[string]string

// decoder coerces form strings into typed values, recording the first
// coercion failure per field.
type decoder struct {
	form Form
	errs map[string]string
}

func newDecoder(form Form) *decoder {
	return &decoder{form: form, errs: make(map[string]string)}
}

func (d *decoder) fail(key, message string) {
	if _, exists := d.errs[key]; !exists {
		d.errs[key] = message
	}
}

func (d *decoder) text(key string) string {
	return strings.TrimSpace(d.form[key])
}

func (d *decoder) integer(key string) int {
	raw := d.text(key)
	if raw == "" {
		d.fail(key, "is required")
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		d.fail(key, "must be a whole number")
		return 0
	}
	return n
}

// date returns the zero time for an empty value so that the required rule
// reports it.
func (d *decoder) date(key string) time.Time {
	raw := d.text(key)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		d.fail(key, "must be a date formatted YYYY-MM-DD")
		return time.Time{}
	}
	return t
}

func (d *decoder) optionalDate(key string) *time.Time {
	if d.text(key) == "" {
		return nil
	}
	t := d.date(key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func decodeEnum[T ~string](d *decoder, key string, parse func(string) (T, error)) T {
	raw := d.text(key)
	if raw == "" {
		d.fail(key, "is required")
		var zero T
		return zero
	}
	v, err := parse(raw)
	if err != nil {
		d.fail(key, err.Error())
	}
	return v
}

func decodeOptionalEnum[T ~string](d *decoder, key string, fallback T, parse func(string) (T, error)) T {
	if d.text(key) == "" {
		return fallback
	}
	return decodeEnum(d, key, parse)
}
