package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type fieldState uint8

const (
	fieldAbsent fieldState = iota
	fieldNull
	fieldValue
)

// Field is an optional write-payload value with three states: absent (left
// out of the request), null (explicitly cleared) and set.
// Use the `omitzero` JSON option so absent fields are not sent.
type Field[T any] struct {
	value T
	state fieldState
}

// Set returns a Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, state: fieldValue}
}

// Null returns a Field that clears the target value.
func Null[T any]() Field[T] {
	return Field[T]{state: fieldNull}
}

// FromPtr maps nil to Null and anything else to Set.
func FromPtr[T any](p *T) Field[T] {
	if p == nil {
		return Null[T]()
	}
	return Set(*p)
}

// IsZero reports whether the field is absent.
func (f Field[T]) IsZero() bool { return f.state == fieldAbsent }

// Present reports whether the field is null or set.
func (f Field[T]) Present() bool { return f.state != fieldAbsent }

// IsNull reports whether the field explicitly clears the value.
func (f Field[T]) IsNull() bool { return f.state == fieldNull }

// Get returns the value and whether it is set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == fieldValue
}

// Ptr returns a pointer to a copy of the value, or nil when not set.
func (f Field[T]) Ptr() *T {
	if f.state != fieldValue {
		return nil
	}
	v := f.value
	return &v
}

// Assign applies the field to dst: absent leaves it, null clears it.
func (f Field[T]) Assign(dst **T) {
	switch f.state {
	case fieldNull:
		*dst = nil
	case fieldValue:
		*dst = f.Ptr()
	}
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != fieldValue {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}

// Decimal is a non-integer amount that the backend may encode either as a
// JSON number or as a numeric string.
type Decimal float64

func (d Decimal) Float64() float64 { return float64(d) }

// String formats d with two decimals.
func (d Decimal) String() string {
	return strconv.FormatFloat(float64(d), 'f', 2, 64)
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", raw, err)
	}
	*d = Decimal(v)
	return nil
}

// ParseDecimal parses user input such as "12.50".
func ParseDecimal(s string) (Decimal, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return Decimal(v), nil
}
