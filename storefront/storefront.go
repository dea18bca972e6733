// Package storefront holds what the sales, prices and feedback services
// share: validation errors, lenient JSON number decoding and document
// persistence on top of a blob store.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"topcompras/storefront/blob"
)

// ValidationError carries a message that is safe to show to the customer
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid returns a ValidationError
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is a ValidationError, returning it
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// FlexNumber accepts a JSON number or a numeric string, the way the browser
// client sends form values. Present records that the field appeared in the
// document at all (null included); Set is false when it was absent, null or
// not numeric.
type FlexNumber struct {
	Value   float64
	Set     bool
	Present bool
}

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	*n = FlexNumber{Present: true}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	n.Value, n.Set = v, true
	return nil
}

// Int truncates toward zero; def is returned when unset or zero
func (n FlexNumber) Int(def int) int {
	if !n.Set {
		return def
	}
	if i := int(n.Value); i != 0 {
		return i
	}
	return def
}

// FlexString accepts a JSON string or number and keeps its text
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	default:
		*s = FlexString(data)
	}
	return nil
}

// LoadJSON decodes the document at key into v. A missing key leaves v
// untouched and is not an error.
func LoadJSON(ctx context.Context, store blob.Store, key string, v interface{}) error {
	data, err := store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SaveJSON encodes v and stores it at key
func SaveJSON(ctx context.Context, store blob.Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Notifier is told which document changed after every successful write
type Notifier interface {
	Notify(kind string)
}

// Document kinds passed to Notifier
const (
	KindSales     = "sales"
	KindPrices    = "prices"
	KindFeedbacks = "feedbacks"
)
