package utils

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseDuration safely parses duration string like "8h", falling back on bad input
func ParseDuration(d string, fallback time.Duration) time.Duration {
	d = strings.TrimSpace(d)
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

// Numeric converts supported numeric types to float64.
// The second return value reports whether v was numeric at all.
func Numeric(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float(), true
		}
		return 0, false
	}
}

// IsNumeric reports whether v is a number (booleans and numeric strings are not).
func IsNumeric(v interface{}) bool {
	_, ok := Numeric(v)
	return ok
}

// RoundFixed renders v with exactly places digits after the decimal point.
func RoundFixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
