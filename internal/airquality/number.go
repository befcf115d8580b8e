package airquality

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number is a loosely typed numeric field from an upstream payload.
//
// It accepts JSON numbers, numeric strings, objects of the form {"avg": n}
// or {"v": n}, and null. Anything else decodes to an absent value rather
// than an error, so one odd field never discards the surrounding record.
type Number struct {
	value float64
	ok    bool
}

// NumberOf wraps a known value.
func NumberOf(v float64) Number {
	return Number{value: v, ok: true}
}

// Float returns the value and whether it was present.
func (n Number) Float() (float64, bool) {
	return n.value, n.ok
}

// OrZero returns the value or 0 when absent.
func (n Number) OrZero() float64 {
	if !n.ok {
		return 0
	}
	return n.value
}

// Ptr returns a pointer to the value, or nil when absent.
func (n Number) Ptr() *float64 {
	if !n.ok {
		return nil
	}
	v := n.value
	return &v
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*n = NumberOf(v)
		}
	case '{':
		var obj map[string]Number
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil
		}
		for _, key := range []string{"avg", "v", "value"} {
			if inner, ok := obj[key]; ok && inner.ok {
				*n = inner
				return nil
			}
		}
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err == nil {
			*n = NumberOf(v)
		}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.ok {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}
