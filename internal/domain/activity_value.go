package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind tags the variant held by an ActivityValue.
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueJSON
)

func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueNumber:
		return "number"
	case ValueBool:
		return "bool"
	case ValueJSON:
		return "json"
	default:
		return "none"
	}
}

// ActivityValue holds the old or new value of a tracked field. Consumers switch on Kind
// and read the matching accessor.
type ActivityValue struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	raw  json.RawMessage
}

// NoValue is the absent value (stored as NULL).
func NoValue() ActivityValue { return ActivityValue{} }

// StringValue wraps a string.
func StringValue(s string) ActivityValue { return ActivityValue{kind: ValueString, str: s} }

// NumberValue wraps a number.
func NumberValue(n float64) ActivityValue { return ActivityValue{kind: ValueNumber, num: n} }

// BoolValue wraps a bool.
func BoolValue(b bool) ActivityValue { return ActivityValue{kind: ValueBool, b: b} }

// IDValue wraps an optional row id; nil becomes NoValue.
func IDValue(id *int64) ActivityValue {
	if id == nil {
		return NoValue()
	}
	return NumberValue(float64(*id))
}

// JSONValue marshals v into a structured value.
func JSONValue(v any) (ActivityValue, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return ActivityValue{}, fmt.Errorf("marshal activity value: %w", err)
	}
	return ActivityValue{kind: ValueJSON, raw: raw}, nil
}

// Kind returns the held variant.
func (v ActivityValue) Kind() ValueKind { return v.kind }

// AsString returns the string variant.
func (v ActivityValue) AsString() (string, bool) { return v.str, v.kind == ValueString }

// AsNumber returns the number variant.
func (v ActivityValue) AsNumber() (float64, bool) { return v.num, v.kind == ValueNumber }

// AsBool returns the bool variant.
func (v ActivityValue) AsBool() (bool, bool) { return v.b, v.kind == ValueBool }

// AsJSON returns the structured variant.
func (v ActivityValue) AsJSON() (json.RawMessage, bool) { return v.raw, v.kind == ValueJSON }

// Equal compares kind and payload.
func (v ActivityValue) Equal(o ActivityValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueString:
		return v.str == o.str
	case ValueNumber:
		return v.num == o.num
	case ValueBool:
		return v.b == o.b
	case ValueJSON:
		return bytes.Equal(v.raw, o.raw)
	}
	return true
}

// MarshalJSON writes the bare value so API consumers see "open", 3 or {...}.
func (v ActivityValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueBool:
		return json.Marshal(v.b)
	case ValueJSON:
		return v.raw, nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON infers the variant from the JSON token.
func (v *ActivityValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = NoValue()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		b, err := strconv.ParseBool(string(data))
		if err != nil {
			return err
		}
		*v = BoolValue(b)
	case '{', '[':
		if !json.Valid(data) {
			return fmt.Errorf("invalid json activity value")
		}
		*v = ActivityValue{kind: ValueJSON, raw: append(json.RawMessage(nil), data...)}
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}

// Bytes returns the JSON encoding for storage, nil for NoValue.
func (v ActivityValue) Bytes() []byte {
	if v.kind == ValueNone {
		return nil
	}
	b, _ := v.MarshalJSON()
	return b
}
