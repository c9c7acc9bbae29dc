// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"
)

// ValueKind tags the shape of a decoded value.
type ValueKind int

const (
	// KindScalar is a plain value with no field structure
	KindScalar ValueKind = iota

	// KindFlags is an integer unpacked into named single-bit fields
	KindFlags

	// KindRecord is a structured record with named fields
	KindRecord

	// KindSequence is an ordered list of decoded values
	KindSequence
)

// String returns the string representation of a ValueKind
func (k ValueKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindFlags:
		return "flags"
	case KindRecord:
		return "record"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Value is a semantically labeled decoded value: a scalar, a bitmask
// unpacked into named flags, a record with named fields, or a sequence.
// Fields and elements are Values themselves; decoding always terminates
// at scalars, so a Value contains no cycles.
type Value struct {
	// Kind selects which of the remaining fields is populated
	Kind ValueKind

	// Scalar holds the raw value for KindScalar
	Scalar any

	// Fields holds named sub-values for KindFlags and KindRecord.
	// FieldOrder preserves discovery order for stable output.
	Fields     map[string]*Value
	FieldOrder []string

	// Elems holds the elements for KindSequence
	Elems []*Value
}

// NewScalar wraps a raw value as a scalar Value.
func NewScalar(v any) *Value {
	return &Value{Kind: KindScalar, Scalar: v}
}

// newMapping creates an empty Flags or Record value.
func newMapping(kind ValueKind) *Value {
	return &Value{Kind: kind, Fields: map[string]*Value{}}
}

// setField adds a named sub-value, preserving insertion order.
func (v *Value) setField(name string, val *Value) {
	if _, exists := v.Fields[name]; !exists {
		v.FieldOrder = append(v.FieldOrder, name)
	}
	v.Fields[name] = val
}

// Field returns the named sub-value of a Flags or Record value.
func (v *Value) Field(name string) (*Value, bool) {
	if v == nil || v.Fields == nil {
		return nil, false
	}
	val, ok := v.Fields[name]
	return val, ok
}

// Raw returns the plain Go representation of the value: the scalar
// itself, map[string]any for flags/records, []any for sequences.
func (v *Value) Raw() any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindScalar:
		return v.Scalar
	case KindFlags, KindRecord:
		out := make(map[string]any, len(v.Fields))
		for name, val := range v.Fields {
			out[name] = val.Raw()
		}
		return out
	case KindSequence:
		out := make([]any, len(v.Elems))
		for i, e := range v.Elems {
			out[i] = e.Raw()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders scalars as themselves, flags and records as
// objects in field order, and sequences as arrays.
func (v *Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindFlags, KindRecord:
		var buf []byte
		buf = append(buf, '{')
		names := v.FieldOrder
		if len(names) != len(v.Fields) {
			// FieldOrder can be stale after direct map edits; fall back
			// to a deterministic order
			names = make([]string, 0, len(v.Fields))
			for name := range v.Fields {
				names = append(names, name)
			}
			sort.Strings(names)
		}
		for i, name := range names {
			if i > 0 {
				buf = append(buf, ',')
			}
			key, err := json.Marshal(name)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(v.Fields[name])
			if err != nil {
				return nil, err
			}
			buf = append(buf, key...)
			buf = append(buf, ':')
			buf = append(buf, val...)
		}
		buf = append(buf, '}')
		return buf, nil
	case KindSequence:
		return json.Marshal(v.Elems)
	default:
		return json.Marshal(v.Scalar)
	}
}

// JSON returns the value as a JSON string, or "" if marshaling fails.
func (v *Value) JSON() string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// Get queries the value with a gjson path.
//
// Example:
//
//	status, _ := client.ReadNode(ctx, "cepn1")
//	run := status.GetValue("cepn1.status.run").Int()
func (v *Value) Get(path string) gjson.Result {
	jsonStr := v.JSON()
	if jsonStr == "" {
		return gjson.Result{}
	}
	return gjson.Get(jsonStr, path)
}
