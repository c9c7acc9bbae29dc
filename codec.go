// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
)

// decodeValue turns a raw value into its semantically labeled form
// using the node's declared metadata.
//
// Priority order: bitmask (enum-strings child present and the value is
// a non-boolean integer), then positional field zip for sequences, then
// named-field resolution for structured records, then the raw value
// unchanged. All metadata probes are best-effort: a failed probe
// degrades the decode instead of failing the read.
//
// conn and cache are the session snapshot taken when the operation
// started, so a concurrent Disconnect cannot pull them out from under
// an in-flight decode.
func (c *Client) decodeValue(ctx context.Context, conn Conn, cache *TypeCache, node Node, raw any) *Value {
	meta, ok := c.nodeMetadata(ctx, node)
	if !ok {
		// No declared data type: no inference possible
		return NewScalar(raw)
	}

	if names, ok := c.enumStrings(ctx, node); ok {
		if n, isInt := asInteger(raw); isInt {
			return decodeBitmask(n, names)
		}
	}

	if seq, isSeq := asSequence(raw); isSeq {
		if len(seq) == 0 {
			return NewScalar(raw)
		}
		return c.decodeSequence(ctx, conn, cache, node, meta, seq)
	}

	if rec, isRec := raw.(*Structured); isRec {
		var fieldNames []string
		if typeNode, ok := conn.TypeNode(ctx, meta.DataTypeID); ok {
			fieldNames, _ = c.structureFields(ctx, cache, typeNode)
		}
		return decodeStructured(rec, fieldNames)
	}

	return NewScalar(raw)
}

// decodeSequence labels the elements of a non-empty sequence.
//
// Field names are discovered two ways in order: the node's own
// variable-class children, then the children of the declared data
// type's definition node. Surplus elements beyond the discovered names
// keep bracketed positional keys.
func (c *Client) decodeSequence(ctx context.Context, conn Conn, cache *TypeCache, node Node, meta NodeMetadata, seq []any) *Value {
	fieldNames, _ := c.variableFieldNames(ctx, cache, node)
	if len(fieldNames) == 0 {
		if typeNode, ok := conn.TypeNode(ctx, meta.DataTypeID); ok {
			fieldNames, _ = c.structureFields(ctx, cache, typeNode)
		}
	}

	if len(fieldNames) > 0 {
		record := newMapping(KindRecord)
		for i, elem := range seq {
			if i < len(fieldNames) {
				record.setField(fieldNames[i], wrapElement(elem))
			} else {
				record.setField(positionalKey(i), wrapElement(elem))
			}
		}
		return record
	}

	// No names anywhere: structured elements decode on their own
	if _, isRec := seq[0].(*Structured); isRec {
		out := &Value{Kind: KindSequence}
		for _, elem := range seq {
			out.Elems = append(out.Elems, wrapElement(elem))
		}
		return out
	}

	record := newMapping(KindRecord)
	for i, elem := range seq {
		record.setField(positionalKey(i), wrapElement(elem))
	}
	return record
}

// decodeStructured labels a structured record with declared field names,
// substituting positionally when a declared field is absent by name.
// With no declared names the record's own field names are used, falling
// back to bracketed positions.
func decodeStructured(rec *Structured, declared []string) *Value {
	out := newMapping(KindRecord)

	if len(declared) > 0 {
		for i, name := range declared {
			if v, ok := rec.field(name); ok {
				out.setField(name, wrapElement(v))
				continue
			}
			if i < len(rec.Fields) {
				out.setField(name, wrapElement(rec.Fields[i].Value))
				continue
			}
			out.setField(name, NewScalar(nil))
		}
		return out
	}

	for i, f := range rec.Fields {
		name := f.Name
		if name == "" {
			name = positionalKey(i)
		}
		out.setField(name, wrapElement(f.Value))
	}
	return out
}

// decodeBitmask unpacks an integer into named single-bit flags: bit i
// of the value under the i-th enumeration name.
func decodeBitmask(value int64, bitNames []string) *Value {
	out := newMapping(KindFlags)
	for i, name := range bitNames {
		bit := (value >> uint(i)) & 1
		out.setField(name, NewScalar(bit))
	}
	return out
}

// wrapElement wraps one raw element, recursing into structured records.
func wrapElement(v any) *Value {
	if rec, ok := v.(*Structured); ok {
		return decodeStructured(rec, nil)
	}
	return NewScalar(v)
}

// positionalKey renders the bracketed key for a positional field.
func positionalKey(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

// nodeMetadata reads declared type information, swallowing protocol
// errors into an absent result.
func (c *Client) nodeMetadata(ctx context.Context, node Node) (NodeMetadata, bool) {
	meta, ok, err := node.Metadata(ctx)
	if err != nil {
		c.logger.Debug("metadata read failed", "node", node.ID(), "error", err.Error())
		return NodeMetadata{}, false
	}
	return meta, ok
}

// enumStrings returns the enumeration name list exposed as an
// EnumStrings or EnumValues child property of the node, if any.
func (c *Client) enumStrings(ctx context.Context, node Node) ([]string, bool) {
	children, err := node.Children(ctx)
	if err != nil {
		return nil, false
	}

	for _, child := range children {
		name, err := child.DisplayName(ctx)
		if err != nil {
			continue
		}
		if name != "EnumStrings" && name != "EnumValues" {
			continue
		}
		raw, err := child.ReadValue(ctx)
		if err != nil {
			continue
		}
		if names, ok := toStringList(raw); ok {
			return names, true
		}
	}
	return nil, false
}

// toStringList normalizes a raw enumeration value list to strings.
func toStringList(raw any) ([]string, bool) {
	if names, ok := raw.([]string); ok {
		return names, true
	}
	seq, ok := asSequence(raw)
	if !ok {
		return nil, false
	}
	names := make([]string, len(seq))
	for i, item := range seq {
		if s, ok := item.(string); ok {
			names[i] = s
		} else {
			names[i] = fmt.Sprint(item)
		}
	}
	return names, true
}

// variableFieldNames discovers field names from the node's own
// variable-class children, cached under the node's identifier.
func (c *Client) variableFieldNames(ctx context.Context, cache *TypeCache, node Node) ([]string, bool) {
	if names, ok := cache.GetFieldNames(node.ID()); ok {
		return names, true
	}

	children, err := node.Children(ctx)
	if err != nil {
		c.logger.Debug("field name discovery failed", "node", node.ID(), "error", err.Error())
		return nil, false
	}

	var names []string
	for _, child := range children {
		name, err := child.DisplayName(ctx)
		if err != nil {
			continue
		}
		class, err := child.Class(ctx)
		if err != nil {
			continue
		}
		if class == NodeClassVariable {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return nil, false
	}
	cache.SetFieldNames(node.ID(), names)
	return names, true
}

// structureFields discovers field names from a data-type definition
// node's children, cached under the type identifier.
func (c *Client) structureFields(ctx context.Context, cache *TypeCache, typeNode Node) ([]string, bool) {
	if names, ok := cache.GetFieldNames(typeNode.ID()); ok {
		return names, true
	}

	children, err := typeNode.Children(ctx)
	if err != nil {
		c.logger.Debug("structure field discovery failed", "node", typeNode.ID(), "error", err.Error())
		return nil, false
	}

	var names []string
	for _, child := range children {
		name, err := child.DisplayName(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}

	if len(names) == 0 {
		return nil, false
	}
	cache.SetFieldNames(typeNode.ID(), names)
	return names, true
}

// toVariant converts an application-level value to a wire variant.
//
// An explicit non-generic preferred type wraps the value verbatim.
// Otherwise the type is inferred from the value's shape; sequences take
// the scalar type of their first element applied element-wise, and
// unrecognized scalars fall back to a string rendering.
func toVariant(value any, prefer TypeID) Variant {
	if value == nil {
		return NullVariant()
	}
	if prefer != TypeNull && prefer != TypeVariant {
		return Variant{Type: prefer, Value: value}
	}

	switch v := value.(type) {
	case bool:
		return Variant{Type: TypeBoolean, Value: v}
	case float32:
		return Variant{Type: TypeDouble, Value: float64(v)}
	case float64:
		return Variant{Type: TypeDouble, Value: v}
	case string:
		return Variant{Type: TypeString, Value: v}
	}
	if n, ok := asInteger(value); ok {
		return Variant{Type: TypeInt32, Value: int32(n)}
	}

	if seq, ok := asSequence(value); ok {
		return sequenceVariant(seq)
	}

	return Variant{Type: TypeString, Value: fmt.Sprint(value)}
}

// sequenceVariant infers the element-wise wire type of a sequence from
// its first element.
func sequenceVariant(seq []any) Variant {
	if len(seq) == 0 {
		return Variant{Type: TypeNull, Value: []any{}}
	}

	switch seq[0].(type) {
	case bool:
		out := make([]bool, len(seq))
		for i, e := range seq {
			b, ok := e.(bool)
			if !ok {
				return Variant{Type: TypeVariant, Value: seq}
			}
			out[i] = b
		}
		return Variant{Type: TypeBoolean, Value: out}
	case float32, float64:
		out := make([]float64, len(seq))
		for i, e := range seq {
			f, ok := asFloat(e)
			if !ok {
				return Variant{Type: TypeVariant, Value: seq}
			}
			out[i] = f
		}
		return Variant{Type: TypeDouble, Value: out}
	case string:
		out := make([]string, len(seq))
		for i, e := range seq {
			s, ok := e.(string)
			if !ok {
				return Variant{Type: TypeVariant, Value: seq}
			}
			out[i] = s
		}
		return Variant{Type: TypeString, Value: out}
	}
	if _, ok := asInteger(seq[0]); ok {
		out := make([]int32, len(seq))
		for i, e := range seq {
			n, ok := asInteger(e)
			if !ok {
				return Variant{Type: TypeVariant, Value: seq}
			}
			out[i] = int32(n)
		}
		return Variant{Type: TypeInt32, Value: out}
	}

	return Variant{Type: TypeVariant, Value: seq}
}

// lookupVariantType reads the node's declared data type off the server
// and maps canonical primitive type names to their wire kind. The
// resolved kind is cached in the type-definition keyspace under the
// data-type identifier. Unrecognized or unreadable types resolve to the
// generic variant kind.
func (c *Client) lookupVariantType(ctx context.Context, conn Conn, cache *TypeCache, node Node) TypeID {
	meta, ok := c.nodeMetadata(ctx, node)
	if !ok {
		return TypeVariant
	}

	if cached, ok := cache.GetDefinition(meta.DataTypeID); ok {
		if t, ok := cached.(TypeID); ok {
			return t
		}
	}

	typeNode, ok := conn.TypeNode(ctx, meta.DataTypeID)
	if !ok {
		return TypeVariant
	}
	name, err := typeNode.BrowseName(ctx)
	if err != nil {
		c.logger.Debug("type name read failed", "node", typeNode.ID(), "error", err.Error())
		return TypeVariant
	}

	t, ok := variantTypeNames[name]
	if !ok {
		t = TypeVariant
	}
	cache.SetDefinition(meta.DataTypeID, t)
	return t
}

// asSequence reports whether v is a general sequence and returns its
// elements. Strings and byte slices are scalars on the wire, not
// sequences.
func asSequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil:
		return nil, false
	case []any:
		return s, true
	case []byte, string:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asInteger reports whether v is an integer (a boolean is not) and
// returns it widened to int64.
func asInteger(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

// asFloat reports whether v is a floating point value.
func asFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	default:
		return 0, false
	}
}
