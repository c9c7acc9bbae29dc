// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"
	"reflect"
	"strings"
)

// fieldWrite is one requested write, attached to its parent group.
// field is empty when the whole parent value is the destination.
type fieldWrite struct {
	field       string
	path        string
	value       any
	unsupported bool
}

// Write writes a batch of values addressed by dotted path.
//
// Paths naming two or more segments are grouped by parent so that
// fields of one array-valued parent become a single read-modify-write
// of the whole array. Single-segment paths write the named node's value
// directly. Every requested path gets an entry in the result, true only
// if its write round-trip completed without error; one failed path
// never aborts the rest of the batch.
//
// With AutoConvert enabled (the default), values destined for fields of
// a boolean-typed array are coerced to booleans, and scalar writes are
// converted to the declared type of the destination node.
//
// Example:
//
//	res, err := client.Write(ctx, map[string]any{
//	    "Pump_1.speed":   1500,
//	    "Pump_1.enabled": true,
//	    "Valve_3.open":   1,
//	})
func (c *Client) Write(ctx context.Context, data map[string]any) (WriteRes, error) {
	conn, _, cache, err := c.session("write")
	if err != nil {
		return WriteRes{OK: false}, err
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	results := make(map[string]bool, len(data))
	var errs []ErrorModel

	fail := func(path, message string) {
		results[path] = false
		errs = append(errs, ErrorModel{Path: path, Message: message})
	}

	// Group requests by parent path. The empty field name marks a
	// whole-value write of the group's node itself.
	groups := make(map[string][]fieldWrite)
	var order []string
	addGroup := func(parent string, fw fieldWrite) {
		if _, seen := groups[parent]; !seen {
			order = append(order, parent)
		}
		groups[parent] = append(groups[parent], fw)
	}

	for path, value := range data {
		parts := splitPath(path)
		if len(parts) == 0 {
			fail(path, "empty path")
			continue
		}
		fw := fieldWrite{path: path, value: value, unsupported: isMapping(value)}
		if len(parts) == 1 {
			addGroup(path, fw)
			continue
		}
		fw.field = parts[len(parts)-1]
		addGroup(strings.Join(parts[:len(parts)-1], "."), fw)
	}

	for _, parent := range order {
		fields := groups[parent]

		parentNode, err := c.resolvePath(ctx, conn, parent, c.TargetObject)
		if err != nil {
			for _, fw := range fields {
				fail(fw.path, err.Error())
			}
			continue
		}

		named := make([]fieldWrite, 0, len(fields))
		var rest []fieldWrite
		for _, fw := range fields {
			if fw.field != "" && !fw.unsupported {
				named = append(named, fw)
			} else {
				rest = append(rest, fw)
			}
		}

		if len(named) > 1 {
			if current, readErr := parentNode.ReadValue(ctx); readErr == nil {
				if seq, ok := asSequence(current); ok {
					c.writeArrayFields(ctx, conn, cache, parentNode, parent, seq, named, results, &errs)
					named = nil
				}
			}
		}

		for _, fw := range append(named, rest...) {
			c.writeField(ctx, conn, cache, parentNode, parent, fw, results, &errs)
		}
	}

	ok := len(results) > 0
	for _, success := range results {
		if !success {
			ok = false
			break
		}
	}
	if len(data) == 0 {
		ok = true
	}

	c.logger.Debug("write complete", "requested", len(data), "ok", ok)

	return WriteRes{Results: results, OK: ok, Errors: errs}, nil
}

// writeArrayFields applies several field writes to one array-valued
// parent as a single write of the updated array. A field whose index
// cannot be determined fails alone; a failed array write fails every
// field in the group.
func (c *Client) writeArrayFields(ctx context.Context, conn Conn, cache *TypeCache, parent Node, parentPath string, current []any, fields []fieldWrite, results map[string]bool, errs *[]ErrorModel) {
	children, err := parent.Children(ctx)
	if err != nil {
		for _, fw := range fields {
			results[fw.path] = false
			*errs = append(*errs, ErrorModel{Path: fw.path, Message: err.Error()})
		}
		return
	}

	updated := make([]any, len(current))
	copy(updated, current)

	applied := make([]string, 0, len(fields))
	for _, fw := range fields {
		idx := c.fieldIndex(ctx, children, fw.field)
		if idx < 0 || idx >= len(updated) {
			results[fw.path] = false
			*errs = append(*errs, ErrorModel{Path: fw.path, Message: "field " + quote(fw.field) + " not found in " + quote(parentPath)})
			continue
		}
		value := fw.value
		if c.AutoConvert && c.lookupVariantType(ctx, conn, cache, children[idx]) == TypeBoolean {
			value = truthy(value)
		}
		updated[idx] = value
		applied = append(applied, fw.path)
	}
	if len(applied) == 0 {
		return
	}

	prefer := TypeVariant
	if c.AutoConvert {
		prefer = c.lookupVariantType(ctx, conn, cache, parent)
	}

	c.logger.Debug("array batch write", "parent", parentPath, "fields", len(applied))

	if err := parent.WriteValue(ctx, toVariant(updated, prefer)); err != nil {
		for _, path := range applied {
			results[path] = false
			*errs = append(*errs, ErrorModel{Path: path, Message: err.Error()})
		}
		return
	}
	for _, path := range applied {
		results[path] = true
	}
}

// writeField writes a single value, either to the parent node itself
// (empty field name) or to the child variable the field names.
func (c *Client) writeField(ctx context.Context, conn Conn, cache *TypeCache, parent Node, parentPath string, fw fieldWrite, results map[string]bool, errs *[]ErrorModel) {
	if fw.unsupported {
		results[fw.path] = false
		*errs = append(*errs, ErrorModel{Path: fw.path, Message: ErrUnsupportedValue.Error()})
		return
	}

	node := parent
	if fw.field != "" {
		resolved, err := c.resolvePath(ctx, conn, parentPath+"."+fw.field, c.TargetObject)
		if err != nil {
			results[fw.path] = false
			*errs = append(*errs, ErrorModel{Path: fw.path, Message: err.Error()})
			return
		}
		node = resolved
	}

	prefer := TypeVariant
	if c.AutoConvert {
		prefer = c.lookupVariantType(ctx, conn, cache, node)
	}

	if err := node.WriteValue(ctx, toVariant(fw.value, prefer)); err != nil {
		results[fw.path] = false
		*errs = append(*errs, ErrorModel{Path: fw.path, Message: err.Error()})
		return
	}
	results[fw.path] = true
}

// fieldIndex locates a field's position among the parent's children by
// display name, falling back to browse name. Returns -1 when no child
// matches.
func (c *Client) fieldIndex(ctx context.Context, children []Node, field string) int {
	for i, child := range children {
		if name, err := child.DisplayName(ctx); err == nil && name == field {
			return i
		}
		if name, err := child.BrowseName(ctx); err == nil && name == field {
			return i
		}
	}
	return -1
}

// isMapping reports whether a value is a map-shaped composite, which
// has no single destination node and cannot be written.
func isMapping(v any) bool {
	if v == nil {
		return false
	}
	return reflect.ValueOf(v).Kind() == reflect.Map
}

// truthy converts a value to its boolean interpretation: zero numbers,
// empty strings and nil are false, everything else is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if n, ok := asInteger(v); ok {
		return n != 0
	}
	if f, ok := asFloat(v); ok {
		return f != 0
	}
	return true
}
