// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"
	"fmt"
	"reflect"
	"time"

	gopcua "github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
)

// dialOPCUA is the default Dialer. It establishes a gopcua session
// against the endpoint and wraps it in the Conn contract.
func dialOPCUA(ctx context.Context, endpoint string, timeout time.Duration) (Conn, error) {
	client, err := gopcua.NewClient(endpoint, gopcua.DialTimeout(timeout))
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return &uaConn{client: client}, nil
}

// uaConn adapts a gopcua client session to the Conn contract.
type uaConn struct {
	client *gopcua.Client
}

func (c *uaConn) ObjectsRoot() Node {
	return &uaNode{
		conn: c,
		node: c.client.Node(ua.NewNumericNodeID(0, id.ObjectsFolder)),
	}
}

func (c *uaConn) TypeNode(ctx context.Context, typeID string) (Node, bool) {
	nid, err := ua.ParseNodeID(typeID)
	if err != nil {
		return nil, false
	}
	node := c.client.Node(nid)
	if _, err := node.BrowseName(ctx); err != nil {
		return nil, false
	}
	return &uaNode{conn: c, node: node}, true
}

func (c *uaConn) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// uaNode adapts one gopcua node handle to the Node contract.
type uaNode struct {
	conn *uaConn
	node *gopcua.Node
}

func (n *uaNode) ID() string {
	return n.node.ID.String()
}

func (n *uaNode) DisplayName(ctx context.Context) (string, error) {
	name, err := n.node.DisplayName(ctx)
	if err != nil {
		return "", err
	}
	return name.Text, nil
}

func (n *uaNode) BrowseName(ctx context.Context) (string, error) {
	name, err := n.node.BrowseName(ctx)
	if err != nil {
		return "", err
	}
	return name.Name, nil
}

func (n *uaNode) Class(ctx context.Context) (NodeClass, error) {
	class, err := n.node.NodeClass(ctx)
	if err != nil {
		return NodeClassUnspecified, err
	}
	return NodeClass(class), nil
}

func (n *uaNode) Children(ctx context.Context) ([]Node, error) {
	refs, err := n.node.Children(ctx, id.HierarchicalReferences, ua.NodeClassAll)
	if err != nil {
		return nil, err
	}
	children := make([]Node, 0, len(refs))
	for _, ref := range refs {
		children = append(children, &uaNode{conn: n.conn, node: ref})
	}
	return children, nil
}

func (n *uaNode) ReadValue(ctx context.Context) (any, error) {
	variant, err := n.node.Value(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeValue(variant), nil
}

func (n *uaNode) WriteValue(ctx context.Context, value Variant) error {
	variant, err := encodeVariant(value)
	if err != nil {
		return err
	}
	req := &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{{
			NodeID:      n.node.ID,
			AttributeID: ua.AttributeIDValue,
			Value: &ua.DataValue{
				EncodingMask: ua.DataValueValue,
				Value:        variant,
			},
		}},
	}
	resp, err := n.conn.client.Write(ctx, req)
	if err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		return fmt.Errorf("write returned no result")
	}
	if resp.Results[0] != ua.StatusOK {
		return resp.Results[0]
	}
	return nil
}

func (n *uaNode) Metadata(ctx context.Context) (NodeMetadata, bool, error) {
	attrs, err := n.node.Attributes(ctx,
		ua.AttributeIDDataType,
		ua.AttributeIDValueRank,
		ua.AttributeIDArrayDimensions,
	)
	if err != nil {
		return NodeMetadata{}, false, err
	}
	if len(attrs) < 3 || attrs[0].Status != ua.StatusOK || attrs[0].Value == nil {
		return NodeMetadata{}, false, nil
	}

	var meta NodeMetadata
	if nid, ok := attrs[0].Value.Value().(*ua.NodeID); ok && nid != nil {
		meta.DataTypeID = nid.String()
	}
	if meta.DataTypeID == "" {
		return NodeMetadata{}, false, nil
	}
	if attrs[1].Status == ua.StatusOK && attrs[1].Value != nil {
		if rank, ok := attrs[1].Value.Value().(int32); ok {
			meta.ValueRank = rank
		}
	}
	if attrs[2].Status == ua.StatusOK && attrs[2].Value != nil {
		if dims, ok := attrs[2].Value.Value().([]uint32); ok {
			meta.ArrayDimensions = dims
		}
	}
	return meta, true, nil
}

// normalizeValue maps wire-level value shapes to the forms the decoder
// understands: extension objects become Structured records, localized
// text becomes plain strings.
func normalizeValue(variant *ua.Variant) any {
	if variant == nil {
		return nil
	}
	return normalizeRaw(variant.Value())
}

func normalizeRaw(raw any) any {
	switch v := raw.(type) {
	case *ua.ExtensionObject:
		return structuredFromExtensionObject(v)
	case []*ua.ExtensionObject:
		out := make([]any, 0, len(v))
		for _, eo := range v {
			out = append(out, structuredFromExtensionObject(eo))
		}
		return out
	case *ua.LocalizedText:
		if v == nil {
			return ""
		}
		return v.Text
	case []*ua.LocalizedText:
		out := make([]string, 0, len(v))
		for _, lt := range v {
			if lt != nil {
				out = append(out, lt.Text)
			}
		}
		return out
	case *ua.Variant:
		if v == nil {
			return nil
		}
		return normalizeRaw(v.Value())
	case []*ua.Variant:
		out := make([]any, 0, len(v))
		for _, elem := range v {
			out = append(out, normalizeRaw(elem))
		}
		return out
	default:
		return raw
	}
}

// structuredFromExtensionObject flattens a decoded extension object
// into an ordered field record via reflection. Objects gopcua could
// not decode pass through untouched.
func structuredFromExtensionObject(eo *ua.ExtensionObject) any {
	if eo == nil {
		return nil
	}
	rv := reflect.ValueOf(eo.Value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return eo.Value
	}

	record := &Structured{}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		record.Fields = append(record.Fields, StructuredField{
			Name:  f.Name,
			Value: normalizeRaw(rv.Field(i).Interface()),
		})
	}
	return record
}

// encodeVariant builds the wire variant for a typed value. Sequence
// values become typed arrays element by element.
func encodeVariant(v Variant) (*ua.Variant, error) {
	if v.Type == TypeNull || v.Value == nil {
		return &ua.Variant{}, nil
	}
	if seq, ok := asSequence(v.Value); ok {
		return encodeArray(seq, v.Type)
	}
	return ua.NewVariant(coerceScalar(v.Value, v.Type))
}

func encodeArray(seq []any, t TypeID) (*ua.Variant, error) {
	switch t {
	case TypeBoolean:
		out := make([]bool, len(seq))
		for i, e := range seq {
			out[i] = truthy(e)
		}
		return ua.NewVariant(out)
	case TypeInt32:
		out := make([]int32, len(seq))
		for i, e := range seq {
			if n, ok := asInteger(e); ok {
				out[i] = int32(n)
			}
		}
		return ua.NewVariant(out)
	case TypeDouble:
		out := make([]float64, len(seq))
		for i, e := range seq {
			if f, ok := asFloat(e); ok {
				out[i] = f
			}
		}
		return ua.NewVariant(out)
	case TypeString:
		out := make([]string, len(seq))
		for i, e := range seq {
			out[i] = fmt.Sprint(e)
		}
		return ua.NewVariant(out)
	default:
		// Heterogeneous sequences go out as an array of variants so
		// each element keeps its own wire type.
		out := make([]*ua.Variant, len(seq))
		for i, e := range seq {
			elem, err := encodeVariant(toVariant(e, TypeNull))
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return ua.NewVariant(out)
	}
}

func coerceScalar(value any, t TypeID) any {
	switch t {
	case TypeBoolean:
		return truthy(value)
	case TypeSByte:
		if n, ok := asInteger(value); ok {
			return int8(n)
		}
	case TypeByte:
		if n, ok := asInteger(value); ok {
			return uint8(n)
		}
	case TypeInt16:
		if n, ok := asInteger(value); ok {
			return int16(n)
		}
	case TypeUInt16:
		if n, ok := asInteger(value); ok {
			return uint16(n)
		}
	case TypeInt32:
		if n, ok := asInteger(value); ok {
			return int32(n)
		}
		if f, ok := asFloat(value); ok {
			return int32(f)
		}
	case TypeUInt32:
		if n, ok := asInteger(value); ok {
			return uint32(n)
		}
	case TypeInt64:
		if n, ok := asInteger(value); ok {
			return n
		}
	case TypeUInt64:
		if n, ok := asInteger(value); ok {
			return uint64(n)
		}
	case TypeFloat:
		if f, ok := asFloat(value); ok {
			return float32(f)
		}
		if n, ok := asInteger(value); ok {
			return float32(n)
		}
	case TypeDouble:
		if f, ok := asFloat(value); ok {
			return f
		}
		if n, ok := asInteger(value); ok {
			return float64(n)
		}
	case TypeDateTime:
		if ts, ok := value.(time.Time); ok {
			return ts
		}
	case TypeByteString:
		if b, ok := value.([]byte); ok {
			return b
		}
	case TypeString:
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprint(value)
	}
	return value
}
