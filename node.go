// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"
	"time"
)

// NodeClass identifies the kind of an address-space node.
//
// The numeric values match the OPC UA NodeClass enumeration so adapters
// can map them directly.
type NodeClass uint32

const (
	// NodeClassUnspecified is returned when the class cannot be determined
	NodeClassUnspecified NodeClass = 0

	// NodeClassObject is a folder-like node that groups other nodes
	NodeClassObject NodeClass = 1

	// NodeClassVariable is a node that carries a readable/writable value
	NodeClassVariable NodeClass = 2

	// NodeClassMethod is a callable node (not used by this layer)
	NodeClassMethod NodeClass = 4

	// NodeClassDataType is a type-definition node
	NodeClassDataType NodeClass = 64
)

// Node is an opaque handle to one address-space entry.
//
// Handles are produced by the Conn implementation; this layer never
// constructs them, only receives and passes them. Identity is the node
// identifier string returned by ID, which is stable for the lifetime of
// the owning connection.
//
// All accessor errors are protocol-level failures. Batch-shaped callers
// in this package treat them as "this node has no match / no children"
// rather than aborting the surrounding operation.
type Node interface {
	// ID returns the node identifier in its canonical string form.
	// Used for cycle detection and as a TypeCache key.
	ID() string

	// DisplayName returns the human-readable node name.
	DisplayName(ctx context.Context) (string, error)

	// BrowseName returns the programmatic node name.
	BrowseName(ctx context.Context) (string, error)

	// Class returns the node class.
	Class(ctx context.Context) (NodeClass, error)

	// Children returns the node's direct children in server order.
	Children(ctx context.Context) ([]Node, error)

	// ReadValue reads the node's current value attribute. Structured
	// wire records are surfaced as *Structured, arrays as []any.
	ReadValue(ctx context.Context) (any, error)

	// WriteValue writes a wire variant to the node's value attribute.
	WriteValue(ctx context.Context, v Variant) error

	// Metadata reads the declared data-type identifier, value rank and
	// array dimensions in one round-trip. ok is false when the data
	// type cannot be determined.
	Metadata(ctx context.Context) (meta NodeMetadata, ok bool, err error)
}

// NodeMetadata is the declared type information of a variable node.
type NodeMetadata struct {
	// DataTypeID is the type identifier in its canonical string form
	DataTypeID string

	// ValueRank is the declared rank (-1 scalar, 1 one-dimensional, ...)
	ValueRank int32

	// ArrayDimensions lists the declared dimension sizes, if any
	ArrayDimensions []uint32
}

// Conn is the protocol-client contract consumed by this layer.
//
// Session establishment, secure transport and request encoding live
// behind this interface; the production implementation in gopcua.go
// adapts the gopcua stack. Tests substitute an in-memory address space.
type Conn interface {
	// ObjectsRoot returns the top-level objects container node.
	ObjectsRoot() Node

	// TypeNode resolves a type identifier (string form of a node id) to
	// its definition node. ok is false when the id cannot be resolved.
	TypeNode(ctx context.Context, typeID string) (n Node, ok bool)

	// Close terminates the session. Safe to call on a broken connection.
	Close(ctx context.Context) error
}

// Dialer establishes a connection to an address-space server.
//
// The default dialer (see gopcua.go) speaks OPC UA binary over TCP.
// A custom dialer can be injected with the WithDialer option, primarily
// for tests.
type Dialer func(ctx context.Context, endpoint string, timeout time.Duration) (Conn, error)

// Structured is the explicit raw form of an extension/structured wire
// record. Adapters normalize protocol-specific record encodings into
// this shape so the codec can decide structure-ness from declared
// metadata instead of runtime introspection.
type Structured struct {
	// Fields holds the record's values in wire order. Name may be empty
	// when the encoding carries values only positionally.
	Fields []StructuredField
}

// StructuredField is one field of a Structured record.
type StructuredField struct {
	Name  string
	Value any
}

// field returns the value carried under name, or ok=false.
func (s *Structured) field(name string) (any, bool) {
	for _, f := range s.Fields {
		if f.Name != "" && f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}
