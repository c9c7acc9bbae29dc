// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import "fmt"

// TypeID identifies the wire representation of a variant value.
//
// The numeric values match the OPC UA built-in type ids so adapters can
// map them directly onto the protocol encoding.
type TypeID uint8

const (
	// TypeNull is the null/empty variant
	TypeNull TypeID = 0

	// TypeBoolean is a single-bit true/false value
	TypeBoolean TypeID = 1

	// TypeSByte is a signed 8-bit integer
	TypeSByte TypeID = 2

	// TypeByte is an unsigned 8-bit integer
	TypeByte TypeID = 3

	// TypeInt16 is a signed 16-bit integer
	TypeInt16 TypeID = 4

	// TypeUInt16 is an unsigned 16-bit integer
	TypeUInt16 TypeID = 5

	// TypeInt32 is a signed 32-bit integer (default for integers)
	TypeInt32 TypeID = 6

	// TypeUInt32 is an unsigned 32-bit integer
	TypeUInt32 TypeID = 7

	// TypeInt64 is a signed 64-bit integer
	TypeInt64 TypeID = 8

	// TypeUInt64 is an unsigned 64-bit integer
	TypeUInt64 TypeID = 9

	// TypeFloat is a 32-bit floating point value
	TypeFloat TypeID = 10

	// TypeDouble is a 64-bit floating point value (default for floats)
	TypeDouble TypeID = 11

	// TypeString is a UTF-8 string
	TypeString TypeID = 12

	// TypeDateTime is a timestamp
	TypeDateTime TypeID = 13

	// TypeByteString is an opaque byte sequence
	TypeByteString TypeID = 15

	// TypeVariant is the generic/untyped wire kind, used when no more
	// specific type can be determined
	TypeVariant TypeID = 24
)

// String returns the canonical type name of a TypeID.
func (t TypeID) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypeBoolean:
		return "Boolean"
	case TypeSByte:
		return "SByte"
	case TypeByte:
		return "Byte"
	case TypeInt16:
		return "Int16"
	case TypeUInt16:
		return "UInt16"
	case TypeInt32:
		return "Int32"
	case TypeUInt32:
		return "UInt32"
	case TypeInt64:
		return "Int64"
	case TypeUInt64:
		return "UInt64"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	case TypeString:
		return "String"
	case TypeDateTime:
		return "DateTime"
	case TypeByteString:
		return "ByteString"
	case TypeVariant:
		return "Variant"
	default:
		return fmt.Sprintf("TypeID(%d)", uint8(t))
	}
}

// variantTypeNames maps canonical primitive type names to their wire
// variant kind. Names not in this table resolve to TypeVariant.
var variantTypeNames = map[string]TypeID{
	"Boolean":    TypeBoolean,
	"SByte":      TypeSByte,
	"Byte":       TypeByte,
	"Int16":      TypeInt16,
	"UInt16":     TypeUInt16,
	"Int32":      TypeInt32,
	"UInt32":     TypeUInt32,
	"Int64":      TypeInt64,
	"UInt64":     TypeUInt64,
	"Float":      TypeFloat,
	"Double":     TypeDouble,
	"String":     TypeString,
	"DateTime":   TypeDateTime,
	"ByteString": TypeByteString,
}

// Variant is the tagged value representation exchanged with the
// protocol collaborator. Type carries the wire kind and Value the Go
// value; the transport adapter coerces Value to the concrete encoding
// the wire kind requires.
type Variant struct {
	Type  TypeID
	Value any
}

// NullVariant returns the null/empty variant.
func NullVariant() Variant {
	return Variant{Type: TypeNull}
}
