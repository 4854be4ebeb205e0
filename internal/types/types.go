package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindInt
	KindPointer
	KindVector
	KindStruct
	KindFn
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindPointer:
		return "pointer"
	case KindVector:
		return "vector"
	case KindStruct:
		return "struct"
	case KindFn:
		return "fn"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// MaxIntWidth is the widest integer the IR models.
const MaxIntWidth = 64

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind      Kind
	Elem      TypeID // pointee for pointers, lane type for vectors
	Count     uint32 // lane count for vectors
	Width     uint8  // bit width for integers
	AddrSpace uint8  // for pointers
	Payload   uint32 // side table slot for structs and functions
}

// Descriptor helpers ---------------------------------------------------------

// MakeInt describes an integer of the given bit width.
func MakeInt(width uint8) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakePointer describes a pointer to elem in the given address space.
func MakePointer(elem TypeID, addrSpace uint8) Type {
	return Type{Kind: KindPointer, Elem: elem, AddrSpace: addrSpace}
}

// MakeVector describes a fixed vector of count lanes.
func MakeVector(elem TypeID, count uint32) Type {
	return Type{Kind: KindVector, Elem: elem, Count: count}
}
