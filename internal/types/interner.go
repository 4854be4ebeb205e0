package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Void    TypeID
	I1      TypeID
	I8      TypeID
	I32     TypeID
	I64     TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	structs  []StructInfo
	fns      []FnInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
	}
	in.structs = append(in.structs, StructInfo{}) // reserve 0 as invalid sentinel
	in.fns = append(in.fns, FnInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.I1 = in.Intern(MakeInt(1))
	in.builtins.I8 = in.Intern(MakeInt(8))
	in.builtins.I32 = in.Intern(MakeInt(32))
	in.builtins.I64 = in.Intern(MakeInt(64))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Len reports how many descriptors the interner holds, the invalid sentinel included.
func (in *Interner) Len() int {
	return len(in.types)
}

// Intern ensures the provided descriptor has a stable TypeID.
// Structs and functions must go through RegisterStruct and RegisterFn.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if t.Kind == KindInt && (t.Width == 0 || t.Width > MaxIntWidth) {
		panic(fmt.Errorf("types: unsupported integer width %d", t.Width))
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	key := typeKey(t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Int returns the integer type of the given width.
func (in *Interner) Int(width uint8) TypeID {
	return in.Intern(MakeInt(width))
}

// Pointer returns a pointer to elem in address space 0.
func (in *Interner) Pointer(elem TypeID) TypeID {
	return in.Intern(MakePointer(elem, 0))
}

// Vector returns a vector of count lanes of elem.
func (in *Interner) Vector(elem TypeID, count uint32) TypeID {
	return in.Intern(MakeVector(elem, count))
}

type typeKey struct {
	Kind      Kind
	Elem      TypeID
	Count     uint32
	Width     uint8
	AddrSpace uint8
	Payload   uint32
}
