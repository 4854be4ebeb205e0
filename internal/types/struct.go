package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// StructInfo stores the field types of a literal struct type.
type StructInfo struct {
	Fields []TypeID
}

// RegisterStruct creates or finds a literal struct type with the given fields.
// Literal structs are structural: equal field lists yield the same TypeID.
func (in *Interner) RegisterStruct(fields []TypeID) TypeID {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		tt := in.types[id]
		if tt.Kind != KindStruct || int(tt.Payload) >= len(in.structs) {
			continue
		}
		if slices.Equal(in.structs[tt.Payload].Fields, fields) {
			return id
		}
	}
	in.structs = append(in.structs, StructInfo{Fields: cloneTypeArgs(fields)})
	slot, err := safecast.Conv[uint32](len(in.structs) - 1)
	if err != nil {
		panic(fmt.Errorf("struct info overflow: %w", err))
	}
	return in.internRaw(Type{Kind: KindStruct, Payload: slot})
}

// StructInfo returns the field list for a struct TypeID.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindStruct {
		return nil, false
	}
	if int(tt.Payload) >= len(in.structs) {
		return nil, false
	}
	return &in.structs[tt.Payload], true
}

// FieldType returns the type of field idx of a struct, or NoTypeID.
func (in *Interner) FieldType(id TypeID, idx uint32) TypeID {
	info, ok := in.StructInfo(id)
	if !ok || int(idx) >= len(info.Fields) {
		return NoTypeID
	}
	return info.Fields[idx]
}
