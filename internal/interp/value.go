// Package interp is a reference interpreter for the IR. It executes one
// function at a time over a cell-addressed memory and backs the semantic
// equivalence tests of the regularizer as well as `spvregular eval`.
package interp

import (
	"fmt"
	"strconv"
	"strings"

	"spvregular/internal/ir"
	"spvregular/internal/types"
)

// Value is a runtime value. Integers and integer vectors keep one masked
// entry per lane in Lanes, pointers keep their address in Lanes[0], structs
// keep their members in Fields and function references set Func.
type Value struct {
	Type   types.TypeID
	Lanes  []uint64
	Fields []Value
	Func   *ir.Func
}

// Int returns a scalar integer (or pointer) value.
func Int(ty types.TypeID, v uint64) Value {
	return Value{Type: ty, Lanes: []uint64{v}}
}

// Vec returns a vector value.
func Vec(ty types.TypeID, lanes ...uint64) Value {
	return Value{Type: ty, Lanes: append([]uint64(nil), lanes...)}
}

// Scalar returns the first lane.
func (v Value) Scalar() uint64 {
	if len(v.Lanes) == 0 {
		return 0
	}
	return v.Lanes[0]
}

// Bool reports whether the first lane is non-zero.
func (v Value) Bool() bool {
	return v.Scalar() != 0
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || v.Func != o.Func || len(v.Lanes) != len(o.Lanes) || len(v.Fields) != len(o.Fields) {
		return false
	}
	for i := range v.Lanes {
		if v.Lanes[i] != o.Lanes[i] {
			return false
		}
	}
	for i := range v.Fields {
		if !v.Fields[i].Equal(o.Fields[i]) {
			return false
		}
	}
	return true
}

// Format renders v with its type, e.g. `i32 7`, `<2 x i8> <1, 2>`,
// `{ i32, i1 } { 5, 1 }`.
func Format(ts *types.Interner, v Value) string {
	return ts.String(v.Type) + " " + formatBare(v)
}

func formatBare(v Value) string {
	switch {
	case v.Func != nil:
		return "@" + v.Func.Name
	case v.Fields != nil:
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = formatBare(f)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case len(v.Lanes) == 1:
		return strconv.FormatUint(v.Lanes[0], 10)
	case len(v.Lanes) > 1:
		parts := make([]string, len(v.Lanes))
		for i, l := range v.Lanes {
			parts[i] = strconv.FormatUint(l, 10)
		}
		return "<" + strings.Join(parts, ", ") + ">"
	default:
		return "void"
	}
}

// Zero returns the all-zero value of ty. Undefined values evaluate to it.
func Zero(ts *types.Interner, ty types.TypeID) Value {
	switch ts.KindOf(ty) {
	case types.KindStruct:
		info, _ := ts.StructInfo(ty)
		v := Value{Type: ty, Fields: make([]Value, len(info.Fields))}
		for i, f := range info.Fields {
			v.Fields[i] = Zero(ts, f)
		}
		return v
	case types.KindInt, types.KindVector, types.KindPointer:
		return Value{Type: ty, Lanes: make([]uint64, ts.Lanes(ty))}
	default:
		return Value{Type: ty}
	}
}

// ParseArg parses a command-line argument as a value of type ty. Integers
// accept any strconv base prefix, vectors take comma-separated lanes.
func ParseArg(ts *types.Interner, ty types.TypeID, s string) (Value, error) {
	switch ts.KindOf(ty) {
	case types.KindInt, types.KindPointer:
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return Value{}, fmt.Errorf("argument %q: %w", s, err)
		}
		return Int(ty, n&laneMask(ts, ty)), nil
	case types.KindVector:
		parts := strings.Split(strings.Trim(s, "<>"), ",")
		if uint32(len(parts)) != ts.Lanes(ty) {
			return Value{}, fmt.Errorf("argument %q: want %d lanes", s, ts.Lanes(ty))
		}
		v := Value{Type: ty, Lanes: make([]uint64, len(parts))}
		for i, p := range parts {
			n, err := strconv.ParseUint(strings.TrimSpace(p), 0, 64)
			if err != nil {
				return Value{}, fmt.Errorf("argument %q lane %d: %w", s, i, err)
			}
			v.Lanes[i] = n & laneMask(ts, ty)
		}
		return v, nil
	default:
		return Value{}, fmt.Errorf("cannot pass %s on the command line", ts.String(ty))
	}
}

// laneMask returns the bit mask of one lane of ty; pointers are 64-bit.
func laneMask(ts *types.Interner, ty types.TypeID) uint64 {
	w, ok := ts.ScalarWidth(ty)
	if !ok {
		return ^uint64(0)
	}
	return ir.Mask(w)
}
