package types

import (
	"strconv"
	"strings"
)

// ScalarWidth returns the bit width of an integer type or of the lane type
// of an integer vector. The second result is false for any other type.
func (in *Interner) ScalarWidth(id TypeID) (uint8, bool) {
	tt, ok := in.Lookup(id)
	if !ok {
		return 0, false
	}
	switch tt.Kind {
	case KindInt:
		return tt.Width, true
	case KindVector:
		return in.ScalarWidth(tt.Elem)
	default:
		return 0, false
	}
}

// Lanes returns the vector lane count, or 1 for scalars.
func (in *Interner) Lanes(id TypeID) uint32 {
	tt, ok := in.Lookup(id)
	if ok && tt.Kind == KindVector {
		return tt.Count
	}
	return 1
}

// ScalarOf returns the lane type of a vector, or id itself.
func (in *Interner) ScalarOf(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if ok && tt.Kind == KindVector {
		return tt.Elem
	}
	return id
}

// WithScalar rebuilds id with its lane type replaced: a vector keeps its
// lane count, a scalar becomes elem.
func (in *Interner) WithScalar(id, elem TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if ok && tt.Kind == KindVector {
		return in.Vector(elem, tt.Count)
	}
	return elem
}

// IsIntLike reports whether id is an integer or a vector of integers.
func (in *Interner) IsIntLike(id TypeID) bool {
	_, ok := in.ScalarWidth(id)
	return ok
}

// KindOf returns the kind of id, or KindInvalid.
func (in *Interner) KindOf(id TypeID) Kind {
	tt, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}

// String renders id in the textual IR syntax.
func (in *Interner) String(id TypeID) string {
	var sb strings.Builder
	in.writeType(&sb, id)
	return sb.String()
}

func (in *Interner) writeType(sb *strings.Builder, id TypeID) {
	tt, ok := in.Lookup(id)
	if !ok {
		sb.WriteString("<invalid>")
		return
	}
	switch tt.Kind {
	case KindVoid:
		sb.WriteString("void")
	case KindInt:
		sb.WriteString("i")
		sb.WriteString(strconv.Itoa(int(tt.Width)))
	case KindPointer:
		in.writeType(sb, tt.Elem)
		if tt.AddrSpace != 0 {
			sb.WriteString(" addrspace(")
			sb.WriteString(strconv.Itoa(int(tt.AddrSpace)))
			sb.WriteString(")")
		}
		sb.WriteString("*")
	case KindVector:
		sb.WriteString("<")
		sb.WriteString(strconv.FormatUint(uint64(tt.Count), 10))
		sb.WriteString(" x ")
		in.writeType(sb, tt.Elem)
		sb.WriteString(">")
	case KindStruct:
		info, _ := in.StructInfo(id)
		sb.WriteString("{ ")
		if info != nil {
			for i, f := range info.Fields {
				if i > 0 {
					sb.WriteString(", ")
				}
				in.writeType(sb, f)
			}
		}
		sb.WriteString(" }")
	case KindFn:
		info, _ := in.FnInfo(id)
		if info == nil {
			sb.WriteString("<invalid fn>")
			return
		}
		in.writeType(sb, info.Result)
		sb.WriteString(" (")
		for i, p := range info.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			in.writeType(sb, p)
		}
		sb.WriteString(")")
	default:
		sb.WriteString(tt.Kind.String())
	}
}

// Mangle renders id the way overloaded intrinsic names spell their types:
// i32, v4i32, p1i8, sl_i32i1s, f_isVoidf.
func (in *Interner) Mangle(id TypeID) string {
	var sb strings.Builder
	in.writeMangled(&sb, id)
	return sb.String()
}

func (in *Interner) writeMangled(sb *strings.Builder, id TypeID) {
	tt, ok := in.Lookup(id)
	if !ok {
		sb.WriteString("x")
		return
	}
	switch tt.Kind {
	case KindVoid:
		sb.WriteString("isVoid")
	case KindInt:
		sb.WriteString("i")
		sb.WriteString(strconv.Itoa(int(tt.Width)))
	case KindPointer:
		sb.WriteString("p")
		sb.WriteString(strconv.Itoa(int(tt.AddrSpace)))
		in.writeMangled(sb, tt.Elem)
	case KindVector:
		sb.WriteString("v")
		sb.WriteString(strconv.FormatUint(uint64(tt.Count), 10))
		in.writeMangled(sb, tt.Elem)
	case KindStruct:
		sb.WriteString("sl_")
		if info, ok := in.StructInfo(id); ok {
			for _, f := range info.Fields {
				in.writeMangled(sb, f)
			}
		}
		sb.WriteString("s")
	case KindFn:
		sb.WriteString("f_")
		if info, ok := in.FnInfo(id); ok {
			in.writeMangled(sb, info.Result)
			for _, p := range info.Params {
				in.writeMangled(sb, p)
			}
		}
		sb.WriteString("f")
	}
}
