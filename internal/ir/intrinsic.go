package ir

import "strings"

// IntrinsicPrefix starts the name of every intrinsic function.
const IntrinsicPrefix = "llvm."

// IntrinsicID identifies the intrinsics the toolchain knows by name.
type IntrinsicID uint8

const (
	IntrinsicNone IntrinsicID = iota
	IntrinsicMemset
	IntrinsicFshl
	IntrinsicUMulWithOverflow
	IntrinsicOther
)

func (id IntrinsicID) String() string {
	switch id {
	case IntrinsicMemset:
		return "memset"
	case IntrinsicFshl:
		return "fshl"
	case IntrinsicUMulWithOverflow:
		return "umul.with.overflow"
	case IntrinsicOther:
		return "other"
	default:
		return "none"
	}
}

var intrinsicBases = []struct {
	base string
	id   IntrinsicID
}{
	{"llvm.memset", IntrinsicMemset},
	{"llvm.fshl", IntrinsicFshl},
	{"llvm.umul.with.overflow", IntrinsicUMulWithOverflow},
}

// IsIntrinsic reports whether f names an intrinsic.
func (f *Func) IsIntrinsic() bool {
	return f != nil && strings.HasPrefix(f.Name, IntrinsicPrefix)
}

// IntrinsicID classifies f by its name. Overloaded intrinsics carry type
// suffixes after the base name (llvm.fshl.i32, llvm.fshl.v4i16).
func (f *Func) IntrinsicID() IntrinsicID {
	if !f.IsIntrinsic() {
		return IntrinsicNone
	}
	for _, ib := range intrinsicBases {
		if f.Name == ib.base || strings.HasPrefix(f.Name, ib.base+".") {
			return ib.id
		}
	}
	return IntrinsicOther
}
