package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Void == NoTypeID || b.I1 == NoTypeID || b.I32 == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	i32, _ := in.Lookup(b.I32)
	if i32.Kind != KindInt || i32.Width != 32 {
		t.Fatalf("expected i32, got %v/%d", i32.Kind, i32.Width)
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	v1 := in.Vector(in.Builtins().I32, 4)
	v2 := in.Intern(MakeVector(in.Builtins().I32, 4))
	if v1 != v2 {
		t.Fatalf("vector types should be deduplicated")
	}
	if in.Vector(in.Builtins().I32, 2) == v1 {
		t.Fatalf("lane count must affect identity")
	}
}

func TestAddressSpaceAffectsIdentity(t *testing.T) {
	in := NewInterner()
	i8 := in.Builtins().I8
	global := in.Intern(MakePointer(i8, 1))
	private := in.Intern(MakePointer(i8, 0))
	if global == private {
		t.Fatalf("pointers in different address spaces must differ")
	}
}

func TestStructsAreStructural(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	s1 := in.RegisterStruct([]TypeID{b.I32, b.I1})
	s2 := in.RegisterStruct([]TypeID{b.I32, b.I1})
	if s1 != s2 {
		t.Fatalf("equal field lists should share a TypeID")
	}
	if got := in.FieldType(s1, 1); got != b.I1 {
		t.Fatalf("field 1: got %s", in.String(got))
	}
	if got := in.FieldType(s1, 2); got != NoTypeID {
		t.Fatalf("out of range field should be NoTypeID")
	}
}

func TestRegisterFnDeduplicates(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	f1 := in.RegisterFn([]TypeID{b.I32, b.I32}, b.I32)
	f2 := in.RegisterFn([]TypeID{b.I32, b.I32}, b.I32)
	if f1 != f2 {
		t.Fatalf("function types should be deduplicated")
	}
	if !in.IsFnPointer(in.Pointer(f1)) {
		t.Fatalf("pointer to fn should be a function pointer")
	}
	if in.IsFnPointer(in.Pointer(b.I8)) {
		t.Fatalf("i8* is not a function pointer")
	}
}

func TestStringAndMangle(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	cases := []struct {
		id      TypeID
		text    string
		mangled string
	}{
		{b.I32, "i32", "i32"},
		{in.Vector(in.Int(16), 4), "<4 x i16>", "v4i16"},
		{in.Intern(MakePointer(b.I8, 1)), "i8 addrspace(1)*", "p1i8"},
		{in.RegisterStruct([]TypeID{b.I64, b.I1}), "{ i64, i1 }", "sl_i64i1s"},
		{in.VoidFnPointer(), "void ()*", "p0f_isVoidf"},
	}
	for _, tc := range cases {
		if got := in.String(tc.id); got != tc.text {
			t.Errorf("String: got %q, want %q", got, tc.text)
		}
		if got := in.Mangle(tc.id); got != tc.mangled {
			t.Errorf("Mangle: got %q, want %q", got, tc.mangled)
		}
	}
}

func TestScalarHelpers(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	v := in.Vector(b.I8, 2)
	if w, ok := in.ScalarWidth(v); !ok || w != 8 {
		t.Fatalf("vector scalar width: %d %v", w, ok)
	}
	if in.Lanes(v) != 2 || in.Lanes(b.I8) != 1 {
		t.Fatalf("unexpected lane counts")
	}
	if got := in.WithScalar(v, b.I1); got != in.Vector(b.I1, 2) {
		t.Fatalf("WithScalar should keep lanes, got %s", in.String(got))
	}
	if in.IsIntLike(in.Pointer(b.I8)) {
		t.Fatalf("pointers are not int-like")
	}
}
