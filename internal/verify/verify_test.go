package verify

import (
	"errors"
	"strings"
	"testing"

	"spvregular/internal/diag"
	"spvregular/internal/ir"
	"spvregular/internal/types"
)

func codes(bag *diag.Bag) map[diag.Code]int {
	out := make(map[diag.Code]int)
	for _, d := range bag.Items() {
		out[d.Code]++
	}
	return out
}

func addFunc(t *testing.T) (*ir.Module, *ir.Func, *ir.Builder) {
	t.Helper()
	m := ir.NewModule("m", nil)
	i32 := m.Types.Builtins().I32
	f, err := m.DeclareFunc("add", m.Types.RegisterFn([]types.TypeID{i32, i32}, i32))
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	return m, f, b
}

func TestStructureAcceptsWellFormed(t *testing.T) {
	m, f, b := addFunc(t)
	sum := b.Binary(ir.OpAdd, f.Params[0], f.Params[1], "sum")
	b.Ret(sum)

	if bag := Structure(m); bag.Len() != 0 {
		t.Fatalf("unexpected findings: %v", bag.Err())
	}
	if err := Module(m, "test"); err != nil {
		t.Fatalf("Module: %v", err)
	}
}

func TestStructureMissingTerminator(t *testing.T) {
	m, f, b := addFunc(t)
	b.Binary(ir.OpAdd, f.Params[0], f.Params[1], "sum")

	got := codes(Structure(m))
	if got[diag.VerMissingTerminator] != 1 {
		t.Fatalf("want one missing terminator, got %v", got)
	}
}

func TestStructureMisplacedTerminatorAndTypes(t *testing.T) {
	m, f, b := addFunc(t)
	i64 := m.Types.Builtins().I64
	b.Ret(f.Params[0])
	b.Ret(m.ConstInt(i64, 1))

	got := codes(Structure(m))
	if got[diag.VerMisplacedTerminator] != 1 {
		t.Fatalf("want misplaced terminator, got %v", got)
	}
	if got[diag.VerTypeMismatch] != 1 {
		t.Fatalf("want i64 return flagged, got %v", got)
	}
}

func TestStructureCallArity(t *testing.T) {
	m, f, b := addFunc(t)
	i32 := m.Types.Builtins().I32
	callee, err := m.DeclareFunc("one", m.Types.RegisterFn([]types.TypeID{i32}, i32))
	if err != nil {
		t.Fatal(err)
	}
	r := b.CallValue(callee.Ref(), m.Types.RegisterFn([]types.TypeID{i32, i32}, i32), []ir.ValueID{f.Params[0], f.Params[1]}, "r")
	b.Ret(r)

	if got := codes(Structure(m)); got[diag.VerArgCount] != 1 {
		t.Fatalf("want arg count finding, got %v", got)
	}
}

func TestRegularizedFindings(t *testing.T) {
	m, f, b := addFunc(t)
	ts := m.Types
	i32 := ts.Builtins().I32
	fshl, err := m.DeclareFunc("llvm.fshl.i32", ts.RegisterFn([]types.TypeID{i32, i32, i32}, i32))
	if err != nil {
		t.Fatal(err)
	}
	r := b.Call(fshl, []ir.ValueID{f.Params[0], f.Params[1], f.Params[1]}, "r")
	m.Instr(r).Call.Tail = ir.TailTail
	m.Instr(r).Call.Attrs = ir.AttrNoUnwind
	d := b.Binary(ir.OpUDiv, r, f.Params[1], "d")
	m.Instr(d).Binary.Exact = true
	m.Instr(d).SetMetadata("range", "0..8")
	m.Instr(d).SetMetadata("dbg", "!7")
	b.Ret(d)

	got := codes(Regularized(m))
	want := map[diag.Code]int{
		diag.RegIntrinsicRemains:  1,
		diag.RegTailMarker:        1,
		diag.RegIntrinsicNoUnwind: 1,
		diag.RegExactFlag:         1,
		diag.RegDroppedMetadata:   1,
	}
	for code, n := range want {
		if got[code] != n {
			t.Errorf("%s: got %d, want %d (all: %v)", code.ID(), got[code], n, got)
		}
	}

	err = Module(m, "regularize")
	if !errors.Is(err, ErrVerification) {
		t.Fatalf("want ErrVerification, got %v", err)
	}
	if !strings.Contains(err.Error(), "module m after regularize") {
		t.Fatalf("error does not name module and pass: %v", err)
	}
}

func TestRegularizedAcceptsConstantMemset(t *testing.T) {
	m := ir.NewModule("m", nil)
	ts := m.Types
	bt := ts.Builtins()
	p8 := ts.Pointer(bt.I8)
	memset, err := m.DeclareFunc("llvm.memset.p0i8.i32", ts.RegisterFn([]types.TypeID{p8, bt.I8, bt.I32, bt.I1}, bt.Void))
	if err != nil {
		t.Fatal(err)
	}
	f, err := m.DeclareFunc("clear", ts.RegisterFn([]types.TypeID{p8, bt.I8}, bt.Void))
	if err != nil {
		t.Fatal(err)
	}
	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	b.Call(memset, []ir.ValueID{f.Params[0], m.ConstInt(bt.I8, 0), m.ConstInt(bt.I32, 16), m.ConstInt(bt.I1, 0)}, "")
	b.Call(memset, []ir.ValueID{f.Params[0], f.Params[1], m.ConstInt(bt.I32, 16), m.ConstInt(bt.I1, 0)}, "")
	b.RetVoid()

	if got := codes(Regularized(m)); got[diag.RegIntrinsicRemains] != 1 {
		t.Fatalf("only the variable memset should be flagged, got %v", got)
	}
}

func TestRegularizedChecksNumberedBuiltinVariants(t *testing.T) {
	m := ir.NewModule("m", nil)
	ts := m.Types
	i32 := ts.Builtins().I32
	variant, err := m.DeclareFunc("__spirv_EnqueueKernel.1", ts.RegisterFn([]types.TypeID{i32, ts.VoidFnPointer()}, i32))
	if err != nil {
		t.Fatal(err)
	}
	child, err := m.DeclareFunc("child", ts.RegisterFn([]types.TypeID{i32}, ts.Builtins().Void))
	if err != nil {
		t.Fatal(err)
	}
	f, err := m.DeclareFunc("launch", ts.RegisterFn([]types.TypeID{i32}, i32))
	if err != nil {
		t.Fatal(err)
	}
	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	cast := b.Cast(ir.CastBitcast, child.Ref(), ts.VoidFnPointer(), "")
	b.Ret(b.Call(variant, []ir.ValueID{f.Params[0], cast}, ""))

	if got := codes(Regularized(m)); got[diag.RegFuncPtrCastRemains] != 1 {
		t.Fatalf("cast argument of the numbered variant should be flagged, got %v", got)
	}
}
