package regularize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"spvregular/internal/interp"
	"spvregular/internal/ir"
	"spvregular/internal/spirv"
	"spvregular/internal/types"
)

// buildCAS defines cas(ptr, cmp, new) returning old*2 + success.
func buildCAS(t *testing.T) (*ir.Module, types.TypeID) {
	t.Helper()
	m := ir.NewModule("cas", nil)
	ts := m.Types
	i32 := ts.Builtins().I32
	ptr := ts.Pointer(i32)
	f, b := define(t, m, "cas", []types.TypeID{ptr, i32, i32}, i32)
	pair := b.CmpXchg(f.Params[0], f.Params[1], f.Params[2], ir.OrderingSeqCst, ir.OrderingAcquire, "pair")
	old := b.ExtractValue(pair, 0, "old")
	ok := b.ExtractValue(pair, 1, "ok")
	twice := b.Binary(ir.OpMul, old, m.ConstInt(i32, 2), "")
	b.Ret(b.Binary(ir.OpAdd, twice, b.Cast(ir.CastZExt, ok, i32, ""), ""))
	return m, ptr
}

func runCAS(t *testing.T, m *ir.Module, ptr types.TypeID, cell, cmp, newVal uint64) (uint64, uint64) {
	t.Helper()
	i32 := m.Types.Builtins().I32
	vm := interp.New(m, interp.Options{})
	addr := vm.Mem.Alloc(1)
	vm.Mem.Store(addr, interp.Int(i32, cell))
	got, err := vm.Call("cas", interp.Int(ptr, addr), interp.Int(i32, cmp), interp.Int(i32, newVal))
	require.NoError(t, err)
	stored, _ := vm.Mem.Load(addr)
	return got.Scalar(), stored.Scalar()
}

func TestCmpXchgDecomposedWithExtractConsumers(t *testing.T) {
	m, ptr := buildCAS(t)
	wantHit, wantHitCell := runCAS(t, m, ptr, 5, 5, 9)
	wantMiss, wantMissCell := runCAS(t, m, ptr, 9, 5, 1)
	require.Equal(t, uint64(11), wantHit)
	require.Equal(t, uint64(18), wantMiss)

	mustRun(t, m)
	require.Zero(t, countKind(m, ir.InstrCmpXchg))
	require.Zero(t, countKind(m, ir.InstrExtractValue))

	builtin := m.Func("__spirv_AtomicCompareExchange_i32")
	require.NotNil(t, builtin)
	calls := callsOf(m, m.Func("cas"))
	require.Len(t, calls, 1)
	res := m.Value(calls[0])
	require.Equal(t, "cmpxchg.res", res.Name)
	require.Equal(t, builtin, m.CalledFunc(calls[0]))

	args := res.Instr.Args()
	require.Len(t, args, 6)
	require.Equal(t, uint64(spirv.ScopeDevice), m.Value(args[1]).Int())
	require.Equal(t, uint64(spirv.SemanticsSequentiallyConsistent), m.Value(args[2]).Int())
	require.Equal(t, uint64(spirv.SemanticsAcquire), m.Value(args[3]).Int())
	f := m.Func("cas")
	require.Equal(t, f.Params[2], args[4], "new value")
	require.Equal(t, f.Params[1], args[5], "comparator")

	var success int
	for _, id := range f.Instrs() {
		if m.Value(id).Name == "cmpxchg.success" {
			success++
		}
	}
	require.Equal(t, 1, success)

	gotHit, gotHitCell := runCAS(t, m, ptr, 5, 5, 9)
	gotMiss, gotMissCell := runCAS(t, m, ptr, 9, 5, 1)
	require.Equal(t, wantHit, gotHit)
	require.Equal(t, wantHitCell, gotHitCell)
	require.Equal(t, wantMiss, gotMiss)
	require.Equal(t, wantMissCell, gotMissCell)
}

func TestCmpXchgWholeValueConsumer(t *testing.T) {
	m := ir.NewModule("cas", nil)
	ts := m.Types
	i32 := ts.Builtins().I32
	ptr := ts.Pointer(i32)
	pairTy := ts.RegisterStruct([]types.TypeID{i32, ts.Builtins().I1})
	f, b := define(t, m, "casw", []types.TypeID{ptr, i32, i32}, pairTy)
	pair := b.CmpXchg(f.Params[0], f.Params[1], f.Params[2], ir.OrderingMonotonic, ir.OrderingMonotonic, "")
	ret := b.Ret(pair)

	mustRun(t, m)
	rebuilt := m.Value(m.Instr(ret).Ops[0])
	require.Equal(t, "agg1", rebuilt.Name)
	require.Equal(t, ir.InstrInsertValue, rebuilt.Instr.Kind)
	require.Equal(t, "agg0", m.Value(rebuilt.Instr.Ops[0]).Name)

	vm := interp.New(m, interp.Options{})
	addr := vm.Mem.Alloc(1)
	vm.Mem.Store(addr, interp.Int(i32, 3))
	got, err := vm.Call("casw", interp.Int(ptr, addr), interp.Int(i32, 3), interp.Int(i32, 4))
	require.NoError(t, err)
	require.Equal(t, uint64(3), got.Fields[0].Scalar())
	require.True(t, got.Fields[1].Bool())

	got, err = vm.Call("casw", interp.Int(ptr, addr), interp.Int(i32, 3), interp.Int(i32, 8))
	require.NoError(t, err)
	require.Equal(t, uint64(4), got.Fields[0].Scalar())
	require.False(t, got.Fields[1].Bool())
}

// buildCASPhi defines casp(ptr, cmp, new, left) whose cmpxchg result reaches
// the return through a phi joined from two branches.
func buildCASPhi(t *testing.T) *ir.Module {
	t.Helper()
	m := ir.NewModule("cas", nil)
	ts := m.Types
	bt := ts.Builtins()
	pairTy := ts.RegisterStruct([]types.TypeID{bt.I32, bt.I1})
	f, b := define(t, m, "casp", []types.TypeID{ts.Pointer(bt.I32), bt.I32, bt.I32, bt.I1}, pairTy)
	left := m.NewBlock(f, "left")
	right := m.NewBlock(f, "right")
	join := m.NewBlock(f, "join")
	pair := b.CmpXchg(f.Params[0], f.Params[1], f.Params[2], ir.OrderingSeqCst, ir.OrderingSeqCst, "pair")
	b.CondBr(f.Params[3], left, right)
	b.SetInsertPoint(left)
	b.Br(join)
	b.SetInsertPoint(right)
	b.Br(join)
	b.SetInsertPoint(join)
	phi := b.Phi(pairTy, "joined")
	b.AddIncoming(phi, pair, left)
	b.AddIncoming(phi, pair, right)
	b.Ret(phi)
	return m
}

func runCASPhi(t *testing.T, m *ir.Module, cell, cmp, newVal uint64, left bool) (uint64, bool, uint64) {
	t.Helper()
	bt := m.Types.Builtins()
	ptr := m.Types.Pointer(bt.I32)
	var flag uint64
	if left {
		flag = 1
	}
	vm := interp.New(m, interp.Options{})
	addr := vm.Mem.Alloc(1)
	vm.Mem.Store(addr, interp.Int(bt.I32, cell))
	got, err := vm.Call("casp", interp.Int(ptr, addr), interp.Int(bt.I32, cmp), interp.Int(bt.I32, newVal), interp.Int(bt.I1, flag))
	require.NoError(t, err)
	stored, _ := vm.Mem.Load(addr)
	return got.Fields[0].Scalar(), got.Fields[1].Bool(), stored.Scalar()
}

func TestCmpXchgPhiConsumer(t *testing.T) {
	m := buildCASPhi(t)
	type outcome struct {
		old    uint64
		ok     bool
		stored uint64
	}
	run := func() []outcome {
		var out []outcome
		for _, left := range []bool{true, false} {
			for _, cell := range []uint64{5, 9} {
				old, ok, stored := runCASPhi(t, m, cell, 5, 7, left)
				out = append(out, outcome{old, ok, stored})
			}
		}
		return out
	}
	before := run()
	require.Equal(t, outcome{5, true, 7}, before[0])
	require.Equal(t, outcome{9, false, 9}, before[1])

	mustRun(t, m)
	require.Zero(t, countKind(m, ir.InstrCmpXchg))
	f := m.Func("casp")
	join := f.Blocks[len(f.Blocks)-1]
	phi := m.Instr(join.Instrs[0])
	require.Equal(t, ir.InstrPhi, phi.Kind)
	for _, op := range phi.Ops {
		rebuilt := m.Value(op)
		require.Equal(t, "agg1", rebuilt.Name)
		require.Equal(t, f.Blocks[0], rebuilt.Instr.Block)
	}

	require.Equal(t, before, run())
}

func TestCmpXchgNestedIndexIsInvariantViolation(t *testing.T) {
	m := ir.NewModule("cas", nil)
	ts := m.Types
	i32 := ts.Builtins().I32
	f, b := define(t, m, "casn", []types.TypeID{ts.Pointer(i32), i32, i32}, ts.Builtins().Void)
	pair := b.CmpXchg(f.Params[0], f.Params[1], f.Params[2], ir.OrderingSeqCst, ir.OrderingSeqCst, "")
	b.Insert(&ir.Instr{
		Kind:  ir.InstrExtractValue,
		Ops:   []ir.ValueID{pair},
		Field: ir.FieldInstr{Indices: []uint32{1, 0}},
	}, ts.Builtins().I1, "")
	b.RetVoid()

	err := Run(context.Background(), m, Options{})
	require.ErrorIs(t, err, ErrInvariant)
}
