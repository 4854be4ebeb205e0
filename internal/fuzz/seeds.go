package fuzztests

import (
	"testing"

	"spvregular/internal/ir"
	"spvregular/internal/irfile"
	"spvregular/internal/types"
)

const maxSeedBytes = 64 << 10 // 64 KiB

func addCorpusSeeds(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte("not a module"))
	for _, m := range seedModules() {
		data, err := irfile.Marshal(m)
		if err != nil {
			f.Fatalf("seed %s: %v", m.Name, err)
		}
		f.Add(clampSeed(data))
	}
}

// seedModules covers every rewrite of the pass with small valid modules.
func seedModules() []*ir.Module {
	var out []*ir.Module

	m := ir.NewModule("rot", nil)
	i32 := m.Types.Builtins().I32
	fshl, _ := m.DeclareFunc("llvm.fshl.i32", m.Types.RegisterFn([]types.TypeID{i32, i32, i32}, i32))
	umul, _ := m.DeclareFunc("llvm.umul.with.overflow.i32",
		m.Types.RegisterFn([]types.TypeID{i32, i32}, m.Types.RegisterStruct([]types.TypeID{i32, m.Types.Builtins().I1})))
	f, _ := m.DeclareFunc("rot", m.Types.RegisterFn([]types.TypeID{i32, i32}, i32))
	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	r := b.Call(fshl, []ir.ValueID{f.Params[0], f.Params[0], f.Params[1]}, "r")
	p := b.Call(umul, []ir.ValueID{r, f.Params[1]}, "p")
	b.Ret(b.ExtractValue(p, 0, "lo"))
	out = append(out, m)

	m = ir.NewModule("fill", nil)
	bt := m.Types.Builtins()
	p8 := m.Types.Pointer(bt.I8)
	memset, _ := m.DeclareFunc("llvm.memset.p0i8.i32", m.Types.RegisterFn([]types.TypeID{p8, bt.I8, bt.I32, bt.I1}, bt.Void))
	f, _ = m.DeclareFunc("fill", m.Types.RegisterFn([]types.TypeID{p8, bt.I8, bt.I32}, bt.Void))
	b = ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	b.Call(memset, []ir.ValueID{f.Params[0], f.Params[1], f.Params[2], m.ConstInt(bt.I1, 0)}, "")
	b.RetVoid()
	out = append(out, m)

	m = ir.NewModule("cas", nil)
	i32 = m.Types.Builtins().I32
	f, _ = m.DeclareFunc("cas", m.Types.RegisterFn([]types.TypeID{m.Types.Pointer(i32), i32, i32}, i32))
	b = ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	pair := b.CmpXchg(f.Params[0], f.Params[1], f.Params[2], ir.OrderingSeqCst, ir.OrderingAcquire, "pair")
	b.Ret(b.ExtractValue(pair, 0, "old"))
	out = append(out, m)

	return out
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
