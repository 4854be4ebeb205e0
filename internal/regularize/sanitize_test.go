package regularize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"spvregular/internal/ir"
	"spvregular/internal/types"
)

func TestSanitizeStripsTargetlessFlags(t *testing.T) {
	m := ir.NewModule("s", nil)
	ts := m.Types
	i32 := ts.Builtins().I32
	ctpop := declare(t, m, "llvm.ctpop.i32", []types.TypeID{i32}, i32)
	helper := declare(t, m, "helper", []types.TypeID{i32}, i32)

	f, b := define(t, m, "f", []types.TypeID{i32, i32}, i32)
	pop := b.Call(ctpop, []ir.ValueID{f.Params[0]}, "pop")
	m.Instr(pop).Call.Tail = ir.TailTail
	m.Instr(pop).Call.Attrs = ir.AttrNoUnwind | ir.AttrReadNone
	h := b.Call(helper, []ir.ValueID{pop}, "h")
	m.Instr(h).Call.Tail = ir.TailMust
	m.Instr(h).Call.Attrs = ir.AttrNoUnwind
	m.Instr(h).SetMetadata("tbaa", "int")
	q := b.Binary(ir.OpLShr, h, f.Params[1], "q")
	m.Instr(q).Binary.Exact = true
	m.Instr(q).SetMetadata("range", "0,16")
	m.Instr(q).SetMetadata("fpmath", "2.5")
	m.Instr(q).SetMetadata("dbg", "!12")
	s := b.Binary(ir.OpAdd, q, f.Params[1], "s")
	m.Instr(s).Binary.NUW = true
	b.Ret(s)

	mustRun(t, m)

	popIn := m.Instr(pop)
	require.Equal(t, ir.TailNone, popIn.Call.Tail)
	require.Equal(t, ir.AttrReadNone, popIn.Call.Attrs, "only nounwind goes from intrinsic calls")
	require.Equal(t, ctpop, m.CalledFunc(pop), "intrinsics with a target form stay")

	hIn := m.Instr(h)
	require.Equal(t, ir.TailNone, hIn.Call.Tail)
	require.True(t, hIn.Call.Attrs.Has(ir.AttrNoUnwind), "plain calls keep nounwind")
	require.Empty(t, hIn.MD)

	qIn := m.Instr(q)
	require.False(t, qIn.Binary.Exact)
	require.Equal(t, []ir.MDAttachment{{Kind: "dbg", Value: "!12"}}, qIn.MD)
	require.True(t, m.Instr(s).Binary.NUW)
}

func TestDeadDeclarationsRemoved(t *testing.T) {
	m := ir.NewModule("d", nil)
	ts := m.Types
	i32 := ts.Builtins().I32
	declare(t, m, "unused_a", nil, i32)
	used := declare(t, m, "used", nil, i32)
	declare(t, m, "unused_b", []types.TypeID{i32}, ts.Builtins().Void)
	idle, b := define(t, m, "idle", nil, i32)
	b.Ret(m.ConstInt(i32, 0))
	_, b = define(t, m, "main", nil, i32)
	b.Ret(b.Call(used, nil, ""))

	mustRun(t, m)
	require.Nil(t, m.Func("unused_a"))
	require.Nil(t, m.Func("unused_b"))
	require.Same(t, used, m.Func("used"))
	require.Same(t, idle, m.Func("idle"), "unused definitions stay")

	var names []string
	for _, f := range m.Funcs {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"used", "idle", "main"}, names)
}
