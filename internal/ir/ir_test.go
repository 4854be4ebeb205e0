package ir_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"spvregular/internal/ir"
	"spvregular/internal/testkit"
	"spvregular/internal/types"
)

// addModule builds `i32 @add(i32, i32)` returning the sum, plus an unused
// declaration `void @ext()`.
func addModule(t *testing.T) (*ir.Module, *ir.Func, ir.ValueID) {
	t.Helper()
	m := ir.NewModule("m", nil)
	i32 := m.Types.Builtins().I32
	f, err := m.DeclareFunc("add", m.Types.RegisterFn([]types.TypeID{i32, i32}, i32))
	require.NoError(t, err)
	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	sum := b.Binary(ir.OpAdd, f.Params[0], f.Params[1], "sum")
	b.Ret(sum)
	_, err = m.DeclareFunc("ext", m.Types.RegisterFn(nil, m.Types.Builtins().Void))
	require.NoError(t, err)
	return m, f, sum
}

func TestDeclareFunc(t *testing.T) {
	m, f, _ := addModule(t)
	require.Same(t, f, m.Func("add"))
	require.False(t, f.IsDeclaration())
	require.True(t, m.Func("ext").IsDeclaration())

	_, err := m.DeclareFunc("add", f.Sig)
	require.Error(t, err)

	got, created, err := m.GetOrInsertFunc("add", f.Sig)
	require.NoError(t, err)
	require.False(t, created)
	require.Same(t, f, got)

	_, _, err = m.GetOrInsertFunc("add", m.Types.RegisterFn(nil, m.Types.Builtins().I32))
	require.Error(t, err)
}

func TestUseListsFollowMutation(t *testing.T) {
	m, f, sum := addModule(t)
	require.Equal(t, 1, m.Value(sum).NumUses())
	require.Equal(t, 1, m.Value(f.Params[0]).NumUses())

	err := m.Erase(sum)
	require.ErrorIs(t, err, ir.ErrHasUses)

	zero := m.ConstInt(m.Types.Builtins().I32, 0)
	require.Equal(t, zero, m.ConstInt(m.Types.Builtins().I32, 0))
	m.ReplaceAllUsesWith(sum, zero)
	require.False(t, m.Value(sum).HasUses())
	require.Equal(t, 1, m.Value(zero).NumUses())

	require.True(t, m.EraseIfUnused(sum))
	require.Nil(t, m.Value(sum))
	require.False(t, m.Value(f.Params[0]).HasUses())
	require.NoError(t, testkit.CheckUseLists(m))
}

func TestRemoveFunc(t *testing.T) {
	m, f, _ := addModule(t)
	i32 := m.Types.Builtins().I32
	caller, err := m.DeclareFunc("caller", m.Types.RegisterFn(nil, i32))
	require.NoError(t, err)
	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(caller, "entry"))
	one := m.ConstInt(i32, 1)
	call := b.Call(f, []ir.ValueID{one, one}, "r")
	ret := b.Ret(call)

	require.ErrorIs(t, m.RemoveFunc(f), ir.ErrHasUses)

	ext := m.Func("ext")
	foreign, err := m.DeclareFunc("foreign", m.Types.RegisterFn([]types.TypeID{i32}, i32))
	require.NoError(t, err)
	b.SetInsertBefore(ret)
	b.Binary(ir.OpAdd, foreign.Params[0], one, "")
	require.ErrorIs(t, m.RemoveFunc(foreign), ir.ErrHasUses)
	require.NotNil(t, m.Func("foreign"))
	require.NoError(t, m.RemoveFunc(ext))

	require.NoError(t, m.RemoveFunc(caller))
	require.NoError(t, m.RemoveFunc(f))
	require.NoError(t, m.RemoveFunc(foreign))
	require.Nil(t, m.Func("add"))
	require.Empty(t, m.Funcs)
	require.NoError(t, testkit.CheckUseLists(m))
}

func TestDump(t *testing.T) {
	m, _, _ := addModule(t)
	out := ir.DumpString(m)
	require.True(t, strings.HasPrefix(out, "; module m\n"))
	require.Contains(t, out, "define i32 @add(i32 %")
	require.Contains(t, out, "%sum = add i32 %")
	require.Contains(t, out, "ret i32 %sum")
	require.Contains(t, out, "declare void @ext()")
	require.NotContains(t, out, "uses=")

	var sb strings.Builder
	require.NoError(t, ir.Dump(&sb, m, ir.DumpOptions{ShowUses: true}))
	require.Contains(t, sb.String(), "; uses=1")
}
