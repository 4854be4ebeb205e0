package regularize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"spvregular/internal/ir"
	"spvregular/internal/testkit"
	"spvregular/internal/types"
)

func define(t *testing.T, m *ir.Module, name string, params []types.TypeID, result types.TypeID) (*ir.Func, *ir.Builder) {
	t.Helper()
	f, err := m.DeclareFunc(name, m.Types.RegisterFn(params, result))
	require.NoError(t, err)
	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	return f, b
}

func declare(t *testing.T, m *ir.Module, name string, params []types.TypeID, result types.TypeID) *ir.Func {
	t.Helper()
	f, err := m.DeclareFunc(name, m.Types.RegisterFn(params, result))
	require.NoError(t, err)
	return f
}

func mustRun(t *testing.T, m *ir.Module) {
	t.Helper()
	require.NoError(t, Run(context.Background(), m, Options{}))
	require.NoError(t, testkit.CheckUseLists(m))
}

// callsOf lists the calls of f in layout order.
func callsOf(m *ir.Module, f *ir.Func) []ir.ValueID {
	var out []ir.ValueID
	for _, id := range f.Instrs() {
		if in := m.Instr(id); in.Kind == ir.InstrCall {
			out = append(out, id)
		}
	}
	return out
}

func countKind(m *ir.Module, kind ir.InstrKind) int {
	n := 0
	for _, f := range m.Funcs {
		for _, id := range f.Instrs() {
			if m.Instr(id).Kind == kind {
				n++
			}
		}
	}
	return n
}
