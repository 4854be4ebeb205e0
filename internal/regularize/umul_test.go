package regularize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"spvregular/internal/interp"
	"spvregular/internal/ir"
	"spvregular/internal/types"
)

func buildMulOverflow(t *testing.T, ty types.TypeID, m *ir.Module) types.TypeID {
	t.Helper()
	ts := m.Types
	pair := ts.RegisterStruct([]types.TypeID{ty, ts.WithScalar(ty, ts.Builtins().I1)})
	umul := declare(t, m, "llvm.umul.with.overflow."+ts.Mangle(ty), []types.TypeID{ty, ty}, pair)
	f, b := define(t, m, "mul", []types.TypeID{ty, ty}, pair)
	b.Ret(b.Call(umul, []ir.ValueID{f.Params[0], f.Params[1]}, "res"))
	return pair
}

func TestUMulWithOverflowHelper(t *testing.T) {
	for _, width := range []uint8{8, 16, 32, 64} {
		t.Run(fmt.Sprintf("i%d", width), func(t *testing.T) {
			m := ir.NewModule("mul", nil)
			ty := m.Types.Int(width)
			buildMulOverflow(t, ty, m)
			top := ir.Mask(width)
			half := uint64(1) << (width / 2)
			pairs := [][2]uint64{
				{0, 0}, {0, 1}, {0, top}, {1, top}, {top, 1}, {top, top},
				{2, top / 2}, {2, top/2 + 1}, {half, half}, {half - 1, half + 1}, {3, 5},
			}

			before := interp.New(m, interp.Options{})
			var want []interp.Value
			for _, p := range pairs {
				v, err := before.Call("mul", interp.Int(ty, p[0]), interp.Int(ty, p[1]))
				require.NoError(t, err)
				want = append(want, v)
			}

			mustRun(t, m)
			helper := m.Func("spirv.llvm_umul_with_overflow_i" + fmt.Sprint(width))
			require.NotNil(t, helper)
			require.Equal(t, "entry", helper.Blocks[0].Name)

			after := interp.New(m, interp.Options{})
			for i, p := range pairs {
				got, err := after.Call("mul", interp.Int(ty, p[0]), interp.Int(ty, p[1]))
				require.NoError(t, err, "pair %v", p)
				require.Equal(t, want[i].Fields[0].Scalar(), got.Fields[0].Scalar(), "product of %v", p)
				require.Equal(t, want[i].Fields[1].Scalar(), got.Fields[1].Scalar(), "overflow of %v", p)
			}
		})
	}
}

func TestUMulZeroOperandNeverOverflows(t *testing.T) {
	m := ir.NewModule("mul", nil)
	ty := m.Types.Builtins().I32
	buildMulOverflow(t, ty, m)
	mustRun(t, m)

	vm := interp.New(m, interp.Options{})
	for _, b := range []uint64{0, 1, 0xffffffff} {
		got, err := vm.Call("mul", interp.Int(ty, 0), interp.Int(ty, b))
		require.NoError(t, err)
		require.Zero(t, got.Fields[0].Scalar())
		require.False(t, got.Fields[1].Bool())
	}
}

func TestUMulVector(t *testing.T) {
	m := ir.NewModule("mul", nil)
	ty := m.Types.Vector(m.Types.Int(16), 2)
	buildMulOverflow(t, ty, m)
	mustRun(t, m)
	require.NotNil(t, m.Func("spirv.llvm_umul_with_overflow_v2i16"))

	got, err := interp.New(m, interp.Options{}).Call("mul", interp.Vec(ty, 0, 300), interp.Vec(ty, 7, 300))
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 90000 & 0xffff}, got.Fields[0].Lanes)
	require.Equal(t, []uint64{0, 1}, got.Fields[1].Lanes)
}
