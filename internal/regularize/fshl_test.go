package regularize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"spvregular/internal/interp"
	"spvregular/internal/ir"
	"spvregular/internal/types"
)

func buildRotate(t *testing.T, width uint8, lanes uint32) (*ir.Module, types.TypeID) {
	t.Helper()
	m := ir.NewModule("rot", nil)
	ts := m.Types
	ty := ts.Int(width)
	if lanes > 1 {
		ty = ts.Vector(ty, lanes)
	}
	fshl := declare(t, m, "llvm.fshl."+ts.Mangle(ty), []types.TypeID{ty, ty, ty}, ty)
	fshl.Attrs = ir.AttrNoUnwind | ir.AttrReadNone
	f, b := define(t, m, "rotate", []types.TypeID{ty, ty, ty}, ty)
	r := b.Call(fshl, []ir.ValueID{f.Params[0], f.Params[1], f.Params[2]}, "r")
	m.Instr(r).Call.Attrs = ir.AttrNoUnwind
	b.Ret(r)
	return m, ty
}

func rotateAmounts(width uint8) []uint64 {
	n := uint64(width)
	return []uint64{0, 1, n / 2, n - 1, n, n + 3, 2*n + 5, 0xff}
}

func TestFshlHelperMatchesIntrinsic(t *testing.T) {
	for _, width := range []uint8{8, 16, 32, 64} {
		for _, lanes := range []uint32{1, 2, 4} {
			t.Run(fmt.Sprintf("i%d_x%d", width, lanes), func(t *testing.T) {
				m, ty := buildRotate(t, width, lanes)
				mask := ir.Mask(width)
				amounts := rotateAmounts(width)

				type input struct{ a, b, c interp.Value }
				var inputs []input
				for i, amt := range amounts {
					a := make([]uint64, lanes)
					bv := make([]uint64, lanes)
					c := make([]uint64, lanes)
					for l := range lanes {
						a[l] = (0x0123456789abcdef + uint64(i)*0x1111 + uint64(l)) & mask
						bv[l] = (0xfedcba9876543210 ^ uint64(l)<<3) & mask
						c[l] = (amt + uint64(l)) & mask
					}
					inputs = append(inputs, input{interp.Vec(ty, a...), interp.Vec(ty, bv...), interp.Vec(ty, c...)})
				}

				before := interp.New(m, interp.Options{})
				var want []interp.Value
				for _, in := range inputs {
					v, err := before.Call("rotate", in.a, in.b, in.c)
					require.NoError(t, err)
					want = append(want, v)
				}

				mustRun(t, m)
				helper := m.Func("spirv.llvm_fshl_" + m.Types.Mangle(ty))
				require.NotNil(t, helper)
				require.Nil(t, m.Func("llvm.fshl."+m.Types.Mangle(ty)), "intrinsic declaration should be gone")
				require.Len(t, helper.Blocks, 1)
				require.Equal(t, "rotate", helper.Blocks[0].Name)

				call := callsOf(m, m.Func("rotate"))[0]
				require.Equal(t, helper, m.CalledFunc(call))
				require.False(t, m.Instr(call).Call.Attrs.Has(ir.AttrNoUnwind))

				after := interp.New(m, interp.Options{})
				for i, in := range inputs {
					got, err := after.Call("rotate", in.a, in.b, in.c)
					require.NoError(t, err)
					require.Equal(t, want[i].Lanes, got.Lanes, "input %d", i)
				}
			})
		}
	}
}

func TestFshlZeroRotateReturnsFirstOperand(t *testing.T) {
	m, ty := buildRotate(t, 32, 1)
	mustRun(t, m)
	got, err := interp.New(m, interp.Options{}).Call("rotate",
		interp.Int(ty, 0xdeadbeef), interp.Int(ty, 0x12345678), interp.Int(ty, 64))
	require.NoError(t, err)
	require.Equal(t, uint64(0xdeadbeef), got.Scalar())
}

func TestFshlHelperSynthesizedOncePerType(t *testing.T) {
	m := ir.NewModule("rot", nil)
	ts := m.Types
	i16 := ts.Int(16)
	i32 := ts.Builtins().I32
	f16 := declare(t, m, "llvm.fshl.i16", []types.TypeID{i16, i16, i16}, i16)
	f32 := declare(t, m, "llvm.fshl.i32", []types.TypeID{i32, i32, i32}, i32)
	f, b := define(t, m, "mix", []types.TypeID{i16, i32}, i32)
	x := b.Call(f32, []ir.ValueID{f.Params[1], f.Params[1], m.ConstInt(i32, 3)}, "")
	y := b.Call(f32, []ir.ValueID{x, f.Params[1], m.ConstInt(i32, 7)}, "")
	b.Call(f16, []ir.ValueID{f.Params[0], f.Params[0], m.ConstInt(i16, 1)}, "")
	b.Ret(y)

	mustRun(t, m)
	h32 := m.Func("spirv.llvm_fshl_i32")
	h16 := m.Func("spirv.llvm_fshl_i16")
	require.NotNil(t, h32)
	require.NotNil(t, h16)
	require.Len(t, h32.Uses(), 2)
	require.Len(t, h16.Uses(), 1)
}
