package irfile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"spvregular/internal/ir"
	"spvregular/internal/types"
)

// Decode reads a module from r.
func Decode(r io.Reader) (*ir.Module, error) {
	var fm fileModule
	if err := msgpack.NewDecoder(r).Decode(&fm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return rebuild(&fm)
}

// Unmarshal decodes a module from data.
func Unmarshal(data []byte) (*ir.Module, error) {
	return Decode(bytes.NewReader(data))
}

type decoder struct {
	fm    *fileModule
	ts    *types.Interner
	m     *ir.Module
	tys   []types.TypeID
	vals  []ir.ValueID
	funcs []*ir.Func
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

func rebuild(fm *fileModule) (*ir.Module, error) {
	if fm.Schema != SchemaVersion {
		return nil, corrupt("schema %d, want %d", fm.Schema, SchemaVersion)
	}
	d := &decoder{fm: fm, ts: types.NewInterner()}
	if err := d.replayTypes(); err != nil {
		return nil, err
	}
	d.m = ir.NewModule(fm.Name, d.ts)

	for _, ff := range fm.Funcs {
		if err := d.declare(ff); err != nil {
			return nil, err
		}
	}
	nInstrs := 0
	for _, ff := range fm.Funcs {
		for _, fb := range ff.Blocks {
			nInstrs += len(fb.Instrs)
		}
	}
	instrBase := len(d.vals)
	d.vals = append(d.vals, make([]ir.ValueID, nInstrs)...)
	for i, c := range fm.Consts {
		id, err := d.constant(c)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		d.vals = append(d.vals, id)
	}

	blocks := make([][]*ir.Block, len(fm.Funcs))
	for i, ff := range fm.Funcs {
		for _, fb := range ff.Blocks {
			blocks[i] = append(blocks[i], d.m.NewBlock(d.funcs[i], fb.Name))
		}
	}

	b := ir.NewBuilder(d.m)
	pending := make([]*fileInstr, 0, nInstrs)
	next := instrBase
	for i, ff := range fm.Funcs {
		for j, fb := range ff.Blocks {
			b.SetInsertPoint(blocks[i][j])
			for k := range fb.Instrs {
				fi := &fb.Instrs[k]
				in, err := d.instr(fi, blocks[i])
				if err != nil {
					return nil, fmt.Errorf("@%s block %d instr %d: %w", ff.Name, j, k, err)
				}
				ty, err := d.typ(fi.Type)
				if err != nil {
					return nil, err
				}
				d.vals[next] = b.Insert(in, ty, fi.Name)
				next++
				pending = append(pending, fi)
			}
		}
	}
	for i, fi := range pending {
		user := d.vals[instrBase+i]
		for slot, num := range fi.Ops {
			if int(num) >= len(d.vals) {
				return nil, corrupt("%%%d operand %d: value %d out of range", user, slot, num)
			}
			d.m.SetOperand(user, slot, d.vals[num])
		}
	}
	return d.m, nil
}

func (d *decoder) typ(ref uint32) (types.TypeID, error) {
	if ref == 0 {
		return types.NoTypeID, nil
	}
	if int(ref) > len(d.tys) {
		return types.NoTypeID, corrupt("type %d out of range", ref)
	}
	return d.tys[ref-1], nil
}

func (d *decoder) typeList(refs []uint32) ([]types.TypeID, error) {
	out := make([]types.TypeID, 0, len(refs))
	for _, r := range refs {
		t, err := d.typ(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (d *decoder) replayTypes() error {
	for i, ft := range d.fm.Types {
		// entries only refer to earlier slots
		if err := checkRefs(ft, uint32(i)); err != nil {
			return err
		}
		var id types.TypeID
		switch types.Kind(ft.Kind) {
		case types.KindVoid:
			id = d.ts.Builtins().Void
		case types.KindInt:
			if ft.Width == 0 || ft.Width > types.MaxIntWidth {
				return corrupt("integer width %d", ft.Width)
			}
			id = d.ts.Int(ft.Width)
		case types.KindPointer:
			elem, _ := d.typ(ft.Elem)
			id = d.ts.Intern(types.MakePointer(elem, ft.AddrSpace))
		case types.KindVector:
			elem, _ := d.typ(ft.Elem)
			if ft.Count == 0 || !d.ts.IsIntLike(elem) {
				return corrupt("vector of %d x %s", ft.Count, d.ts.String(elem))
			}
			id = d.ts.Vector(elem, ft.Count)
		case types.KindStruct:
			fields, _ := d.typeList(ft.Fields)
			id = d.ts.RegisterStruct(fields)
		case types.KindFn:
			params, _ := d.typeList(ft.Fields)
			result, _ := d.typ(ft.Result)
			if result == types.NoTypeID {
				return corrupt("function type without result")
			}
			id = d.ts.RegisterFn(params, result)
		default:
			return corrupt("type kind %d", ft.Kind)
		}
		d.tys = append(d.tys, id)
	}
	return nil
}

func checkRefs(ft fileType, limit uint32) error {
	refs := append([]uint32{ft.Elem, ft.Result}, ft.Fields...)
	for _, r := range refs {
		if r > limit {
			return corrupt("type %d refers forward to %d", limit+1, r)
		}
	}
	return nil
}

func (d *decoder) declare(ff fileFunc) error {
	sig, err := d.typ(ff.Sig)
	if err != nil {
		return err
	}
	f, err := d.m.DeclareFunc(ff.Name, sig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	f.Attrs = ir.Attr(ff.Attrs)
	if ff.ParamAttrs != nil {
		if len(ff.ParamAttrs) != len(f.Params) {
			return corrupt("@%s: %d param attrs for %d params", ff.Name, len(ff.ParamAttrs), len(f.Params))
		}
		for i, pa := range ff.ParamAttrs {
			f.ParamAttrs[i] = ir.ParamAttrs{Align: pa.Align, ImmArg: pa.ImmArg, NoCapture: pa.NoCapture}
		}
	}
	if ff.ParamNames != nil {
		if len(ff.ParamNames) != len(f.Params) {
			return corrupt("@%s: %d param names for %d params", ff.Name, len(ff.ParamNames), len(f.Params))
		}
		for i, name := range ff.ParamNames {
			d.m.Value(f.Params[i]).Name = name
		}
	}
	d.funcs = append(d.funcs, f)
	d.vals = append(d.vals, f.Ref())
	d.vals = append(d.vals, f.Params...)
	return nil
}

func (d *decoder) constant(c fileConst) (ir.ValueID, error) {
	ty, err := d.typ(c.Type)
	if err != nil {
		return ir.NoValueID, err
	}
	if ty == types.NoTypeID {
		return ir.NoValueID, corrupt("constant without type")
	}
	if c.Undef {
		return d.m.Undef(ty), nil
	}
	if !d.ts.IsIntLike(ty) || uint32(len(c.Lanes)) != d.ts.Lanes(ty) {
		return ir.NoValueID, corrupt("%d lanes for %s", len(c.Lanes), d.ts.String(ty))
	}
	return d.m.ConstLanes(ty, c.Lanes), nil
}

func (d *decoder) instr(fi *fileInstr, blocks []*ir.Block) (*ir.Instr, error) {
	kind := ir.InstrKind(fi.Kind)
	if kind == ir.InstrInvalid || kind > ir.InstrUnreachable {
		return nil, corrupt("instruction kind %d", fi.Kind)
	}
	in := &ir.Instr{Kind: kind, Ops: make([]ir.ValueID, len(fi.Ops))}
	for i := range in.Ops {
		in.Ops[i] = ir.NoValueID
	}
	var targets []*ir.Block
	for _, idx := range fi.Blocks {
		if int(idx) >= len(blocks) {
			return nil, corrupt("block %d out of range", idx)
		}
		targets = append(targets, blocks[idx])
	}
	switch kind {
	case ir.InstrBinary:
		in.Binary = ir.BinaryInstr{
			Op:    ir.BinaryOp(fi.Op),
			Exact: fi.Flags&flagExact != 0,
			NUW:   fi.Flags&flagNUW != 0,
			NSW:   fi.Flags&flagNSW != 0,
		}
	case ir.InstrICmp:
		in.ICmp.Pred = ir.ICmpPred(fi.Op)
	case ir.InstrCast:
		in.Cast.Op = ir.CastOp(fi.Op)
	case ir.InstrCall:
		if len(fi.Ops) == 0 {
			return nil, corrupt("call without callee")
		}
		in.Call = ir.CallInstr{Tail: ir.TailKind(fi.Tail), Attrs: ir.Attr(fi.Attrs), ArgAlign: fi.Align}
	case ir.InstrExtractValue, ir.InstrInsertValue:
		in.Field.Indices = fi.Indices
	case ir.InstrLoad, ir.InstrStore:
		in.Mem = ir.MemInstr{Align: fi.Mem, Volatile: fi.Flags&flagVolatile != 0}
	case ir.InstrCmpXchg:
		in.Mem = ir.MemInstr{Align: fi.Mem, Volatile: fi.Flags&flagVolatile != 0}
		in.CmpXchg = ir.CmpXchgInstr{
			Success: ir.Ordering(fi.Success),
			Failure: ir.Ordering(fi.Failure),
			Weak:    fi.Flags&flagWeak != 0,
		}
	case ir.InstrPhi:
		if len(targets) != len(fi.Ops) {
			return nil, corrupt("phi with %d values and %d blocks", len(fi.Ops), len(targets))
		}
		in.Phi.Blocks = targets
	case ir.InstrBr, ir.InstrCondBr:
		in.Br.Targets = targets
	}
	for _, md := range fi.MD {
		in.MD = append(in.MD, ir.MDAttachment{Kind: md.Kind, Value: md.Value})
	}
	return in, nil
}
