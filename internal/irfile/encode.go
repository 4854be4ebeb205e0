package irfile

import (
	"bytes"
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"spvregular/internal/ir"
	"spvregular/internal/types"
)

type encoder struct {
	m       *ir.Module
	out     fileModule
	typeIdx map[types.TypeID]uint32
	valIdx  map[ir.ValueID]uint32
}

// Encode writes m to w.
func Encode(w io.Writer, m *ir.Module) error {
	fm, err := flatten(m)
	if err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(fm)
}

// Marshal returns the encoding of m.
func Marshal(m *ir.Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flatten(m *ir.Module) (*fileModule, error) {
	e := &encoder{
		m:       m,
		typeIdx: make(map[types.TypeID]uint32),
		valIdx:  make(map[ir.ValueID]uint32),
	}
	e.out.Schema = SchemaVersion
	e.out.Name = m.Name

	var next uint32
	number := func(id ir.ValueID) {
		e.valIdx[id] = next
		next++
	}
	for _, f := range m.Funcs {
		number(f.Ref())
		for _, p := range f.Params {
			number(p)
		}
	}
	for _, f := range m.Funcs {
		for _, id := range f.Instrs() {
			number(id)
		}
	}
	for _, f := range m.Funcs {
		for _, id := range f.Instrs() {
			for _, op := range m.Instr(id).Ops {
				if _, ok := e.valIdx[op]; ok {
					continue
				}
				v := m.Value(op)
				if v == nil || !v.IsConstant() {
					return nil, fmt.Errorf("encode @%s: %%%d uses value %%%d outside the module", f.Name, id, op)
				}
				number(op)
				c := fileConst{Type: e.typeRef(v.Type), Undef: v.Kind == ir.ValueUndef}
				if !c.Undef {
					c.Lanes = v.Lanes
				}
				e.out.Consts = append(e.out.Consts, c)
			}
		}
	}

	for _, f := range m.Funcs {
		ff, err := e.function(f)
		if err != nil {
			return nil, err
		}
		e.out.Funcs = append(e.out.Funcs, ff)
	}
	return &e.out, nil
}

// typeRef returns the 1-based table slot of id, appending id and everything
// it refers to on first reach.
func (e *encoder) typeRef(id types.TypeID) uint32 {
	if id == types.NoTypeID {
		return 0
	}
	if idx, ok := e.typeIdx[id]; ok {
		return idx
	}
	ts := e.m.Types
	t := ts.MustLookup(id)
	ft := fileType{Kind: uint8(t.Kind), Count: t.Count, Width: t.Width, AddrSpace: t.AddrSpace}
	switch t.Kind {
	case types.KindPointer, types.KindVector:
		ft.Elem = e.typeRef(t.Elem)
	case types.KindStruct:
		info, _ := ts.StructInfo(id)
		for _, field := range info.Fields {
			ft.Fields = append(ft.Fields, e.typeRef(field))
		}
	case types.KindFn:
		info, _ := ts.FnInfo(id)
		for _, p := range info.Params {
			ft.Fields = append(ft.Fields, e.typeRef(p))
		}
		ft.Result = e.typeRef(info.Result)
	}
	e.out.Types = append(e.out.Types, ft)
	idx := uint32(len(e.out.Types))
	e.typeIdx[id] = idx
	return idx
}

func (e *encoder) function(f *ir.Func) (fileFunc, error) {
	ff := fileFunc{
		Name:  f.Name,
		Sig:   e.typeRef(f.Sig),
		Attrs: uint32(f.Attrs),
	}
	hasAttrs, hasNames := false, false
	for i, p := range f.Params {
		pa := f.ParamAttrs[i]
		ff.ParamAttrs = append(ff.ParamAttrs, fileParamAttrs{Align: pa.Align, ImmArg: pa.ImmArg, NoCapture: pa.NoCapture})
		hasAttrs = hasAttrs || pa != (ir.ParamAttrs{})
		name := e.m.Value(p).Name
		ff.ParamNames = append(ff.ParamNames, name)
		hasNames = hasNames || name != ""
	}
	if !hasAttrs {
		ff.ParamAttrs = nil
	}
	if !hasNames {
		ff.ParamNames = nil
	}
	for _, b := range f.Blocks {
		fb := fileBlock{Name: b.Name, Instrs: make([]fileInstr, 0, len(b.Instrs))}
		for _, id := range b.Instrs {
			fi, err := e.instr(f, id)
			if err != nil {
				return ff, err
			}
			fb.Instrs = append(fb.Instrs, fi)
		}
		ff.Blocks = append(ff.Blocks, fb)
	}
	return ff, nil
}

func (e *encoder) instr(f *ir.Func, id ir.ValueID) (fileInstr, error) {
	v := e.m.Value(id)
	in := v.Instr
	fi := fileInstr{
		Kind: uint8(in.Kind),
		Type: e.typeRef(v.Type),
		Name: v.Name,
	}
	for _, op := range in.Ops {
		fi.Ops = append(fi.Ops, e.valIdx[op])
	}
	switch in.Kind {
	case ir.InstrBinary:
		fi.Op = uint8(in.Binary.Op)
		fi.Flags = flagIf(in.Binary.Exact, flagExact) | flagIf(in.Binary.NUW, flagNUW) | flagIf(in.Binary.NSW, flagNSW)
	case ir.InstrICmp:
		fi.Op = uint8(in.ICmp.Pred)
	case ir.InstrCast:
		fi.Op = uint8(in.Cast.Op)
	case ir.InstrCall:
		fi.Tail = uint8(in.Call.Tail)
		fi.Attrs = uint32(in.Call.Attrs)
		fi.Align = in.Call.ArgAlign
	case ir.InstrExtractValue, ir.InstrInsertValue:
		fi.Indices = in.Field.Indices
	case ir.InstrLoad, ir.InstrStore:
		fi.Mem = in.Mem.Align
		fi.Flags = flagIf(in.Mem.Volatile, flagVolatile)
	case ir.InstrCmpXchg:
		fi.Mem = in.Mem.Align
		fi.Flags = flagIf(in.Mem.Volatile, flagVolatile) | flagIf(in.CmpXchg.Weak, flagWeak)
		fi.Success = uint8(in.CmpXchg.Success)
		fi.Failure = uint8(in.CmpXchg.Failure)
	case ir.InstrPhi:
		bbs, err := blockIndices(f, in.Phi.Blocks)
		if err != nil {
			return fi, fmt.Errorf("encode @%s %%%d: %w", f.Name, id, err)
		}
		fi.Blocks = bbs
	case ir.InstrBr, ir.InstrCondBr:
		bbs, err := blockIndices(f, in.Br.Targets)
		if err != nil {
			return fi, fmt.Errorf("encode @%s %%%d: %w", f.Name, id, err)
		}
		fi.Blocks = bbs
	}
	for _, md := range in.MD {
		fi.MD = append(fi.MD, fileMD{Kind: md.Kind, Value: md.Value})
	}
	return fi, nil
}

func blockIndices(f *ir.Func, blocks []*ir.Block) ([]uint32, error) {
	out := make([]uint32, 0, len(blocks))
	for _, b := range blocks {
		if b == nil || b.Func() != f {
			return nil, fmt.Errorf("block outside the function")
		}
		idx, err := safecast.Conv[uint32](b.Index())
		if err != nil {
			return nil, fmt.Errorf("block index: %w", err)
		}
		out = append(out, idx)
	}
	return out, nil
}

func flagIf(cond bool, bit uint8) uint8 {
	if cond {
		return bit
	}
	return 0
}
