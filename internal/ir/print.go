package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// DumpOptions configures module dumping.
type DumpOptions struct {
	// ShowUses appends the use count of every value-producing instruction.
	ShowUses bool
}

const useColumn = 60

// Dump writes a human-readable representation of a module.
func Dump(w io.Writer, m *Module, opts DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	p := &printer{m: m, opts: opts}
	fmt.Fprintf(&p.sb, "; module %s\n", m.Name)
	for _, f := range m.Funcs {
		p.sb.WriteString("\n")
		p.function(f)
	}
	_, err := io.WriteString(w, p.sb.String())
	return err
}

// DumpString renders m as a string.
func DumpString(m *Module) string {
	var sb strings.Builder
	_ = Dump(&sb, m, DumpOptions{})
	return sb.String()
}

type printer struct {
	m    *Module
	opts DumpOptions
	sb   strings.Builder
}

func (p *printer) function(f *Func) {
	ts := p.m.Types
	if f.IsDeclaration() {
		p.sb.WriteString("declare ")
	} else {
		p.sb.WriteString("define ")
	}
	fmt.Fprintf(&p.sb, "%s @%s(", ts.String(f.Result()), f.Name)
	for i, param := range f.Params {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		p.sb.WriteString(ts.String(p.m.TypeOf(param)))
		if i < len(f.ParamAttrs) {
			pa := f.ParamAttrs[i]
			if pa.NoCapture {
				p.sb.WriteString(" nocapture")
			}
			if pa.Align != 0 {
				fmt.Fprintf(&p.sb, " align %d", pa.Align)
			}
			if pa.ImmArg {
				p.sb.WriteString(" immarg")
			}
		}
		if !f.IsDeclaration() {
			p.sb.WriteString(" ")
			p.sb.WriteString(p.ref(param))
		}
	}
	p.sb.WriteString(")")
	for _, name := range f.Attrs.Names() {
		p.sb.WriteString(" ")
		p.sb.WriteString(name)
	}
	if f.IsDeclaration() {
		p.sb.WriteString("\n")
		return
	}
	p.sb.WriteString(" {\n")
	for _, b := range f.Blocks {
		fmt.Fprintf(&p.sb, "%s:\n", p.blockName(b))
		for _, id := range b.Instrs {
			line := "  " + p.instr(id)
			if p.opts.ShowUses && p.m.TypeOf(id) != p.m.Types.Builtins().Void {
				if pad := useColumn - runewidth.StringWidth(line); pad > 0 {
					line += strings.Repeat(" ", pad)
				}
				line += fmt.Sprintf(" ; uses=%d", p.m.Value(id).NumUses())
			}
			p.sb.WriteString(line)
			p.sb.WriteString("\n")
		}
	}
	p.sb.WriteString("}\n")
}

func (p *printer) blockName(b *Block) string {
	if b.Name != "" {
		return b.Name
	}
	return "bb" + strconv.Itoa(b.Index())
}

// ref renders a value without its type.
func (p *printer) ref(id ValueID) string {
	v := p.m.Value(id)
	if v == nil {
		return "<erased>"
	}
	switch v.Kind {
	case ValueFunc:
		return "@" + v.Func.Name
	case ValueUndef:
		return "undef"
	case ValueConst:
		if len(v.Lanes) == 1 {
			return strconv.FormatUint(v.Lanes[0], 10)
		}
		lane := p.m.Types.String(p.m.Types.ScalarOf(v.Type))
		parts := make([]string, len(v.Lanes))
		for i, l := range v.Lanes {
			parts[i] = lane + " " + strconv.FormatUint(l, 10)
		}
		return "<" + strings.Join(parts, ", ") + ">"
	}
	if v.Name != "" {
		return "%" + v.Name
	}
	return "%" + strconv.Itoa(int(id))
}

// operand renders a value with its type.
func (p *printer) operand(id ValueID) string {
	return p.m.Types.String(p.m.TypeOf(id)) + " " + p.ref(id)
}

func (p *printer) instr(id ValueID) string {
	v := p.m.Value(id)
	in := v.Instr
	var sb strings.Builder
	if v.Type != p.m.Types.Builtins().Void {
		sb.WriteString(p.ref(id))
		sb.WriteString(" = ")
	}
	ts := p.m.Types
	switch in.Kind {
	case InstrBinary:
		sb.WriteString(in.Binary.Op.String())
		if in.Binary.NUW {
			sb.WriteString(" nuw")
		}
		if in.Binary.NSW {
			sb.WriteString(" nsw")
		}
		if in.Binary.Exact {
			sb.WriteString(" exact")
		}
		fmt.Fprintf(&sb, " %s, %s", p.operand(in.Ops[0]), p.ref(in.Ops[1]))
	case InstrICmp:
		fmt.Fprintf(&sb, "icmp %s %s, %s", in.ICmp.Pred, p.operand(in.Ops[0]), p.ref(in.Ops[1]))
	case InstrSelect:
		fmt.Fprintf(&sb, "select %s, %s, %s", p.operand(in.Ops[0]), p.operand(in.Ops[1]), p.operand(in.Ops[2]))
	case InstrCast:
		fmt.Fprintf(&sb, "%s %s to %s", in.Cast.Op, p.operand(in.Ops[0]), ts.String(v.Type))
	case InstrCall:
		if t := in.Call.Tail.String(); t != "" {
			sb.WriteString(t)
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "call %s %s(", ts.String(v.Type), p.ref(in.Ops[0]))
		for i, a := range in.Args() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.operand(a))
			if al := in.ArgAlign(i); al != 0 {
				fmt.Fprintf(&sb, " align %d", al)
			}
		}
		sb.WriteString(")")
		for _, name := range in.Call.Attrs.Names() {
			sb.WriteString(" ")
			sb.WriteString(name)
		}
	case InstrExtractValue:
		fmt.Fprintf(&sb, "extractvalue %s%s", p.operand(in.Ops[0]), indexList(in.Field.Indices))
	case InstrInsertValue:
		fmt.Fprintf(&sb, "insertvalue %s, %s%s", p.operand(in.Ops[0]), p.operand(in.Ops[1]), indexList(in.Field.Indices))
	case InstrLoad:
		sb.WriteString("load ")
		if in.Mem.Volatile {
			sb.WriteString("volatile ")
		}
		fmt.Fprintf(&sb, "%s, %s%s", ts.String(v.Type), p.operand(in.Ops[0]), alignSuffix(in.Mem.Align))
	case InstrStore:
		sb.WriteString("store ")
		if in.Mem.Volatile {
			sb.WriteString("volatile ")
		}
		fmt.Fprintf(&sb, "%s, %s%s", p.operand(in.Ops[0]), p.operand(in.Ops[1]), alignSuffix(in.Mem.Align))
	case InstrGEP:
		fmt.Fprintf(&sb, "getelementptr %s, %s", p.operand(in.Ops[0]), p.operand(in.Ops[1]))
	case InstrCmpXchg:
		sb.WriteString("cmpxchg ")
		if in.CmpXchg.Weak {
			sb.WriteString("weak ")
		}
		if in.Mem.Volatile {
			sb.WriteString("volatile ")
		}
		fmt.Fprintf(&sb, "%s, %s, %s %s %s", p.operand(in.Ops[0]), p.operand(in.Ops[1]), p.operand(in.Ops[2]),
			in.CmpXchg.Success, in.CmpXchg.Failure)
	case InstrPhi:
		fmt.Fprintf(&sb, "phi %s ", ts.String(v.Type))
		for i, op := range in.Ops {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "[ %s, %%%s ]", p.ref(op), p.blockName(in.Phi.Blocks[i]))
		}
	case InstrBr:
		fmt.Fprintf(&sb, "br label %%%s", p.blockName(in.Br.Targets[0]))
	case InstrCondBr:
		fmt.Fprintf(&sb, "br %s, label %%%s, label %%%s", p.operand(in.Ops[0]),
			p.blockName(in.Br.Targets[0]), p.blockName(in.Br.Targets[1]))
	case InstrRet:
		if len(in.Ops) == 0 {
			sb.WriteString("ret void")
		} else {
			sb.WriteString("ret ")
			sb.WriteString(p.operand(in.Ops[0]))
		}
	case InstrUnreachable:
		sb.WriteString("unreachable")
	default:
		sb.WriteString(in.Kind.String())
	}
	for _, md := range in.MD {
		fmt.Fprintf(&sb, ", !%s !%q", md.Kind, md.Value)
	}
	return sb.String()
}

func indexList(idx []uint32) string {
	var sb strings.Builder
	for _, i := range idx {
		sb.WriteString(", ")
		sb.WriteString(strconv.FormatUint(uint64(i), 10))
	}
	return sb.String()
}

func alignSuffix(align uint32) string {
	if align == 0 {
		return ""
	}
	return ", align " + strconv.FormatUint(uint64(align), 10)
}
