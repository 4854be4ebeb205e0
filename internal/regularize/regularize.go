// Package regularize rewrites a module in place so that every construct it
// contains has a direct SPIR-V equivalent: unused declarations go away,
// builtins stop receiving cast function pointers, unsupported intrinsics are
// replaced by synthesized helpers, flags and metadata the target ignores are
// stripped, and cmpxchg is split into a builtin call plus a comparison.
package regularize

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"spvregular/internal/ir"
	"spvregular/internal/irfile"
	"spvregular/internal/observ"
	"spvregular/internal/trace"
	"spvregular/internal/types"
	"spvregular/internal/verify"
)

// PassName names the pass in traces and verifier errors.
const PassName = "regularize"

// DefaultSnapshotPath is where SaveRegularized writes without a path.
const DefaultSnapshotPath = "regularized.mp"

var (
	// ErrInvariant reports an input shape the pass relies on never seeing.
	ErrInvariant = errors.New("regularizer invariant violated")
	// ErrUnsupportedFuncPtr reports a function pointer argument that is
	// neither a function nor a cast of one.
	ErrUnsupportedFuncPtr = errors.New("unsupported function pointer argument")
)

// Options configures one run.
type Options struct {
	// SaveRegularized writes the regularized module to SnapshotPath.
	SaveRegularized bool
	SnapshotPath    string
	// PassName overrides the name handed to the verifier.
	PassName string
	// Timer receives phase timings and rewrite counters; nil disables them.
	Timer *observ.Timer
}

// Rewrite counter names.
const (
	CountDeadDecls      = "dead_decls"
	CountFuncPtrCalls   = "funcptr_calls"
	CountMemset         = "memset"
	CountFshl           = "fshl"
	CountUMulOverflow   = "umul_with_overflow"
	CountCmpXchg        = "cmpxchg"
	CountSanitized      = "sanitized"
	CountHelpers        = "helpers_synthesized"
	CountStaleDecls     = "stale_decls"
	CountErasedInstrs   = "erased_instrs"
	CountErasedFuncCast = "erased_funcptr_casts"
)

type pass struct {
	m      *ir.Module
	ts     *types.Interner
	b      *ir.Builder
	tracer trace.Tracer
	timer  *observ.Timer
	root   uint64
	parent uint64

	// toErase holds instructions of the current function removed after the
	// walk reached its end.
	toErase []ir.ValueID
}

// Run regularizes m. The module is left partially rewritten when an error
// is returned.
func Run(ctx context.Context, m *ir.Module, opts Options) error {
	if m == nil {
		return fmt.Errorf("%w: nil module", ErrInvariant)
	}
	p := &pass{
		m:      m,
		ts:     m.Types,
		b:      ir.NewBuilder(m),
		tracer: trace.FromContext(ctx),
		timer:  opts.Timer,
	}
	root := trace.Begin(p.tracer, trace.ScopePass, PassName, 0).WithExtra("module", m.Name)
	p.root = root.ID()
	err := p.run(opts)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	root.WithExtra("funcs", strconv.Itoa(len(m.Funcs))).End(status)
	return err
}

// phase opens a span and a timer phase; the returned func closes both.
func (p *pass) phase(name string) func(note string) {
	idx := p.timer.Begin(name)
	span := trace.Begin(p.tracer, trace.ScopePass, name, p.root)
	p.parent = span.ID()
	return func(note string) {
		span.End(note)
		p.timer.End(idx, note)
		p.parent = p.root
	}
}

func (p *pass) run(opts Options) error {
	done := p.phase("dead_decls")
	n, err := p.removeDeadDecls()
	done(strconv.Itoa(n) + " removed")
	p.timer.Count(CountDeadDecls, n)
	if err != nil {
		return err
	}

	done = p.phase("funcptr")
	n, err = p.normalizeFuncPtrs()
	done(strconv.Itoa(n) + " calls")
	if err != nil {
		return err
	}

	done = p.phase("walk")
	err = p.walk()
	done("")
	if err != nil {
		return err
	}

	if opts.SaveRegularized {
		path := opts.SnapshotPath
		if path == "" {
			path = DefaultSnapshotPath
		}
		done = p.phase("snapshot")
		err = irfile.WriteFile(path, p.m)
		done(path)
		if err != nil {
			return fmt.Errorf("save regularized module: %w", err)
		}
	}

	name := opts.PassName
	if name == "" {
		name = PassName
	}
	done = p.phase("verify")
	err = verify.Module(p.m, name)
	done("")
	return err
}

// walk visits every instruction of every function once. Functions added
// during the walk are helpers and are not visited.
func (p *pass) walk() error {
	funcs := append([]*ir.Func(nil), p.m.Funcs...)
	for _, f := range funcs {
		if p.m.Func(f.Name) != f {
			continue
		}
		if f.IsDeclaration() {
			if !f.HasUses() {
				if err := p.m.RemoveFunc(f); err != nil {
					return fmt.Errorf("%w: %w", ErrInvariant, err)
				}
				p.timer.Count(CountStaleDecls, 1)
				p.point("remove_decl", f.Name)
			}
			continue
		}
		if err := p.function(f); err != nil {
			return fmt.Errorf("@%s: %w", f.Name, err)
		}
	}
	// Lowering leaves the intrinsic declarations it replaced without uses.
	n, err := p.removeDeadDecls()
	p.timer.Count(CountStaleDecls, n)
	return err
}

func (p *pass) function(f *ir.Func) error {
	span := trace.Begin(p.tracer, trace.ScopeFunc, f.Name, p.parent)
	saved := p.parent
	p.parent = span.ID()
	defer func() { p.parent = saved }()

	p.toErase = p.toErase[:0]
	instrs := f.Instrs()
	for _, id := range instrs {
		in := p.m.Instr(id)
		if in == nil {
			continue
		}
		p.sanitize(id, in)
		if in.Kind == ir.InstrCall {
			if err := p.lowerIntrinsic(id); err != nil {
				span.End("failed")
				return err
			}
		}
		if in.Kind == ir.InstrCmpXchg {
			if err := p.decomposeCmpXchg(id); err != nil {
				span.End("failed")
				return err
			}
		}
	}
	for _, id := range p.toErase {
		if err := p.m.Erase(id); err != nil {
			span.End("failed")
			return fmt.Errorf("%w: %w", ErrInvariant, err)
		}
	}
	p.timer.Count(CountErasedInstrs, len(p.toErase))
	span.WithExtra("instrs", strconv.Itoa(len(instrs))).End("")
	return nil
}

// point records one rewrite under the current span.
func (p *pass) point(name, detail string) {
	trace.Point(p.tracer, trace.ScopeInstr, name, detail, p.parent)
}

// invariantf builds an ErrInvariant error.
func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
