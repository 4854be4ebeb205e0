package interp

import (
	"slices"
	"strings"

	"spvregular/internal/ir"
	"spvregular/internal/trace"
	"spvregular/internal/types"
)

// Hook implements a declared function natively.
type Hook func(vm *Machine, f *ir.Func, args []Value) (Value, error)

// Options configures execution.
type Options struct {
	// MaxSteps bounds the instructions executed by one top-level call;
	// 0 means 1<<20.
	MaxSteps int
	// Tracer receives one point per call at the instr scope.
	Tracer trace.Tracer
}

// Machine executes functions of one module.
type Machine struct {
	M     *ir.Module
	Types *types.Interner
	Mem   *Memory

	hooks    map[string]Hook
	prefixes []prefixHook
	steps    int
	maxSteps int
	tr       trace.Tracer
	stack    []string
}

type prefixHook struct {
	prefix string
	hook   Hook
}

// New creates a machine with the default hooks installed.
func New(m *ir.Module, opts Options) *Machine {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 1 << 20
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	vm := &Machine{
		M:        m,
		Types:    m.Types,
		Mem:      NewMemory(),
		hooks:    make(map[string]Hook),
		maxSteps: opts.MaxSteps,
		tr:       opts.Tracer,
	}
	installDefaultHooks(vm)
	return vm
}

// Register implements the declaration called name with h.
func (vm *Machine) Register(name string, h Hook) {
	vm.hooks[name] = h
}

// RegisterPrefix implements every declaration whose name starts with prefix.
// Exact registrations win over prefixes; longer prefixes win over shorter.
func (vm *Machine) RegisterPrefix(prefix string, h Hook) {
	vm.prefixes = append(vm.prefixes, prefixHook{prefix: prefix, hook: h})
	slices.SortStableFunc(vm.prefixes, func(a, b prefixHook) int {
		return len(b.prefix) - len(a.prefix)
	})
}

func (vm *Machine) hookFor(name string) Hook {
	if h, ok := vm.hooks[name]; ok {
		return h
	}
	for _, ph := range vm.prefixes {
		if strings.HasPrefix(name, ph.prefix) {
			return ph.hook
		}
	}
	return nil
}

// Steps returns the number of instructions executed by the last top-level call.
func (vm *Machine) Steps() int {
	return vm.steps
}

// Call runs the function named name.
func (vm *Machine) Call(name string, args ...Value) (Value, error) {
	f := vm.M.Func(name)
	if f == nil {
		return Value{}, newError(CodeUnsupportedCall, "no function @%s", name)
	}
	return vm.CallFunc(f, args)
}

// CallFunc runs f with args. Declarations dispatch to their hook.
func (vm *Machine) CallFunc(f *ir.Func, args []Value) (Value, error) {
	params := f.ParamTypes()
	if len(params) != len(args) {
		return Value{}, newError(CodeBadArgs, "@%s takes %d arguments, got %d", f.Name, len(params), len(args))
	}
	for i, a := range args {
		if a.Type != params[i] {
			return Value{}, newError(CodeBadArgs, "@%s argument %d is %s, want %s",
				f.Name, i, vm.Types.String(a.Type), vm.Types.String(params[i]))
		}
	}
	trace.Point(vm.tr, trace.ScopeInstr, "call", f.Name, 0)

	if len(vm.stack) == 0 {
		vm.steps = 0
	}
	vm.stack = append(vm.stack, f.Name)
	defer func() { vm.stack = vm.stack[:len(vm.stack)-1] }()

	if f.IsDeclaration() {
		h := vm.hookFor(f.Name)
		if h == nil {
			return Value{}, vm.fail(newError(CodeUnsupportedCall, "call to declaration @%s", f.Name))
		}
		v, err := h(vm, f, args)
		if err != nil {
			return Value{}, vm.fail(err)
		}
		return v, nil
	}

	fr := &frame{fn: f, vals: make(map[ir.ValueID]Value, len(args)+16)}
	for i, p := range f.Params {
		fr.vals[p] = args[i]
	}
	return vm.run(fr)
}

// fail attaches the current backtrace to an execution error.
func (vm *Machine) fail(err error) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	if e.Backtrace == nil {
		e.Backtrace = slices.Clone(vm.stack)
		slices.Reverse(e.Backtrace)
	}
	if e.Func == "" && len(vm.stack) > 0 {
		e.Func = vm.stack[len(vm.stack)-1]
	}
	return e
}

// frame is the activation record of one defined function.
type frame struct {
	fn   *ir.Func
	vals map[ir.ValueID]Value
	prev *ir.Block
}

func (vm *Machine) operand(fr *frame, id ir.ValueID) (Value, error) {
	if v, ok := fr.vals[id]; ok {
		return v, nil
	}
	v := vm.M.Value(id)
	if v == nil {
		return Value{}, newError(CodeTypeMismatch, "operand %%%d was erased", id)
	}
	switch v.Kind {
	case ir.ValueConst:
		return Value{Type: v.Type, Lanes: slices.Clone(v.Lanes)}, nil
	case ir.ValueUndef:
		return Zero(vm.Types, v.Type), nil
	case ir.ValueFunc:
		return Value{Type: v.Type, Func: v.Func}, nil
	default:
		return Value{}, newError(CodeUninitialized, "%%%d used before definition", id)
	}
}

func (vm *Machine) operands(fr *frame, ids []ir.ValueID) ([]Value, error) {
	out := make([]Value, len(ids))
	for i, id := range ids {
		v, err := vm.operand(fr, id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (vm *Machine) run(fr *frame) (Value, error) {
	block := fr.fn.Blocks[0]
	for {
		next, ret, done, err := vm.runBlock(fr, block)
		if err != nil {
			return Value{}, vm.fail(err)
		}
		if done {
			return ret, nil
		}
		fr.prev = block
		block = next
	}
}

// runBlock executes block and returns the successor, or the return value
// when the function is done.
func (vm *Machine) runBlock(fr *frame, block *ir.Block) (*ir.Block, Value, bool, error) {
	// phis read their inputs simultaneously on block entry
	i := 0
	var phiVals []Value
	for ; i < len(block.Instrs); i++ {
		in := vm.M.Instr(block.Instrs[i])
		if in.Kind != ir.InstrPhi {
			break
		}
		idx := slices.Index(in.Phi.Blocks, fr.prev)
		if idx < 0 {
			return nil, Value{}, false, located(newError(CodeTypeMismatch, "phi has no incoming value for the predecessor"), fr, block.Instrs[i])
		}
		v, err := vm.operand(fr, in.Ops[idx])
		if err != nil {
			return nil, Value{}, false, located(err, fr, block.Instrs[i])
		}
		phiVals = append(phiVals, v)
	}
	for j, v := range phiVals {
		fr.vals[block.Instrs[j]] = v
	}

	for ; i < len(block.Instrs); i++ {
		id := block.Instrs[i]
		vm.steps++
		if vm.steps > vm.maxSteps {
			return nil, Value{}, false, located(newError(CodeStepLimit, "exceeded %d steps", vm.maxSteps), fr, id)
		}
		in := vm.M.Instr(id)
		switch in.Kind {
		case ir.InstrBr:
			return in.Br.Targets[0], Value{}, false, nil
		case ir.InstrCondBr:
			c, err := vm.operand(fr, in.Ops[0])
			if err != nil {
				return nil, Value{}, false, located(err, fr, id)
			}
			if c.Bool() {
				return in.Br.Targets[0], Value{}, false, nil
			}
			return in.Br.Targets[1], Value{}, false, nil
		case ir.InstrRet:
			if len(in.Ops) == 0 {
				return nil, Value{Type: vm.Types.Builtins().Void}, true, nil
			}
			v, err := vm.operand(fr, in.Ops[0])
			if err != nil {
				return nil, Value{}, false, located(err, fr, id)
			}
			return nil, v, true, nil
		case ir.InstrUnreachable:
			return nil, Value{}, false, located(newError(CodeUnreachable, "reached unreachable"), fr, id)
		}
		v, err := vm.exec(fr, id, in)
		if err != nil {
			return nil, Value{}, false, located(err, fr, id)
		}
		fr.vals[id] = v
	}
	return nil, Value{}, false, located(newError(CodeTypeMismatch, "block %s has no terminator", block.Name), fr, ir.NoValueID)
}

func located(err error, fr *frame, id ir.ValueID) error {
	if e, ok := err.(*Error); ok && e.Func == "" {
		e.Func = fr.fn.Name
		e.Value = id
	}
	return err
}
