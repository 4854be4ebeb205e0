// Package spirv holds the target-side tables the regularizer consults:
// builtin opcodes and their symbol names, synchronization scopes and memory
// semantics codes.
package spirv

import (
	"strconv"
	"strings"

	"spvregular/internal/ir"
)

// Op is a SPIR-V opcode.
type Op uint16

const (
	OpNop                                     Op = 0
	OpAtomicCompareExchange                   Op = 230
	OpEnqueueKernel                           Op = 292
	OpGetKernelNDrangeSubGroupCount           Op = 293
	OpGetKernelNDrangeMaxSubGroupSize         Op = 294
	OpGetKernelWorkGroupSize                  Op = 295
	OpGetKernelPreferredWorkGroupSizeMultiple Op = 296
	OpGetKernelLocalSizeForSubgroupCount      Op = 325
	OpGetKernelMaxNumSubgroups                Op = 326
)

var opNames = map[Op]string{
	OpAtomicCompareExchange:                   "AtomicCompareExchange",
	OpEnqueueKernel:                           "EnqueueKernel",
	OpGetKernelNDrangeSubGroupCount:           "GetKernelNDrangeSubGroupCount",
	OpGetKernelNDrangeMaxSubGroupSize:         "GetKernelNDrangeMaxSubGroupSize",
	OpGetKernelWorkGroupSize:                  "GetKernelWorkGroupSize",
	OpGetKernelPreferredWorkGroupSizeMultiple: "GetKernelPreferredWorkGroupSizeMultiple",
	OpGetKernelLocalSizeForSubgroupCount:      "GetKernelLocalSizeForSubgroupCount",
	OpGetKernelMaxNumSubgroups:                "GetKernelMaxNumSubgroups",
}

var opByName = func() map[string]Op {
	out := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		out[name] = op
	}
	return out
}()

// Name returns the opcode name without the "Op" prefix, or "".
func (op Op) Name() string {
	return opNames[op]
}

func (op Op) String() string {
	if name := op.Name(); name != "" {
		return "Op" + name
	}
	return "Op(" + strconv.Itoa(int(op)) + ")"
}

// BuiltinPrefix starts the symbol name of every builtin function.
const BuiltinPrefix = "__spirv_"

// Decorate turns an opcode name into its builtin symbol name.
func Decorate(name string) string {
	return BuiltinPrefix + name
}

// Undecorate strips Itanium mangling, the builtin prefix and a numbered
// collision suffix from a symbol: "_Z21__spirv_EnqueueKernelPv",
// "__spirv_EnqueueKernel" and "__spirv_EnqueueKernel.2" all yield
// "EnqueueKernel". The second result is false for non-builtin symbols.
func Undecorate(symbol string) (string, bool) {
	name := symbol
	if rest, ok := strings.CutPrefix(name, "_Z"); ok {
		n := 0
		for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
			n++
		}
		if n == 0 {
			return "", false
		}
		size, err := strconv.Atoi(rest[:n])
		if err != nil || n+size > len(rest) {
			return "", false
		}
		name = rest[n : n+size]
	}
	name, ok := strings.CutPrefix(name, BuiltinPrefix)
	if !ok {
		return "", false
	}
	return TrimVariant(name), true
}

// TrimVariant drops a trailing ".<digits>" added when a symbol name was
// already taken by another signature.
func TrimVariant(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || dot == len(name)-1 {
		return name
	}
	for _, c := range name[dot+1:] {
		if c < '0' || c > '9' {
			return name
		}
	}
	return name[:dot]
}

// OpcodeTable classifies builtin symbols.
type OpcodeTable interface {
	// Lookup returns the opcode implemented by the named function.
	Lookup(symbol string) (Op, bool)
	// Symbol returns the canonical function name of an opcode.
	Symbol(op Op) string
}

// Builtins is the default OpcodeTable.
var Builtins OpcodeTable = builtinTable{}

type builtinTable struct{}

func (builtinTable) Lookup(symbol string) (Op, bool) {
	name, ok := Undecorate(symbol)
	if !ok {
		return OpNop, false
	}
	op, ok := opByName[name]
	return op, ok
}

func (builtinTable) Symbol(op Op) string {
	return Decorate(op.Name())
}

// Scope is a SPIR-V memory scope.
type Scope uint32

const (
	ScopeCrossDevice Scope = 0
	ScopeDevice      Scope = 1
	ScopeWorkgroup   Scope = 2
	ScopeSubgroup    Scope = 3
	ScopeInvocation  Scope = 4
)

// MemorySemantics is the ordering part of a SPIR-V memory semantics mask.
type MemorySemantics uint32

const (
	SemanticsNone                   MemorySemantics = 0x0
	SemanticsAcquire                MemorySemantics = 0x2
	SemanticsRelease                MemorySemantics = 0x4
	SemanticsAcquireRelease         MemorySemantics = 0x8
	SemanticsSequentiallyConsistent MemorySemantics = 0x10
)

// SemanticsFor maps an atomic ordering, through its C11 memory_order, to the
// memory semantics code the target expects.
func SemanticsFor(o ir.Ordering) MemorySemantics {
	switch o.ToCABI() {
	case ir.CABIConsume, ir.CABIAcquire:
		return SemanticsAcquire
	case ir.CABIRelease:
		return SemanticsRelease
	case ir.CABIAcqRel:
		return SemanticsAcquireRelease
	case ir.CABISeqCst:
		return SemanticsSequentiallyConsistent
	default:
		return SemanticsNone
	}
}

// DroppedMetadata lists the metadata kinds the translator cannot represent.
var DroppedMetadata = []string{"fpmath", "tbaa", "range"}
