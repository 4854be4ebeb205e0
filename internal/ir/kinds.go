package ir

import "fmt"

// ValueID addresses a node in the module's value arena.
type ValueID int32

// NoValueID marks the absence of a value.
const NoValueID ValueID = -1

// ValueKind distinguishes value node kinds.
type ValueKind uint8

const (
	// ValueInvalid marks an erased or zero value.
	ValueInvalid ValueKind = iota
	// ValueInstr is the result of an instruction (void instructions included).
	ValueInstr
	// ValueArg is a function parameter.
	ValueArg
	// ValueConst is an integer constant or a constant integer vector.
	ValueConst
	// ValueUndef is an undefined value of some type.
	ValueUndef
	// ValueFunc is a reference to a function.
	ValueFunc
)

func (k ValueKind) String() string {
	switch k {
	case ValueInstr:
		return "instr"
	case ValueArg:
		return "arg"
	case ValueConst:
		return "const"
	case ValueUndef:
		return "undef"
	case ValueFunc:
		return "func"
	default:
		return "invalid"
	}
}

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrInvalid is the zero kind.
	InstrInvalid InstrKind = iota
	// InstrBinary represents a two-operand integer operation.
	InstrBinary
	// InstrICmp represents an integer comparison.
	InstrICmp
	// InstrSelect picks one of two values by a condition.
	InstrSelect
	// InstrCast represents a conversion between types.
	InstrCast
	// InstrCall represents a call. Ops[0] is the callee.
	InstrCall
	// InstrExtractValue reads a field of an aggregate.
	InstrExtractValue
	// InstrInsertValue writes a field of an aggregate.
	InstrInsertValue
	// InstrLoad reads memory.
	InstrLoad
	// InstrStore writes memory. Ops are (value, pointer).
	InstrStore
	// InstrGEP offsets a pointer by a number of pointee-sized elements.
	InstrGEP
	// InstrCmpXchg is an atomic compare-exchange returning { T, i1 }.
	InstrCmpXchg
	// InstrPhi merges values from predecessor blocks.
	InstrPhi
	// InstrBr is an unconditional branch.
	InstrBr
	// InstrCondBr is a two-way conditional branch.
	InstrCondBr
	// InstrRet returns from the function.
	InstrRet
	// InstrUnreachable marks unreachable control flow.
	InstrUnreachable
)

var instrKindNames = [...]string{
	InstrInvalid:      "invalid",
	InstrBinary:       "binary",
	InstrICmp:         "icmp",
	InstrSelect:       "select",
	InstrCast:         "cast",
	InstrCall:         "call",
	InstrExtractValue: "extractvalue",
	InstrInsertValue:  "insertvalue",
	InstrLoad:         "load",
	InstrStore:        "store",
	InstrGEP:          "getelementptr",
	InstrCmpXchg:      "cmpxchg",
	InstrPhi:          "phi",
	InstrBr:           "br",
	InstrCondBr:       "br",
	InstrRet:          "ret",
	InstrUnreachable:  "unreachable",
}

func (k InstrKind) String() string {
	if int(k) < len(instrKindNames) {
		return instrKindNames[k]
	}
	return fmt.Sprintf("InstrKind(%d)", k)
}

// IsTerminator reports whether k ends a block.
func (k InstrKind) IsTerminator() bool {
	switch k {
	case InstrBr, InstrCondBr, InstrRet, InstrUnreachable:
		return true
	}
	return false
}

// BinaryOp enumerates integer binary operators.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpShl
	OpLShr
	OpAShr
	OpAnd
	OpOr
	OpXor
)

var binaryOpNames = [...]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul",
	OpUDiv: "udiv", OpSDiv: "sdiv", OpURem: "urem", OpSRem: "srem",
	OpShl: "shl", OpLShr: "lshr", OpAShr: "ashr",
	OpAnd: "and", OpOr: "or", OpXor: "xor",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", op)
}

// PossiblyExact reports whether the operator may carry the exact flag.
func (op BinaryOp) PossiblyExact() bool {
	switch op {
	case OpUDiv, OpSDiv, OpLShr, OpAShr:
		return true
	}
	return false
}

// ICmpPred enumerates integer comparison predicates.
type ICmpPred uint8

const (
	PredEQ ICmpPred = iota
	PredNE
	PredUGT
	PredUGE
	PredULT
	PredULE
	PredSGT
	PredSGE
	PredSLT
	PredSLE
)

var predNames = [...]string{
	PredEQ: "eq", PredNE: "ne",
	PredUGT: "ugt", PredUGE: "uge", PredULT: "ult", PredULE: "ule",
	PredSGT: "sgt", PredSGE: "sge", PredSLT: "slt", PredSLE: "sle",
}

func (p ICmpPred) String() string {
	if int(p) < len(predNames) {
		return predNames[p]
	}
	return fmt.Sprintf("ICmpPred(%d)", p)
}

// CastOp enumerates conversions.
type CastOp uint8

const (
	CastBitcast CastOp = iota
	CastZExt
	CastSExt
	CastTrunc
	CastPtrToInt
	CastIntToPtr
	CastAddrSpace
)

var castOpNames = [...]string{
	CastBitcast: "bitcast", CastZExt: "zext", CastSExt: "sext", CastTrunc: "trunc",
	CastPtrToInt: "ptrtoint", CastIntToPtr: "inttoptr", CastAddrSpace: "addrspacecast",
}

func (op CastOp) String() string {
	if int(op) < len(castOpNames) {
		return castOpNames[op]
	}
	return fmt.Sprintf("CastOp(%d)", op)
}

// TailKind is the tail-call marking of a call.
type TailKind uint8

const (
	TailNone TailKind = iota
	TailTail
	TailMust
	TailNo
)

func (k TailKind) String() string {
	switch k {
	case TailTail:
		return "tail"
	case TailMust:
		return "musttail"
	case TailNo:
		return "notail"
	default:
		return ""
	}
}

// Ordering is an atomic memory ordering.
type Ordering uint8

const (
	OrderingNotAtomic Ordering = iota
	OrderingUnordered
	OrderingMonotonic
	OrderingAcquire
	OrderingRelease
	OrderingAcquireRelease
	OrderingSeqCst
)

var orderingNames = [...]string{
	OrderingNotAtomic: "", OrderingUnordered: "unordered", OrderingMonotonic: "monotonic",
	OrderingAcquire: "acquire", OrderingRelease: "release",
	OrderingAcquireRelease: "acq_rel", OrderingSeqCst: "seq_cst",
}

func (o Ordering) String() string {
	if int(o) < len(orderingNames) {
		return orderingNames[o]
	}
	return fmt.Sprintf("Ordering(%d)", o)
}

// CABIOrder is the C11 memory_order value of an ordering.
type CABIOrder uint8

const (
	CABIRelaxed CABIOrder = iota
	CABIConsume
	CABIAcquire
	CABIRelease
	CABIAcqRel
	CABISeqCst
)

// ToCABI maps an ordering to its C11 memory_order.
func (o Ordering) ToCABI() CABIOrder {
	switch o {
	case OrderingAcquire:
		return CABIAcquire
	case OrderingRelease:
		return CABIRelease
	case OrderingAcquireRelease:
		return CABIAcqRel
	case OrderingSeqCst:
		return CABISeqCst
	default:
		return CABIRelaxed
	}
}

// Attr is a set of function or call-site attributes.
type Attr uint32

const (
	AttrNoUnwind Attr = 1 << iota
	AttrReadNone
	AttrReadOnly
	AttrWillReturn
	AttrNoInline
	AttrAlwaysInline
	AttrConvergent
	AttrNoReturn
)

var attrNames = []struct {
	bit  Attr
	name string
}{
	{AttrNoUnwind, "nounwind"},
	{AttrReadNone, "readnone"},
	{AttrReadOnly, "readonly"},
	{AttrWillReturn, "willreturn"},
	{AttrNoInline, "noinline"},
	{AttrAlwaysInline, "alwaysinline"},
	{AttrConvergent, "convergent"},
	{AttrNoReturn, "noreturn"},
}

// Has reports whether all bits of x are present.
func (a Attr) Has(x Attr) bool { return a&x == x }

// Names lists the attribute names in a fixed order.
func (a Attr) Names() []string {
	var out []string
	for _, an := range attrNames {
		if a&an.bit != 0 {
			out = append(out, an.name)
		}
	}
	return out
}

// ParamAttrs carries attributes of one function parameter.
type ParamAttrs struct {
	Align     uint32
	ImmArg    bool
	NoCapture bool
}
