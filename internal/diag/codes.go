package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Verifier findings.
	VerInfo                Code = 1000
	VerMissingTerminator   Code = 1001
	VerMisplacedTerminator Code = 1002
	VerErasedOperand       Code = 1003
	VerUseListMismatch     Code = 1004
	VerTypeMismatch        Code = 1005
	VerBadCallee           Code = 1006
	VerArgCount            Code = 1007
	VerPhiMismatch         Code = 1008
	VerForeignBlock        Code = 1009
	VerBadFieldIndex       Code = 1010
	VerDuplicateName       Code = 1011

	// Post-regularization representability.
	RegInfo               Code = 2000
	RegIntrinsicRemains   Code = 2001
	RegCmpXchgRemains     Code = 2002
	RegFuncPtrCastRemains Code = 2003
	RegTailMarker         Code = 2004
	RegExactFlag          Code = 2005
	RegDroppedMetadata    Code = 2006
	RegIntrinsicNoUnwind  Code = 2007
	RegUnsupportedFuncPtr Code = 2008
	RegInvariant          Code = 2009

	// Input and output.
	IOLoadFileError  Code = 3001
	IOWriteFileError Code = 3002

	// Observability.
	ObsInfo    Code = 4000
	ObsTimings Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	VerInfo:                "Verifier information",
	VerMissingTerminator:   "block does not end with a terminator",
	VerMisplacedTerminator: "terminator in the middle of a block",
	VerErasedOperand:       "operand refers to an erased value",
	VerUseListMismatch:     "use list disagrees with operands",
	VerTypeMismatch:        "operand type mismatch",
	VerBadCallee:           "call target is not a function",
	VerArgCount:            "call argument count differs from callee signature",
	VerPhiMismatch:         "phi incoming values and blocks differ",
	VerForeignBlock:        "instruction refers to a block of another function",
	VerBadFieldIndex:       "aggregate index out of range",
	VerDuplicateName:       "duplicate function name",
	RegInfo:                "Regularizer information",
	RegIntrinsicRemains:    "intrinsic call survived regularization",
	RegCmpXchgRemains:      "cmpxchg survived regularization",
	RegFuncPtrCastRemains:  "builtin call still takes a cast function pointer",
	RegTailMarker:          "call keeps a tail marker",
	RegExactFlag:           "binary operator keeps the exact flag",
	RegDroppedMetadata:     "instruction keeps metadata the target drops",
	RegIntrinsicNoUnwind:   "intrinsic call keeps nounwind",
	RegUnsupportedFuncPtr:  "unsupported function pointer argument",
	RegInvariant:           "regularizer invariant violated",
	IOLoadFileError:        "I/O load file error",
	IOWriteFileError:       "I/O write file error",
	ObsInfo:                "Observability information",
	ObsTimings:             "Pass timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("VER%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("REG%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
