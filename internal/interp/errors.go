package interp

import (
	"fmt"
	"strings"

	"spvregular/internal/ir"
)

// Code identifies the kind of execution failure.
type Code int

// Stable codes; do not renumber.
const (
	CodeUninitialized   Code = 1001 // VM1001: load of a cell never written
	CodeTypeMismatch    Code = 1003 // VM1003: operand shape does not fit the instruction
	CodeOutOfBounds     Code = 1004 // VM1004: aggregate index out of range
	CodeUnsupportedCall Code = 1005 // VM1005: call to a declaration without a hook
	CodeDivByZero       Code = 1006 // VM1006: integer division by zero
	CodeUnreachable     Code = 1007 // VM1007: executed unreachable
	CodeStepLimit       Code = 1008 // VM1008: step budget exhausted
	CodeBadArgs         Code = 1009 // VM1009: wrong argument count or type
	CodeUnimplemented   Code = 1999 // VM1999: instruction kind not modelled
)

func (c Code) String() string {
	return fmt.Sprintf("VM%d", c)
}

// Error is an execution failure with the call stack at the failure point.
type Error struct {
	Code      Code
	Message   string
	Func      string
	Value     ir.ValueID
	Backtrace []string
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "panic %s: %s", e.Code, e.Message)
	if e.Func != "" {
		fmt.Fprintf(&sb, " at @%s", e.Func)
		if e.Value != ir.NoValueID {
			fmt.Fprintf(&sb, " %%%d", e.Value)
		}
	}
	return sb.String()
}

// FormatBacktrace renders the error followed by its call stack.
func (e *Error) FormatBacktrace() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n")
	if len(e.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, fn := range e.Backtrace {
			fmt.Fprintf(&sb, "  %d: @%s\n", i, fn)
		}
	}
	return sb.String()
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Value: ir.NoValueID}
}
