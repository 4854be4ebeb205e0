// Package verify checks modules for structural soundness and, after the
// regularizer ran, for representability on the SPIR-V side.
package verify

import (
	"errors"
	"fmt"
	"strconv"

	"spvregular/internal/diag"
	"spvregular/internal/ir"
)

// ErrVerification is returned when a module fails verification.
var ErrVerification = errors.New("verification failed")

// maxDiagnostics bounds the findings collected for one module.
const maxDiagnostics = 256

// Module runs every check against m and returns an error naming the module
// and the pass that produced it when any check fails.
func Module(m *ir.Module, passName string) error {
	bag := Structure(m)
	bag.Merge(Regularized(m))
	if !bag.HasErrors() {
		return nil
	}
	if passName == "" {
		passName = "<input>"
	}
	return fmt.Errorf("%w: module %s after %s: %w", ErrVerification, m.Name, passName, bag.Err())
}

func blockName(b *ir.Block) string {
	if b == nil {
		return ""
	}
	if b.Name != "" {
		return b.Name
	}
	return "bb" + strconv.Itoa(b.Index())
}

func instrLoc(f *ir.Func, in *ir.Instr, id ir.ValueID) diag.Location {
	return diag.AtValue(f.Name, blockName(in.Block), id)
}
