// Package irfile reads and writes modules as msgpack snapshots.
//
// Values are renumbered on encoding: function references and parameters
// first, then instructions in layout order, then constants in the order
// operands first reach them. Types are renumbered the same way, so two
// modules with the same contents encode to the same bytes regardless of
// the history of their arenas.
package irfile

import "errors"

// SchemaVersion is bumped whenever the encoded layout changes.
const SchemaVersion uint16 = 1

// ErrCorrupt reports a snapshot that does not describe a valid module.
var ErrCorrupt = errors.New("corrupt module snapshot")

type fileModule struct {
	Schema uint16      `msgpack:"schema"`
	Name   string      `msgpack:"name"`
	Types  []fileType  `msgpack:"types"`
	Funcs  []fileFunc  `msgpack:"funcs"`
	Consts []fileConst `msgpack:"consts,omitempty"`
}

// fileType references other types by table index + 1; 0 is no type.
type fileType struct {
	Kind      uint8    `msgpack:"k"`
	Elem      uint32   `msgpack:"e,omitempty"`
	Count     uint32   `msgpack:"n,omitempty"`
	Width     uint8    `msgpack:"w,omitempty"`
	AddrSpace uint8    `msgpack:"as,omitempty"`
	Fields    []uint32 `msgpack:"f,omitempty"`
	Result    uint32   `msgpack:"r,omitempty"`
}

type fileParamAttrs struct {
	Align     uint32 `msgpack:"align,omitempty"`
	ImmArg    bool   `msgpack:"immarg,omitempty"`
	NoCapture bool   `msgpack:"nocapture,omitempty"`
}

type fileFunc struct {
	Name       string           `msgpack:"name"`
	Sig        uint32           `msgpack:"sig"`
	Attrs      uint32           `msgpack:"attrs,omitempty"`
	ParamAttrs []fileParamAttrs `msgpack:"pattrs,omitempty"`
	ParamNames []string         `msgpack:"pnames,omitempty"`
	Blocks     []fileBlock      `msgpack:"blocks,omitempty"`
}

type fileBlock struct {
	Name   string      `msgpack:"name"`
	Instrs []fileInstr `msgpack:"instrs"`
}

type fileMD struct {
	Kind  string `msgpack:"k"`
	Value string `msgpack:"v"`
}

// fileInstr stores operands as value numbers and blocks as indices into the
// owning function's block list.
type fileInstr struct {
	Kind    uint8    `msgpack:"k"`
	Type    uint32   `msgpack:"t"`
	Name    string   `msgpack:"name,omitempty"`
	Ops     []uint32 `msgpack:"ops,omitempty"`
	Op      uint8    `msgpack:"op,omitempty"`
	Flags   uint8    `msgpack:"fl,omitempty"`
	Tail    uint8    `msgpack:"tail,omitempty"`
	Attrs   uint32   `msgpack:"attrs,omitempty"`
	Align   []uint32 `msgpack:"align,omitempty"`
	Mem     uint32   `msgpack:"malign,omitempty"`
	Indices []uint32 `msgpack:"idx,omitempty"`
	Success uint8    `msgpack:"succ,omitempty"`
	Failure uint8    `msgpack:"fail,omitempty"`
	Blocks  []uint32 `msgpack:"bbs,omitempty"`
	MD      []fileMD `msgpack:"md,omitempty"`
}

// Flag bits of fileInstr.Flags.
const (
	flagExact uint8 = 1 << iota
	flagNUW
	flagNSW
	flagVolatile
	flagWeak
)

type fileConst struct {
	Type  uint32   `msgpack:"t"`
	Undef bool     `msgpack:"u,omitempty"`
	Lanes []uint64 `msgpack:"l,omitempty"`
}
