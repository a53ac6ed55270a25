package jack

import (
	_ "embed"
	"encoding/json"
)

//go:embed stdlib.json
var stdlibJSON string

// StdlibSubroutine describes one entry of the nand2tetris standard library ABI, enough
// to arity-check a call against it without having compiled the library itself.
type StdlibSubroutine struct {
	Kind  SubroutineKind `json:"kind"`
	Arity int            `json:"arity"`
}

type SubroutineKind string

const (
	SubroutineConstructor SubroutineKind = "constructor"
	SubroutineFunction    SubroutineKind = "function"
	SubroutineMethod      SubroutineKind = "method"
)

// StandardLibrary maps a standard class name to its subroutines' ABI, used by the
// (optional) type checker to validate calls to Math/String/Array/... without requiring
// those classes to be compiled alongside the input (§6, no-linking non-goal).
var StandardLibrary = map[string]map[string]StdlibSubroutine{}

func init() {
	if err := json.Unmarshal([]byte(stdlibJSON), &StandardLibrary); err != nil {
		panic("jack: malformed embedded stdlib.json: " + err.Error())
	}
}
