package script

import (
	"fmt"
	"log/slog"

	"github.com/robbyt/go-fsm"
)

// State is the lifecycle state of a Script.
type State string

const (
	StateUnknown  State = "unknown"
	StateCompiled State = "compiled"
	StateCached   State = "cached"
)

// stateTransitions allows exactly one move out of StateUnknown. Both targets are terminal.
var stateTransitions = map[string][]string{
	string(StateUnknown):  {string(StateCompiled), string(StateCached)},
	string(StateCompiled): {},
	string(StateCached):   {},
}

func newStateMachine(handler slog.Handler) (*fsm.Machine, error) {
	machine, err := fsm.New(handler, string(StateUnknown), stateTransitions)
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}
	return machine, nil
}

// ObjectKind records the shape of the artifact last produced.
type ObjectKind int

const (
	ObjectUnset ObjectKind = iota
	ObjectExecutable
	ObjectRelocatable
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectExecutable:
		return "executable"
	case ObjectRelocatable:
		return "relocatable"
	default:
		return "unset"
	}
}

// Source slots.
const (
	SlotMain    = 0
	SlotLibrary = 1
	slotCount   = 2
)
