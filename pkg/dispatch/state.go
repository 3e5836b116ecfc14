package dispatch

// State is a step of a single render request.
type State int

const (
	StateUnresolved State = iota
	StateDefinitionResolved
	StateCompiling
	StateCompiled
	StateRendering
	StateRendered
	StateOmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateDefinitionResolved:
		return "definition-resolved"
	case StateCompiling:
		return "compiling"
	case StateCompiled:
		return "compiled"
	case StateRendering:
		return "rendering"
	case StateRendered:
		return "rendered"
	case StateOmitted:
		return "omitted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateRendered || s == StateOmitted || s == StateFailed
}

// Event describes a state transition of a render request. Err is set for
// StateFailed.
type Event struct {
	InputPath string
	Extension string
	// Depth is zero for the outer request and grows by one for every
	// default renderer delegation.
	Depth int
	State State
	Err   error
}

// Observer receives render state transitions. It is called synchronously.
type Observer func(Event)
