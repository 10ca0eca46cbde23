package engine

import (
	"fmt"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/node"
)

// State is a position of the writer state machine.
type State uint8

const (
	Initial State = iota
	ObjectStarted
	MemberStarted
	ObjectWritten
	ValueWritten
	MemberDone
	End
)

func (s State) String() string {
	switch s {
	case Initial:
		return "Initial"
	case ObjectStarted:
		return "ObjectStarted"
	case MemberStarted:
		return "MemberStarted"
	case ObjectWritten:
		return "ObjectWritten"
	case ValueWritten:
		return "ValueWritten"
	case MemberDone:
		return "MemberDone"
	case End:
		return "End"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Settings toggles the optional transitions.
type Settings struct {
	// AllowObjectAfterValue permits StartObject right after a Value.
	AllowObjectAfterValue bool
	// AllowParallelValues permits consecutive Values under one member.
	AllowParallelValues bool
	// AllowEmptyMember permits EndMember right after StartMember.
	AllowEmptyMember bool
	// AllowNamespaceAtValue permits a pending namespace declaration before a
	// Value.
	AllowNamespaceAtValue bool
}

// TextSettings is the text-syntax consumption mode.
func TextSettings() Settings {
	return Settings{AllowObjectAfterValue: true, AllowNamespaceAtValue: true}
}

// ObjectSettings is the object-graph consumption mode.
func ObjectSettings() Settings {
	return Settings{AllowParallelValues: true, AllowEmptyMember: true}
}

// StateManager validates the order of node requests. It knows nothing about
// what the nodes mean.
type StateManager struct {
	opt            Settings
	state          State
	depth          int
	nsPending      bool
	acceptMultiple bool
}

// NewStateManager starts in Initial.
func NewStateManager(opt Settings) *StateManager {
	return &StateManager{opt: opt}
}

func (m *StateManager) State() State { return m.state }

// Depth is the number of open objects.
func (m *StateManager) Depth() int { return m.depth }

// SetAcceptMultipleValues allows consecutive Values under the current member,
// as positional parameter lists need.
func (m *StateManager) SetAcceptMultipleValues(v bool) { m.acceptMultiple = v }

// TransitionError reports a request the current state does not accept.
type TransitionError struct {
	Event     node.Kind
	State     State
	Namespace bool
}

func (e *TransitionError) Error() string {
	if e.Namespace {
		return fmt.Sprintf("namespace declaration must precede a start object or start member, not %s", e.Event)
	}
	return fmt.Sprintf("%s is not allowed in state %s", e.Event, e.State)
}

// Issue converts e into an Issue located at path.
func (e *TransitionError) Issue(path string) goxaml.Issue {
	code := goxaml.CodeInvalidTransition
	if e.Namespace {
		code = goxaml.CodeNamespaceMisplaced
	}
	is := goxaml.NewIssue(code, path, "event", e.Event.String(), "state", e.State.String())
	is.Cause = e
	return is
}

func (m *StateManager) fail(ev node.Kind) error {
	return &TransitionError{Event: ev, State: m.state}
}

func (m *StateManager) checkNamespace(ev node.Kind) error {
	if m.nsPending {
		return &TransitionError{Event: ev, State: m.state, Namespace: true}
	}
	return nil
}

// Apply validates and performs the transition for ev.
func (m *StateManager) Apply(ev node.Kind) error {
	switch ev {
	case node.StartObject:
		return m.StartObject()
	case node.GetObject:
		return m.GetObject()
	case node.EndObject:
		return m.EndObject()
	case node.StartMember:
		return m.StartMember()
	case node.EndMember:
		return m.EndMember()
	case node.Value:
		return m.Value()
	case node.NamespaceDeclaration:
		return m.Namespace()
	default:
		return m.fail(ev)
	}
}

func (m *StateManager) StartObject() error {
	switch m.state {
	case Initial, MemberStarted, ObjectWritten:
	case ValueWritten:
		if !m.opt.AllowObjectAfterValue {
			return m.fail(node.StartObject)
		}
	default:
		return m.fail(node.StartObject)
	}
	m.nsPending = false
	m.depth++
	m.state = ObjectStarted
	return nil
}

func (m *StateManager) GetObject() error {
	if m.state != MemberStarted {
		return m.fail(node.GetObject)
	}
	if err := m.checkNamespace(node.GetObject); err != nil {
		return err
	}
	m.depth++
	m.state = MemberDone
	return nil
}

func (m *StateManager) EndObject() error {
	switch m.state {
	case ObjectStarted, MemberDone:
	default:
		return m.fail(node.EndObject)
	}
	if err := m.checkNamespace(node.EndObject); err != nil {
		return err
	}
	m.depth--
	if m.depth == 0 {
		m.state = End
	} else {
		m.state = ObjectWritten
	}
	return nil
}

func (m *StateManager) StartMember() error {
	switch m.state {
	case ObjectStarted, MemberDone:
	default:
		return m.fail(node.StartMember)
	}
	m.nsPending = false
	m.state = MemberStarted
	return nil
}

func (m *StateManager) EndMember() error {
	switch m.state {
	case ObjectWritten, ValueWritten:
	case MemberStarted:
		if !m.opt.AllowEmptyMember {
			return m.fail(node.EndMember)
		}
	default:
		return m.fail(node.EndMember)
	}
	if err := m.checkNamespace(node.EndMember); err != nil {
		return err
	}
	m.acceptMultiple = false
	m.state = MemberDone
	return nil
}

func (m *StateManager) Value() error {
	switch m.state {
	case MemberStarted, ObjectWritten:
	case ValueWritten:
		if !m.opt.AllowParallelValues && !m.acceptMultiple {
			return m.fail(node.Value)
		}
	default:
		return m.fail(node.Value)
	}
	if !m.opt.AllowNamespaceAtValue {
		if err := m.checkNamespace(node.Value); err != nil {
			return err
		}
	}
	m.nsPending = false
	m.state = ValueWritten
	return nil
}

// Namespace records a pending declaration. Declarations are accepted in any
// state before End.
func (m *StateManager) Namespace() error {
	if m.state == End {
		return m.fail(node.NamespaceDeclaration)
	}
	m.nsPending = true
	return nil
}
