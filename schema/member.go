package schema

import (
	"reflect"
)

// MemberKind tags the variant a Member descriptor represents.
type MemberKind uint8

const (
	// MemberOrdinary is a field declared (or promoted) on its declaring type.
	MemberOrdinary MemberKind = iota
	// MemberAttachable is declared by an owner type and stored in a side
	// table on the target instance.
	MemberAttachable
	// MemberDirective is a language-level member (Items, Key, Name, ...).
	MemberDirective
	// MemberUnknown is the placeholder for a name no schema knows.
	MemberUnknown
)

func (k MemberKind) String() string {
	switch k {
	case MemberOrdinary:
		return "Ordinary"
	case MemberAttachable:
		return "Attachable"
	case MemberDirective:
		return "Directive"
	case MemberUnknown:
		return "Unknown"
	default:
		return "MemberKind(?)"
	}
}

type memberFlags uint16

const (
	memberReadPublic memberFlags = 1 << iota
	memberWritePublic
	memberReadOnly
	memberAmbient
	memberContent
	memberNameProperty
	memberEvent
	memberOmitEmpty
)

// Member describes one property, attachable member or directive. Fields
// irrelevant to the variant stay zero: directives have no declaring type and
// no field index, attachables have no field index.
type Member struct {
	kind      MemberKind
	name      string
	namespace string
	declaring *Type
	valueType *Type
	fieldType reflect.Type
	index     []int
	flags     memberFlags
	argPos    int
	converter ValueConverter
}

func (m *Member) Kind() MemberKind { return m.kind }
func (m *Member) Name() string     { return m.name }

// Namespace is the directive namespace for directives and the declaring
// type's namespace otherwise.
func (m *Member) Namespace() string {
	if m.namespace != "" || m.declaring == nil {
		return m.namespace
	}
	return m.declaring.Namespace()
}

// DeclaringType is nil for directives.
func (m *Member) DeclaringType() *Type { return m.declaring }

// Type is the member's value type; nil for directives, whose values are
// interpreted by the reader and builder per directive.
func (m *Member) Type() *Type { return m.valueType }

// FieldType is the Go type of the backing field (or attached value).
func (m *Member) FieldType() reflect.Type { return m.fieldType }

// FieldIndex is the reflect index path of an ordinary member.
func (m *Member) FieldIndex() []int { return m.index }

func (m *Member) IsDirective() bool  { return m.kind == MemberDirective }
func (m *Member) IsAttachable() bool { return m.kind == MemberAttachable }
func (m *Member) IsUnknown() bool    { return m.kind == MemberUnknown }

func (m *Member) IsReadPublic() bool  { return m.flags&memberReadPublic != 0 }
func (m *Member) IsWritePublic() bool { return m.flags&memberWritePublic != 0 }

// IsReadOnly marks members settable only through construction, e.g. a
// collection whose contents are filled in place.
func (m *Member) IsReadOnly() bool     { return m.flags&memberReadOnly != 0 }
func (m *Member) IsAmbient() bool      { return m.flags&memberAmbient != 0 }
func (m *Member) IsEvent() bool        { return m.flags&memberEvent != 0 }
func (m *Member) OmitEmpty() bool      { return m.flags&memberOmitEmpty != 0 }
func (m *Member) isContent() bool      { return m.flags&memberContent != 0 }
func (m *Member) isNameProperty() bool { return m.flags&memberNameProperty != 0 }

// IsConstructorArgument reports whether the member is filled through the
// constructor argument list.
func (m *Member) IsConstructorArgument() bool { return m.argPos >= 0 }

// ArgumentPosition is the constructor position, -1 when not an argument.
func (m *Member) ArgumentPosition() int { return m.argPos }

// Converter returns the member's converter, falling back to the value type's.
func (m *Member) Converter() ValueConverter {
	if m.converter != nil {
		return m.converter
	}
	if m.valueType != nil {
		return m.valueType.Converter()
	}
	return nil
}

// Equal compares directives by identity and other members by declaring type
// and name.
func (m *Member) Equal(o *Member) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil {
		return false
	}
	if m.kind == MemberDirective || o.kind == MemberDirective {
		return false
	}
	if m.name != o.name || m.kind != o.kind {
		return false
	}
	if m.declaring == nil || o.declaring == nil {
		return m.declaring == o.declaring && m.namespace == o.namespace
	}
	return m.declaring.Equal(o.declaring)
}

func (m *Member) String() string {
	if m == nil {
		return "<nil>"
	}
	switch m.kind {
	case MemberDirective:
		return "x:" + m.name
	case MemberAttachable, MemberUnknown:
		if m.declaring != nil {
			return m.declaring.Name() + "." + m.name
		}
		return m.name
	default:
		return m.name
	}
}

// unknownMember builds the placeholder returned for a name that does not
// resolve on t.
func unknownMember(t *Type, name string) *Member {
	return &Member{
		kind:      MemberUnknown,
		name:      name,
		declaring: t,
		flags:     memberReadPublic | memberWritePublic,
		argPos:    -1,
	}
}

// NewUnknownMember returns an unknown placeholder for name on t. Text adapters
// use it when a document names a member no schema knows.
func NewUnknownMember(t *Type, name string) *Member { return unknownMember(t, name) }
