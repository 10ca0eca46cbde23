package node

import (
	"fmt"

	"github.com/reoring/goxaml/schema"
)

// Kind enumerates the structural events of a node stream.
type Kind uint8

const (
	None Kind = iota
	StartObject
	GetObject
	EndObject
	StartMember
	EndMember
	Value
	NamespaceDeclaration
)

func (k Kind) String() string {
	switch k {
	case None:
		return "None"
	case StartObject:
		return "StartObject"
	case GetObject:
		return "GetObject"
	case EndObject:
		return "EndObject"
	case StartMember:
		return "StartMember"
	case EndMember:
		return "EndMember"
	case Value:
		return "Value"
	case NamespaceDeclaration:
		return "NamespaceDeclaration"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Namespace binds a prefix to a namespace URI.
type Namespace struct {
	Prefix    string
	Namespace string
}

// LineInfo locates a node in its source document; zero when unknown.
type LineInfo struct {
	Line     int
	Position int
}

// Node is one structural event. Only the field matching Kind is set:
// Type for StartObject, Member for StartMember, Value for Value, Namespace
// for NamespaceDeclaration.
type Node struct {
	Kind      Kind
	Type      *schema.Type
	Member    *schema.Member
	Value     any
	Namespace Namespace
	LineInfo
}

func StartObjectNode(t *schema.Type) Node   { return Node{Kind: StartObject, Type: t} }
func GetObjectNode() Node                   { return Node{Kind: GetObject} }
func EndObjectNode() Node                   { return Node{Kind: EndObject} }
func StartMemberNode(m *schema.Member) Node { return Node{Kind: StartMember, Member: m} }
func EndMemberNode() Node                   { return Node{Kind: EndMember} }
func ValueNode(v any) Node                  { return Node{Kind: Value, Value: v} }

func NamespaceNode(prefix, namespace string) Node {
	return Node{Kind: NamespaceDeclaration, Namespace: Namespace{Prefix: prefix, Namespace: namespace}}
}

func (n Node) String() string {
	switch n.Kind {
	case StartObject:
		return "StartObject(" + n.Type.String() + ")"
	case StartMember:
		return "StartMember(" + n.Member.String() + ")"
	case Value:
		return fmt.Sprintf("Value(%v)", n.Value)
	case NamespaceDeclaration:
		return "NamespaceDeclaration(" + n.Namespace.Prefix + "=" + n.Namespace.Namespace + ")"
	default:
		return n.Kind.String()
	}
}
