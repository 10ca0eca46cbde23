package schema

import (
	"cmp"
	"slices"
)

// memberRank orders members for emission: construction directives, other
// directives, ordinary and attachable members, the content member, items.
func memberRank(m *Member) int {
	l := Lang()
	switch {
	case m.kind == MemberDirective && l.IsConstruction(m):
		return 0
	case m == l.Items:
		return 4
	case m.kind == MemberDirective:
		return 1
	case m.isContent():
		return 3
	default:
		return 2
	}
}

// CompareMembers is the one ordering shared by the object reader and the
// object writer. Dictionary entries rely on it: a key is emitted before or
// after the entry's value members depending on where Key sorts.
func CompareMembers(a, b *Member) int {
	if c := cmp.Compare(memberRank(a), memberRank(b)); c != 0 {
		return c
	}
	if a.kind == MemberDirective && b.kind == MemberDirective {
		return cmp.Compare(directiveOrder(a), directiveOrder(b))
	}
	// attachables sort after ordinary members of the same rank
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if a.kind == MemberAttachable && a.declaring != nil && b.declaring != nil {
		if c := cmp.Compare(a.declaring.Name(), b.declaring.Name()); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.name, b.name)
}

func directiveOrder(m *Member) int {
	l := Lang()
	switch m {
	case l.FactoryMethod:
		return 0
	case l.Arguments:
		return 1
	case l.PositionalParameters:
		return 2
	case l.Initialization:
		return 3
	case l.Key:
		return 4
	case l.Name:
		return 5
	case l.Uid:
		return 6
	default:
		return 7
	}
}

// SortMembers sorts ms in place with CompareMembers.
func SortMembers(ms []*Member) {
	slices.SortStableFunc(ms, CompareMembers)
}

// sortConstructorArguments orders constructor arguments by position, then
// name.
func sortConstructorArguments(ms []*Member) {
	slices.SortStableFunc(ms, func(a, b *Member) int {
		if c := cmp.Compare(a.argPos, b.argPos); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
}
