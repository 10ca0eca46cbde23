package node

import "io"

// Subtree exposes a single object subtree of inner: the next
// StartObject/GetObject together with everything up to its matching
// EndObject. A leading Value, or a member's Start/EndMember pair, counts as
// a subtree of its own. Namespace declarations preceding the object pass
// through.
type Subtree struct {
	inner Source
	first *Node
	depth int
	done  bool
}

// ReadSubtree returns a view over the next subtree of inner.
func ReadSubtree(inner Source) *Subtree { return &Subtree{inner: inner} }

// ReadSubtreeFrom returns a view whose first node has already been taken
// from inner.
func ReadSubtreeFrom(first Node, inner Source) *Subtree {
	return &Subtree{inner: inner, first: &first}
}

func (s *Subtree) NextNode() (Node, error) {
	if s.done {
		return Node{}, io.EOF
	}
	var n Node
	if s.first != nil {
		n, s.first = *s.first, nil
	} else {
		var err error
		if n, err = s.inner.NextNode(); err != nil {
			return Node{}, err
		}
	}
	switch n.Kind {
	case NamespaceDeclaration:
		return n, nil
	case StartObject, GetObject, StartMember:
		s.depth++
	case EndObject, EndMember:
		s.depth--
	}
	if s.depth <= 0 {
		s.done = true
	}
	return n, nil
}
