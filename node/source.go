package node

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/reoring/goxaml/schema"
)

// Source produces nodes one at a time. NextNode returns io.EOF after the
// last node.
type Source interface {
	NextNode() (Node, error)
}

// Writer consumes nodes. Implementations validate ordering with the writer
// state machine.
type Writer interface {
	WriteStartObject(t *schema.Type) error
	WriteGetObject() error
	WriteEndObject() error
	WriteStartMember(m *schema.Member) error
	WriteEndMember() error
	WriteValue(v any) error
	WriteNamespace(ns Namespace) error
	Close() error
}

// LineInfoConsumer is implemented by writers that record where the next
// node came from.
type LineInfoConsumer interface {
	SetLineInfo(li LineInfo)
}

// Write dispatches n to the matching Writer method.
func Write(w Writer, n Node) error {
	if lc, ok := w.(LineInfoConsumer); ok && n.Line > 0 {
		lc.SetLineInfo(n.LineInfo)
	}
	switch n.Kind {
	case StartObject:
		return w.WriteStartObject(n.Type)
	case GetObject:
		return w.WriteGetObject()
	case EndObject:
		return w.WriteEndObject()
	case StartMember:
		return w.WriteStartMember(n.Member)
	case EndMember:
		return w.WriteEndMember()
	case Value:
		return w.WriteValue(n.Value)
	case NamespaceDeclaration:
		return w.WriteNamespace(n.Namespace)
	default:
		return fmt.Errorf("node: cannot write %s", n.Kind)
	}
}

// Copy feeds every node of src into dst until src is exhausted. It does not
// close dst. The context is checked between nodes.
func Copy(ctx context.Context, dst Writer, src Source) (int, error) {
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		n, err := src.NextNode()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		if err := Write(dst, n); err != nil {
			return count, err
		}
		count++
	}
}

// Transform copies src into dst and closes dst.
func Transform(ctx context.Context, dst Writer, src Source) error {
	if _, err := Copy(ctx, dst, src); err != nil {
		return err
	}
	return dst.Close()
}

// Collect drains src into a slice.
func Collect(src Source) ([]Node, error) {
	var out []Node
	for {
		n, err := src.NextNode()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
}

// FromSlice returns a Source over nodes.
func FromSlice(nodes []Node) Source { return &sliceSource{nodes: nodes} }

type sliceSource struct {
	nodes []Node
	pos   int
}

func (s *sliceSource) NextNode() (Node, error) {
	if s.pos >= len(s.nodes) {
		return Node{}, io.EOF
	}
	n := s.nodes[s.pos]
	s.pos++
	return n, nil
}
