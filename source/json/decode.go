package json

import (
	"bytes"
	"fmt"
	"io"

	j "github.com/goccy/go-json"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

// Decoder is a node.Source over a JSON node document. Nodes are decoded one
// at a time; LineInfo.Line carries the node's 1-based position in the
// nodes array.
type Decoder struct {
	dec  *j.Decoder
	sctx *schema.Context

	started bool
	inNodes bool
	done    bool
	pending []node.Node
	ordinal int

	prefixes map[string]string
	types    []*schema.Type
	member   *schema.Member
}

var _ node.Source = (*Decoder)(nil)

// NewDecoder reads a document from r, resolving names against sctx.
func NewDecoder(r io.Reader, sctx *schema.Context) *Decoder {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	return &Decoder{dec: dec, sctx: sctx, prefixes: map[string]string{}}
}

// NewBytes decodes a document held in memory.
func NewBytes(b []byte, sctx *schema.Context) *Decoder {
	return NewDecoder(bytes.NewReader(b), sctx)
}

func (d *Decoder) fail(detail string, args ...any) error {
	return goxaml.Fail(goxaml.CodeParseError, "/", "detail", fmt.Sprintf(detail, args...))
}

func (d *Decoder) NextNode() (node.Node, error) {
	if len(d.pending) > 0 {
		n := d.pending[0]
		d.pending = d.pending[1:]
		return n, nil
	}
	if d.done {
		return node.Node{}, io.EOF
	}
	if !d.started {
		d.started = true
		if err := d.expectDelim('{'); err != nil {
			return node.Node{}, err
		}
	}
	for !d.inNodes {
		if !d.dec.More() {
			if err := d.expectDelim('}'); err != nil {
				return node.Node{}, err
			}
			d.done = true
			return d.NextNode()
		}
		key, err := d.key()
		if err != nil {
			return node.Node{}, err
		}
		switch key {
		case "namespaces":
			var nss []nsDoc
			if err := d.dec.Decode(&nss); err != nil {
				return node.Node{}, d.fail("namespaces: %v", err)
			}
			for _, ns := range nss {
				d.prefixes[ns.Prefix] = ns.URI
				d.pending = append(d.pending, node.NamespaceNode(ns.Prefix, ns.URI))
			}
			if len(d.pending) > 0 {
				return d.NextNode()
			}
		case "nodes":
			if err := d.expectDelim('['); err != nil {
				return node.Node{}, err
			}
			d.inNodes = true
		default:
			var skip any
			if err := d.dec.Decode(&skip); err != nil {
				return node.Node{}, d.fail("%s: %v", key, err)
			}
		}
	}
	if !d.dec.More() {
		if err := d.expectDelim(']'); err != nil {
			return node.Node{}, err
		}
		d.inNodes = false
		return d.NextNode()
	}
	var doc nodeDoc
	if err := d.dec.Decode(&doc); err != nil {
		return node.Node{}, d.fail("node %d: %v", d.ordinal+1, err)
	}
	d.ordinal++
	n, err := d.toNode(doc)
	if err != nil {
		return node.Node{}, goxaml.WithLine(err, d.ordinal, 0)
	}
	n.LineInfo = node.LineInfo{Line: d.ordinal}
	return n, nil
}

func (d *Decoder) key() (string, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return "", d.fail("%v", err)
	}
	s, ok := tok.(string)
	if !ok {
		return "", d.fail("expected key, got %v", tok)
	}
	return s, nil
}

func (d *Decoder) expectDelim(want j.Delim) error {
	tok, err := d.dec.Token()
	if err != nil {
		return d.fail("expected %q: %v", want, err)
	}
	if got, ok := tok.(j.Delim); !ok || got != want {
		return d.fail("expected %q, got %v", want, tok)
	}
	return nil
}

func (d *Decoder) lookupNamespace(prefix string) (string, bool) {
	ns, ok := d.prefixes[prefix]
	return ns, ok
}

func (d *Decoder) toNode(doc nodeDoc) (node.Node, error) {
	kind, ok := kindNames[doc.Kind]
	if !ok {
		return node.Node{}, d.fail("unknown node kind %q", doc.Kind)
	}
	switch kind {
	case node.NamespaceDeclaration:
		prefix := ""
		if doc.Prefix != nil {
			prefix = *doc.Prefix
		}
		d.prefixes[prefix] = doc.URI
		return node.NamespaceNode(prefix, doc.URI), nil
	case node.StartObject:
		t, err := d.sctx.ParseTypeName(doc.Type, d.lookupNamespace)
		if err != nil {
			return node.Node{}, d.fail("%v", err)
		}
		d.types = append(d.types, t)
		d.member = nil
		return node.StartObjectNode(t), nil
	case node.GetObject:
		var t *schema.Type
		if d.member != nil {
			t = d.member.Type()
		}
		d.types = append(d.types, t)
		d.member = nil
		return node.GetObjectNode(), nil
	case node.EndObject:
		if k := len(d.types); k > 0 {
			d.types = d.types[:k-1]
		}
		return node.EndObjectNode(), nil
	case node.StartMember:
		m, err := d.resolveMember(doc.Member)
		if err != nil {
			return node.Node{}, err
		}
		d.member = m
		return node.StartMemberNode(m), nil
	case node.EndMember:
		d.member = nil
		return node.EndMemberNode(), nil
	default:
		switch v := doc.Value.(type) {
		case nil, string:
			return node.ValueNode(v), nil
		case j.Number:
			return node.ValueNode(v.String()), nil
		default:
			return node.ValueNode(fmt.Sprint(v)), nil
		}
	}
}

func (d *Decoder) resolveMember(name string) (*schema.Member, error) {
	var current *schema.Type
	if k := len(d.types); k > 0 {
		current = d.types[k-1]
	}
	m, err := d.sctx.ParseMemberName(name, current, d.lookupNamespace)
	if err != nil {
		return nil, d.fail("%v", err)
	}
	return m, nil
}
