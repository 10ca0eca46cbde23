package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

// Decoder is a node.Source over a YAML document. The document is parsed on
// the first call to NextNode; nodes carry the YAML line and column they came
// from.
type Decoder struct {
	r    io.Reader
	sctx *schema.Context

	parsed bool
	queue  *node.Queue
	out    node.Writer

	scopes []map[string]string
}

var _ node.Source = (*Decoder)(nil)

// NewDecoder reads a document from r, resolving names against sctx.
func NewDecoder(r io.Reader, sctx *schema.Context) *Decoder {
	q := node.NewQueue()
	return &Decoder{r: r, sctx: sctx, queue: q, out: q.Writer()}
}

// NewBytes decodes a document held in memory.
func NewBytes(b []byte, sctx *schema.Context) *Decoder {
	return NewDecoder(bytes.NewReader(b), sctx)
}

func (d *Decoder) NextNode() (node.Node, error) {
	if !d.parsed {
		d.parsed = true
		if err := d.parse(); err != nil {
			return node.Node{}, err
		}
	}
	n, err := d.queue.Dequeue()
	if errors.Is(err, node.ErrQueueEmpty) {
		return node.Node{}, io.EOF
	}
	return n, err
}

func (d *Decoder) parse() error {
	var doc yaml.Node
	dec := yaml.NewDecoder(d.r)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return goxaml.Fail(goxaml.CodeParseError, "/", "detail", err.Error())
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		root = root.Content[0]
	}
	return d.object(root, nil)
}

func (d *Decoder) fail(at *yaml.Node, detail string, args ...any) error {
	err := goxaml.Fail(goxaml.CodeParseError, "/", "detail", fmt.Sprintf(detail, args...))
	return goxaml.WithLine(err, at.Line, at.Column)
}

func (d *Decoder) at(n *yaml.Node) {
	if lc, ok := d.out.(node.LineInfoConsumer); ok {
		lc.SetLineInfo(node.LineInfo{Line: n.Line, Position: n.Column})
	}
}

func (d *Decoder) lookupNamespace(prefix string) (string, bool) {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		if ns, ok := d.scopes[i][prefix]; ok {
			return ns, true
		}
	}
	return "", false
}

// object emits the mapping n as an object. owner is the member holding it,
// nil at the root.
func (d *Decoder) object(n *yaml.Node, owner *schema.Member) error {
	if n.Kind != yaml.MappingNode {
		return d.fail(n, "expected an object mapping, got %s", kindName(n))
	}
	scope := map[string]string{}
	d.scopes = append(d.scopes, scope)
	defer func() { d.scopes = d.scopes[:len(d.scopes)-1] }()

	var typ *schema.Type
	started := false
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		switch k.Value {
		case keyNamespaces:
			if started {
				// Declarations found after the header scope the rest of the object.
				if err := d.namespaces(v, scope, false); err != nil {
					return err
				}
				continue
			}
			if err := d.namespaces(v, scope, true); err != nil {
				return err
			}
		case keyType:
			if started {
				return d.fail(k, "%s after the object started", keyType)
			}
			t, err := d.sctx.ParseTypeName(v.Value, d.lookupNamespace)
			if err != nil {
				return d.fail(v, "%v", err)
			}
			d.at(k)
			if err := d.out.WriteStartObject(t); err != nil {
				return err
			}
			typ, started = t, true
		case keyGet:
			if started {
				return d.fail(k, "%s after the object started", keyGet)
			}
			if owner != nil {
				typ = owner.Type()
			}
			d.at(k)
			if err := d.out.WriteGetObject(); err != nil {
				return err
			}
			started = true
		default:
			if !started {
				return d.fail(k, "member %q before %s", k.Value, keyType)
			}
			if err := d.member(k, v, typ); err != nil {
				return err
			}
		}
	}
	if !started {
		return d.fail(n, "object without %s or %s", keyType, keyGet)
	}
	d.at(n)
	return d.out.WriteEndObject()
}

func (d *Decoder) namespaces(v *yaml.Node, scope map[string]string, emit bool) error {
	if v.Kind != yaml.MappingNode {
		return d.fail(v, "%s must be a mapping", keyNamespaces)
	}
	for i := 0; i+1 < len(v.Content); i += 2 {
		prefix, uri := v.Content[i].Value, v.Content[i+1].Value
		scope[prefix] = uri
		if emit {
			d.at(v.Content[i])
			if err := d.out.WriteNamespace(node.Namespace{Prefix: prefix, Namespace: uri}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Decoder) member(k, v *yaml.Node, current *schema.Type) error {
	m, err := d.sctx.ParseMemberName(k.Value, current, d.lookupNamespace)
	if err != nil {
		return d.fail(k, "%v", err)
	}
	d.at(k)
	if err := d.out.WriteStartMember(m); err != nil {
		return err
	}
	items := []*yaml.Node{v}
	if v.Kind == yaml.SequenceNode {
		items = v.Content
	}
	for _, it := range items {
		if err := d.item(it, m); err != nil {
			return err
		}
	}
	return d.out.WriteEndMember()
}

func (d *Decoder) item(n *yaml.Node, m *schema.Member) error {
	switch n.Kind {
	case yaml.ScalarNode:
		d.at(n)
		if n.Tag == tagNull {
			return d.out.WriteValue(nil)
		}
		return d.out.WriteValue(n.Value)
	case yaml.MappingNode:
		return d.object(n, m)
	case yaml.AliasNode:
		return d.item(n.Alias, m)
	default:
		return d.fail(n, "unexpected %s in member", kindName(n))
	}
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "node"
}
