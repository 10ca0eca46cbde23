package yaml

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/internal/engine"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

// Encoder is a node.Writer building a YAML document. The document is
// written when the root object ends or on Close.
type Encoder struct {
	w    io.Writer
	sctx *schema.Context
	sm   *engine.StateManager

	prefixes map[string]string
	declared map[string]string
	pending  *yaml.Node

	objects []*yaml.Node
	members []*memberFrame
	root    *yaml.Node
	written bool
	events  int
}

type memberFrame struct {
	key   string
	items []*yaml.Node
}

var _ node.Writer = (*Encoder)(nil)

// NewEncoder writes to w.
func NewEncoder(w io.Writer, sctx *schema.Context) *Encoder {
	return &Encoder{
		w:        w,
		sctx:     sctx,
		sm:       engine.NewStateManager(engine.TextSettings()),
		prefixes: map[string]string{},
		declared: map[string]string{},
	}
}

func (e *Encoder) transition(ev node.Kind) error {
	e.events++
	if err := e.sm.Apply(ev); err != nil {
		var te *engine.TransitionError
		if errors.As(err, &te) {
			is := te.Issue("/")
			is.Line = e.events
			return goxaml.Issues{is}
		}
		return err
	}
	return nil
}

func (e *Encoder) WriteNamespace(ns node.Namespace) error {
	if err := e.transition(node.NamespaceDeclaration); err != nil {
		return err
	}
	e.declare(ns.Prefix, ns.Namespace)
	return nil
}

func (e *Encoder) declare(prefix, uri string) {
	e.prefixes[uri] = prefix
	e.declared[prefix] = uri
	if e.pending == nil {
		e.pending = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	pair(e.pending, prefix, scalar(tagStr, uri))
}

func (e *Encoder) prefixFor(ns string) string {
	if p, ok := e.prefixes[ns]; ok {
		return p
	}
	base := e.sctx.PreferredPrefix(ns)
	p := base
	for i := 1; ; i++ {
		if _, taken := e.declared[p]; !taken {
			break
		}
		p = base + strconv.Itoa(i)
	}
	e.declare(p, ns)
	return p
}

func (e *Encoder) typeName(t *schema.Type) string {
	var visit func(t *schema.Type)
	visit = func(t *schema.Type) {
		e.prefixFor(t.Namespace())
		for _, a := range t.TypeArguments() {
			visit(a)
		}
	}
	visit(t)
	return schema.FormatTypeName(t, func(ns string) string { return e.prefixes[ns] })
}

// memberName declares namespaces a member name needs on the enclosing
// object, ahead of its members.
func (e *Encoder) memberName(m *schema.Member) string {
	pending := e.pending
	e.pending = nil
	name := schema.FormatMemberName(m, e.prefixFor)
	if e.pending != nil {
		obj := e.objects[len(e.objects)-1]
		if len(obj.Content) > 0 && obj.Content[0].Value == keyNamespaces {
			obj.Content[1].Content = append(obj.Content[1].Content, e.pending.Content...)
		} else {
			obj.Content = append([]*yaml.Node{scalar(tagStr, keyNamespaces), e.pending}, obj.Content...)
		}
	}
	e.pending = pending
	return name
}

// openObject starts a mapping, attaches pending declarations to it and hangs
// it on the enclosing member.
func (e *Encoder) openObject() *yaml.Node {
	obj := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if e.pending != nil {
		pair(obj, keyNamespaces, e.pending)
		e.pending = nil
	}
	if k := len(e.members); k > 0 {
		e.members[k-1].items = append(e.members[k-1].items, obj)
	}
	e.objects = append(e.objects, obj)
	return obj
}

func (e *Encoder) WriteStartObject(t *schema.Type) error {
	if err := e.transition(node.StartObject); err != nil {
		return err
	}
	name := e.typeName(t)
	pair(e.openObject(), keyType, scalar(tagStr, name))
	return nil
}

func (e *Encoder) WriteGetObject() error {
	if err := e.transition(node.GetObject); err != nil {
		return err
	}
	pair(e.openObject(), keyGet, scalar(tagBool, "true"))
	return nil
}

func (e *Encoder) WriteEndObject() error {
	if err := e.transition(node.EndObject); err != nil {
		return err
	}
	k := len(e.objects)
	obj := e.objects[k-1]
	e.objects = e.objects[:k-1]
	if k == 1 {
		e.root = obj
		return e.flush()
	}
	return nil
}

func (e *Encoder) WriteStartMember(m *schema.Member) error {
	if err := e.transition(node.StartMember); err != nil {
		return err
	}
	if m == e.sctx.Language().PositionalParameters {
		e.sm.SetAcceptMultipleValues(true)
	}
	e.members = append(e.members, &memberFrame{key: e.memberName(m)})
	return nil
}

func (e *Encoder) WriteEndMember() error {
	if err := e.transition(node.EndMember); err != nil {
		return err
	}
	k := len(e.members)
	mf := e.members[k-1]
	e.members = e.members[:k-1]
	var value *yaml.Node
	switch len(mf.items) {
	case 1:
		value = mf.items[0]
	default:
		value = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: mf.items}
		if len(mf.items) == 0 {
			value.Style = yaml.FlowStyle
		}
	}
	pair(e.objects[len(e.objects)-1], mf.key, value)
	return nil
}

func (e *Encoder) WriteValue(v any) error {
	if err := e.transition(node.Value); err != nil {
		return err
	}
	var n *yaml.Node
	switch x := v.(type) {
	case nil:
		n = scalar(tagNull, "null")
	case string:
		n = scalar(tagStr, x)
	default:
		conv := e.sctx.TypeOf(v).Converter()
		if conv == nil {
			return goxaml.Fail(goxaml.CodeTypeMismatch, "/", "value", fmt.Sprint(v), "actual", fmt.Sprintf("%T", v), "expected", "string")
		}
		s, err := conv.ToString(v, e)
		if err != nil {
			return err
		}
		n = scalar(tagStr, s)
	}
	mf := e.members[len(e.members)-1]
	mf.items = append(mf.items, n)
	return nil
}

func (e *Encoder) flush() error {
	if e.written || e.root == nil {
		return nil
	}
	e.written = true
	enc := yaml.NewEncoder(e.w)
	enc.SetIndent(2)
	if err := enc.Encode(e.root); err != nil {
		return err
	}
	return enc.Close()
}

// Close writes the document if the root has not ended yet. The stream must
// be empty or complete.
func (e *Encoder) Close() error {
	if st := e.sm.State(); st != engine.End && st != engine.Initial {
		return goxaml.Fail(goxaml.CodeInvalidTransition, "/", "event", "Close", "state", st.String())
	}
	return e.flush()
}

func (e *Encoder) LookupNamespace(prefix string) (string, bool) {
	ns, ok := e.declared[prefix]
	return ns, ok
}

func (e *Encoder) LookupPrefix(namespace string) (string, bool) {
	p, ok := e.prefixes[namespace]
	return p, ok
}
