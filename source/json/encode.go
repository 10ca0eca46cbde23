package json

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/internal/engine"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

// Encoder is a node.Writer rendering a JSON node document, one node per
// line. It validates the stream in text mode and declares namespaces the
// stream uses without declaring them.
type Encoder struct {
	w    io.Writer
	sctx *schema.Context
	sm   *engine.StateManager

	prefixes map[string]string
	declared map[string]string

	started   bool
	nodesOpen bool
	first     bool
	line      int
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
	if err := e.sm.Apply(ev); err != nil {
		var te *engine.TransitionError
		if errors.As(err, &te) {
			is := te.Issue("/")
			is.Line = e.line + 1
			return goxaml.Issues{is}
		}
		return err
	}
	return nil
}

func (e *Encoder) write(s string) error {
	_, err := io.WriteString(e.w, s)
	return err
}

func (e *Encoder) open() error {
	if e.started {
		return nil
	}
	e.started, e.first = true, true
	return e.write(`{"namespaces":[`)
}

func (e *Encoder) element(v any) error {
	b, err := j.Marshal(v)
	if err != nil {
		return err
	}
	sep := ",\n"
	if e.first {
		sep, e.first = "\n", false
	}
	if err := e.write(sep); err != nil {
		return err
	}
	_, err = e.w.Write(b)
	return err
}

func (e *Encoder) openNodes() error {
	if err := e.open(); err != nil {
		return err
	}
	if e.nodesOpen {
		return nil
	}
	e.nodesOpen, e.first = true, true
	return e.write("\n],\"nodes\":[")
}

func (e *Encoder) node(doc nodeDoc) error {
	if err := e.openNodes(); err != nil {
		return err
	}
	e.line++
	return e.element(doc)
}

func (e *Encoder) WriteNamespace(ns node.Namespace) error {
	if err := e.transition(node.NamespaceDeclaration); err != nil {
		return err
	}
	return e.declare(ns.Prefix, ns.Namespace)
}

func (e *Encoder) declare(prefix, uri string) error {
	e.prefixes[uri] = prefix
	e.declared[prefix] = uri
	if e.nodesOpen {
		p := prefix
		return e.node(nodeDoc{Kind: node.NamespaceDeclaration.String(), Prefix: &p, URI: uri})
	}
	if err := e.open(); err != nil {
		return err
	}
	return e.element(nsDoc{Prefix: prefix, URI: uri})
}

// prefixFor returns the prefix bound to ns, declaring one when needed.
func (e *Encoder) prefixFor(ns string) (string, error) {
	if p, ok := e.prefixes[ns]; ok {
		return p, nil
	}
	base := e.sctx.PreferredPrefix(ns)
	p := base
	for i := 1; ; i++ {
		if _, taken := e.declared[p]; !taken {
			break
		}
		p = base + strconv.Itoa(i)
	}
	if err := e.sm.Namespace(); err != nil {
		return "", err
	}
	return p, e.declare(p, ns)
}

func (e *Encoder) typeName(t *schema.Type) (string, error) {
	var err error
	var visit func(t *schema.Type)
	visit = func(t *schema.Type) {
		if _, perr := e.prefixFor(t.Namespace()); perr != nil && err == nil {
			err = perr
		}
		for _, a := range t.TypeArguments() {
			visit(a)
		}
	}
	visit(t)
	if err != nil {
		return "", err
	}
	return schema.FormatTypeName(t, func(ns string) string { return e.prefixes[ns] }), nil
}

func (e *Encoder) memberName(m *schema.Member) (string, error) {
	switch {
	case m.IsDirective():
		if _, err := e.prefixFor(schema.XamlNamespace); err != nil {
			return "", err
		}
	case m.IsAttachable():
		if _, err := e.prefixFor(m.DeclaringType().Namespace()); err != nil {
			return "", err
		}
	}
	return schema.FormatMemberName(m, func(ns string) string { return e.prefixes[ns] }), nil
}

func (e *Encoder) WriteStartObject(t *schema.Type) error {
	name, err := e.typeName(t)
	if err != nil {
		return err
	}
	if err := e.transition(node.StartObject); err != nil {
		return err
	}
	return e.node(nodeDoc{Kind: node.StartObject.String(), Type: name})
}

func (e *Encoder) WriteGetObject() error {
	if err := e.transition(node.GetObject); err != nil {
		return err
	}
	return e.node(nodeDoc{Kind: node.GetObject.String()})
}

func (e *Encoder) WriteEndObject() error {
	if err := e.transition(node.EndObject); err != nil {
		return err
	}
	return e.node(nodeDoc{Kind: node.EndObject.String()})
}

func (e *Encoder) WriteStartMember(m *schema.Member) error {
	name, err := e.memberName(m)
	if err != nil {
		return err
	}
	if err := e.transition(node.StartMember); err != nil {
		return err
	}
	if m == e.sctx.Language().PositionalParameters {
		e.sm.SetAcceptMultipleValues(true)
	}
	return e.node(nodeDoc{Kind: node.StartMember.String(), Member: name})
}

func (e *Encoder) WriteEndMember() error {
	if err := e.transition(node.EndMember); err != nil {
		return err
	}
	return e.node(nodeDoc{Kind: node.EndMember.String()})
}

func (e *Encoder) WriteValue(v any) error {
	if err := e.transition(node.Value); err != nil {
		return err
	}
	text, err := e.valueText(v)
	if err != nil {
		return err
	}
	return e.node(nodeDoc{Kind: node.Value.String(), Value: text})
}

// valueText renders values that are not strings yet through their type's
// converter.
func (e *Encoder) valueText(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	}
	t := e.sctx.TypeOf(v)
	if conv := t.Converter(); conv != nil {
		return conv.ToString(v, e)
	}
	return nil, goxaml.Fail(goxaml.CodeTypeMismatch, "/", "value", fmt.Sprint(v), "actual", fmt.Sprintf("%T", v), "expected", "string")
}

// Close finishes the document. The stream must be empty or complete.
func (e *Encoder) Close() error {
	if st := e.sm.State(); st != engine.End && st != engine.Initial {
		return goxaml.Fail(goxaml.CodeInvalidTransition, "/", "event", "Close", "state", st.String())
	}
	if err := e.openNodes(); err != nil {
		return err
	}
	return e.write("\n]}\n")
}

// LookupNamespace and LookupPrefix let converters render qualified names.
func (e *Encoder) LookupNamespace(prefix string) (string, bool) {
	ns, ok := e.declared[prefix]
	return ns, ok
}

func (e *Encoder) LookupPrefix(namespace string) (string, bool) {
	p, ok := e.prefixes[namespace]
	return p, ok
}
