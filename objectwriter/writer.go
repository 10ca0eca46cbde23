// Package objectwriter builds live Go values from a node stream.
package objectwriter

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/untillpro/goutils/logger"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/internal/engine"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

// Writer is a node.Writer that constructs the object graph the nodes
// describe. A Writer builds one root; Result returns it once the root's
// EndObject has been written.
type Writer struct {
	ctx  context.Context
	sctx *schema.Context
	opt  Settings
	sm   *engine.StateManager

	arena      stateArena
	namespaces map[string]string
	names      map[string]any
	fixups     []*fixup
	pending    map[any]int
	resolving  bool
	ambient    ambientStack
	line       node.LineInfo

	result any
}

var _ node.Writer = (*Writer)(nil)

// New creates a Writer. ctx is the parent of the contexts markup extensions
// are evaluated with.
func New(ctx context.Context, sctx *schema.Context, opts ...Settings) *Writer {
	w := &Writer{
		ctx:        ctx,
		sctx:       sctx,
		sm:         engine.NewStateManager(engine.ObjectSettings()),
		namespaces: map[string]string{},
		names:      map[string]any{},
		pending:    map[any]int{},
	}
	if len(opts) > 0 {
		w.opt = opts[len(opts)-1]
	}
	return w
}

// Build drains src into a new Writer and returns the root.
func Build(ctx context.Context, src node.Source, sctx *schema.Context, opts ...Settings) (any, error) {
	w := New(ctx, sctx, opts...)
	if _, err := node.Copy(ctx, w, src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return w.Result(), nil
}

// Result is the built root, nil until the root has ended.
func (w *Writer) Result() any { return w.result }

// SetLineInfo implements node.LineInfoConsumer.
func (w *Writer) SetLineInfo(li node.LineInfo) { w.line = li }

// Close fails when the root object is still open.
func (w *Writer) Close() error {
	if w.arena.depth > 0 {
		return w.wrap(goxaml.Fail(goxaml.CodeInvalidTransition, w.arena.top().path.Pointer(),
			"event", "Close", "state", w.sm.State().String()))
	}
	return nil
}

func (w *Writer) wrap(err error) error {
	if err == nil {
		return nil
	}
	return goxaml.WithLine(err, w.line.Line, w.line.Position)
}

func (w *Writer) transition(ev node.Kind) error {
	err := w.sm.Apply(ev)
	if err == nil {
		return nil
	}
	var te *engine.TransitionError
	if errors.As(err, &te) {
		p := goxaml.RootPath()
		if st := w.arena.top(); st != nil {
			p = st.memberPath()
		}
		return goxaml.Issues{te.Issue(p.Pointer())}
	}
	return err
}

func (w *Writer) trace(args ...any) {
	if logger.IsVerbose() {
		logger.Verbose(append([]any{"objectwriter:"}, args...)...)
	}
}

func (w *Writer) WriteNamespace(ns node.Namespace) error {
	if err := w.transition(node.NamespaceDeclaration); err != nil {
		return w.wrap(err)
	}
	w.namespaces[ns.Prefix] = ns.Namespace
	return nil
}

func (w *Writer) WriteStartObject(t *schema.Type) error {
	return w.wrap(w.startObject(t))
}

func (w *Writer) startObject(t *schema.Type) error {
	if err := w.transition(node.StartObject); err != nil {
		return err
	}
	if t == nil {
		return goxaml.Fail(goxaml.CodeUnknownType, "/", "type", "<nil>")
	}
	p := goxaml.RootPath()
	if parent := w.arena.top(); parent != nil {
		p = parent.childPath()
	}
	w.trace("StartObject", t, p.Pointer())
	st := w.arena.push(t, p)
	if w.arena.depth == 1 && w.opt.RootObjectInstance != nil {
		rv := reflect.ValueOf(w.opt.RootObjectInstance)
		rt := t.UnderlyingType()
		if rt == nil || rv.Kind() != reflect.Pointer || rv.Type().Elem() != rt {
			return p.Fail(goxaml.CodeTypeMismatch, "value", fmt.Sprintf("%T", w.opt.RootObjectInstance),
				"actual", fmt.Sprintf("%T", w.opt.RootObjectInstance), "expected", "*"+t.String())
		}
		st.value, st.created = rv, true
		return w.afterCreate(st)
	}
	return nil
}

func (w *Writer) WriteGetObject() error {
	return w.wrap(w.getObject())
}

func (w *Writer) getObject() error {
	if err := w.transition(node.GetObject); err != nil {
		return err
	}
	parent := w.arena.top()
	m := parent.member
	p := parent.childPath()
	if m.IsDirective() || m.IsAttachable() {
		return p.Fail(goxaml.CodeTypeMismatch, "value", m.String(), "actual", m.Kind().String(), "expected", "ordinary member")
	}
	if m.IsUnknown() {
		return p.Fail(goxaml.CodeUnknownMember, "member", m.Name(), "type", parent.typ.String())
	}
	if err := w.needCreated(parent, p); err != nil {
		return err
	}
	f := fieldByIndex(parent.value.Elem(), m.FieldIndex())
	for f.Kind() == reflect.Pointer {
		if f.IsNil() {
			f.Set(reflect.New(f.Type().Elem()))
		}
		f = f.Elem()
	}
	if f.Kind() == reflect.Map && f.IsNil() {
		f.Set(reflect.MakeMap(f.Type()))
	}
	w.trace("GetObject", m, p.Pointer())
	st := w.arena.push(m.Type(), p)
	st.value, st.created, st.get = f.Addr(), true, true
	return nil
}

func (w *Writer) WriteStartMember(m *schema.Member) error {
	return w.wrap(w.startMember(m))
}

func (w *Writer) startMember(m *schema.Member) error {
	if err := w.transition(node.StartMember); err != nil {
		return err
	}
	st := w.arena.top()
	l := w.sctx.Language()
	if m == nil {
		return st.path.Fail(goxaml.CodeUnknownMember, "member", "<nil>", "type", st.typ.String())
	}
	if !w.opt.SkipDuplicatePropertyCheck && m != l.PositionalParameters {
		for _, x := range st.written {
			if x.Equal(m) {
				return st.path.Field(m.Name()).Fail(goxaml.CodeDuplicateMember, "member", m.String(), "type", st.typ.String())
			}
		}
	}
	st.written = append(st.written, m)
	st.member = m
	st.values = st.values[:0]
	w.trace("StartMember", m)
	switch {
	case m == l.Arguments || m == l.PositionalParameters:
		st.args = st.args[:0]
		w.sm.SetAcceptMultipleValues(m == l.PositionalParameters)
	case m.IsDirective() && m != l.Items:
	default:
		if !st.created && st.typ.RequiresArguments() {
			return nil
		}
		return w.create(st)
	}
	return nil
}

func (w *Writer) WriteValue(v any) error {
	return w.wrap(w.value(v))
}

func (w *Writer) value(v any) error {
	if err := w.transition(node.Value); err != nil {
		return err
	}
	st := w.arena.top()
	w.trace("Value", v)
	return w.deliver(st, v, nil)
}

// deliver hands v, a Value node or a finished child object, to the open
// member of st.
func (w *Writer) deliver(st *objectState, v any, child *objectState) error {
	l := w.sctx.Language()
	switch m := st.member; {
	case m == l.Items:
		if child != nil {
			return w.addItem(st, v, child.key, child.hasKey, child.path)
		}
		return w.addItem(st, v, nil, false, st.childPath())
	case m == l.Arguments || m == l.PositionalParameters:
		st.args = append(st.args, v)
	case m == l.Key:
		st.key, st.hasKey = v, true
	case m == l.Initialization:
		rt := st.typ.UnderlyingType()
		if rt == nil {
			return st.path.Fail(goxaml.CodeUnknownType, "type", st.typ.String())
		}
		cv, err := w.coerce(st.memberPath(), v, rt, st.typ.Converter())
		if err != nil {
			return err
		}
		pv := reflect.New(rt)
		pv.Elem().Set(cv)
		st.value, st.created = pv, true
	case m == l.Name:
		st.name = fmt.Sprint(v)
		if st.created && st.typ.UnderlyingType() != nil && st.typ.UnderlyingType().Kind() == reflect.Struct && !st.typ.IsMarkupExtension() {
			return w.register(st.path, st.name, st.result())
		}
	case m == l.FactoryMethod:
		st.factory = fmt.Sprint(v)
	case m == l.Uid:
	default:
		st.values = append(st.values, v)
	}
	return nil
}

func (w *Writer) WriteEndMember() error {
	return w.wrap(w.endMember())
}

func (w *Writer) endMember() error {
	if err := w.transition(node.EndMember); err != nil {
		return err
	}
	st := w.arena.top()
	m := st.member
	l := w.sctx.Language()
	w.trace("EndMember", m)
	defer func() { st.member = nil }()
	switch {
	case m == l.Arguments || m == l.PositionalParameters:
		return w.construct(st)
	case m.IsDirective():
		return nil
	}
	if len(st.values) == 0 {
		return nil
	}
	if len(st.values) > 1 {
		return st.memberPath().Fail(goxaml.CodeDuplicateMember, "member", m.String(), "type", st.typ.String())
	}
	v := st.values[0]
	if !st.created {
		st.pending = append(st.pending, pendingValue{member: m, value: v, path: st.memberPath()})
		return nil
	}
	return w.assign(st, m, v, st.memberPath())
}

func (w *Writer) WriteEndObject() error {
	return w.wrap(w.endObject())
}

func (w *Writer) endObject() error {
	if err := w.transition(node.EndObject); err != nil {
		return err
	}
	st := w.arena.top()
	w.trace("EndObject", st.typ)
	if st.get {
		w.arena.pop()
		return nil
	}
	parent := w.arena.parent()
	if st.waiting() {
		d := w.deferredObject(st)
		w.arena.pop()
		if parent == nil {
			return w.finishRoot(d)
		}
		return w.place(parent, st, d)
	}
	if err := w.create(st); err != nil {
		return err
	}
	w.complete(st)

	var out any
	switch {
	case st.typ.IsMarkupExtension() && parent == nil && w.opt.SkipProvideValueOnRoot:
		out = st.result()
	case st.typ.IsMarkupExtension():
		me, _ := st.value.Interface().(schema.MarkupExtension)
		var object any
		var member *schema.Member
		if parent != nil {
			if parent.created {
				object = parent.result()
			}
			member = parent.member
		}
		v, err := w.evaluate(st.path, st.typ, me, object, member)
		if err != nil {
			return err
		}
		if tok, ok := v.(*schema.FixupToken); ok {
			if parent == nil {
				return st.path.Fail(goxaml.CodeUnresolvedReference, "name", tok.Names[0])
			}
			d := w.meDeferred(st, me, tok)
			w.arena.pop()
			return w.place(parent, st, d)
		}
		out = v
		if err := w.register(st.path, st.name, out); err != nil {
			return err
		}
	default:
		out = st.result()
		if st.typ.UnderlyingType().Kind() != reflect.Struct {
			if err := w.register(st.path, st.name, out); err != nil {
				return err
			}
		}
	}

	w.arena.pop()
	if parent == nil {
		if err := w.resolveFixups(); err != nil {
			return err
		}
		w.result = out
		return nil
	}
	return w.deliver(parent, out, st)
}

// complete runs the end-of-object callbacks and leaves the ambient scope.
func (w *Writer) complete(st *objectState) {
	if w.opt.AfterProperties != nil {
		w.opt.AfterProperties(st.result())
	}
	if st.initializing {
		st.value.Interface().(Initializer).EndInit()
		if w.opt.AfterEndInit != nil {
			w.opt.AfterEndInit(st.result())
		}
	}
	if st.frame != nil {
		w.ambient.pop(st.frame)
	}
}

// create instantiates st's value if nothing has yet: through the
// registered parameterless factory, or as a zero value. Objects waiting
// for a name stay uncreated.
func (w *Writer) create(st *objectState) error {
	if st.created || st.waiting() {
		return nil
	}
	t := st.typ
	rt := t.UnderlyingType()
	if rt == nil {
		return st.path.Fail(goxaml.CodeUnknownType, "type", t.String())
	}
	if st.factory != "" || t.RequiresArguments() {
		return w.construct(st)
	}
	if fn, ok := t.Factory("", 0); ok {
		return w.callFactory(st, fn, nil)
	}
	if !t.IsConstructible() && !t.IsMarkupExtension() {
		return st.path.Fail(goxaml.CodeFactoryFailed, "type", t.String())
	}
	pv := reflect.New(rt)
	switch rt.Kind() {
	case reflect.Map:
		pv.Elem().Set(reflect.MakeMap(rt))
	case reflect.Slice:
		pv.Elem().Set(reflect.MakeSlice(rt, 0, 0))
	}
	st.value, st.created = pv, true
	return w.afterCreate(st)
}

// construct builds st from its constructor arguments: a named factory
// method, a registered constructor of matching arity, or a zero value whose
// argument members are assigned in order. A factory whose arguments wait
// for names runs at the root end; without one, waiting arguments become
// member fixups of the zero value.
func (w *Writer) construct(st *objectState) error {
	if st.created {
		return st.memberPath().Fail(goxaml.CodeDuplicateMember, "member", schema.ArgumentsName, "type", st.typ.String())
	}
	t := st.typ
	if t.UnderlyingType() == nil {
		return st.path.Fail(goxaml.CodeUnknownType, "type", t.String())
	}
	args := append([]any(nil), st.args...)
	if fn, ok := t.Factory(st.factory, len(args)); ok {
		if slices.ContainsFunc(args, isDeferred) {
			st.waitCtor, st.waitArgs = fn, args
			return nil
		}
		return w.callFactory(st, fn, args)
	}
	if st.factory != "" {
		return st.path.Fail(goxaml.CodeFactoryFailed, "type", t.String()+"."+st.factory)
	}
	ctor := t.ConstructorArguments()
	if len(ctor) != len(args) {
		return st.path.Fail(goxaml.CodeFactoryFailed, "type", fmt.Sprintf("%s(%d arguments)", t, len(args)))
	}
	pv := reflect.New(t.UnderlyingType())
	st.value, st.created = pv, true
	for i, m := range ctor {
		if d, ok := args[i].(*deferred); ok {
			w.memberFixup(pv, t, m, d)
			continue
		}
		if err := w.setArgument(pv, m, args[i], st.path.Field(m.Name())); err != nil {
			return err
		}
	}
	return w.afterCreate(st)
}

func isDeferred(v any) bool {
	_, ok := v.(*deferred)
	return ok
}

// setArgument stores constructor argument v in field m of obj.
func (w *Writer) setArgument(obj reflect.Value, m *schema.Member, v any, p goxaml.PathRef) error {
	cv, err := w.coerce(p, v, m.FieldType(), m.Converter())
	if err != nil {
		return err
	}
	fieldByIndex(obj.Elem(), m.FieldIndex()).Set(cv)
	if w.copiedPending(v, cv) {
		w.recopy(v, obj, p, func() error { return w.setArgument(obj, m, v, p) })
	}
	return nil
}

func (w *Writer) callFactory(st *objectState, fn reflect.Value, args []any) error {
	ft := fn.Type()
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := ft.In(min(i, ft.NumIn()-1))
		if ft.IsVariadic() && i >= ft.NumIn()-1 {
			pt = pt.Elem()
		}
		p := st.path.Field(schema.ArgumentsName).Index(i)
		cv, err := w.coerce(p, a, pt, nil)
		if err != nil {
			return err
		}
		if w.copiedPending(a, cv) {
			return p.Fail(goxaml.CodeUnresolvedReference, "name", w.pendingName(a))
		}
		in[i] = cv
	}
	out := fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return out[1].Interface().(error)
	}
	res := out[0]
	if res.Kind() != reflect.Pointer {
		pv := reflect.New(res.Type())
		pv.Elem().Set(res)
		res = pv
	} else if res.IsNil() {
		return st.path.Fail(goxaml.CodeFactoryFailed, "type", st.typ.String())
	}
	st.value, st.created = res, true
	return w.afterCreate(st)
}

// afterCreate runs once per object right after instantiation.
func (w *Writer) afterCreate(st *objectState) error {
	if init, ok := st.value.Interface().(Initializer); ok {
		init.BeginInit()
		st.initializing = true
	}
	if st.typ.IsAmbient() {
		st.frame = w.ambient.push(st.typ, st.result())
	}
	rt := st.typ.UnderlyingType()
	if st.name != "" && rt.Kind() == reflect.Struct && !st.typ.IsMarkupExtension() {
		if err := w.register(st.path, st.name, st.result()); err != nil {
			return err
		}
	}
	pending := st.pending
	st.pending = nil
	for _, pv := range pending {
		if err := w.assign(st, pv.member, pv.value, pv.path); err != nil {
			return err
		}
	}
	return nil
}

// assign sets member m of the created object st. A deferred value becomes
// a fixup on st's instance.
func (w *Writer) assign(st *objectState, m *schema.Member, v any, p goxaml.PathRef) error {
	if m.IsUnknown() {
		return p.Fail(goxaml.CodeUnknownMember, "member", m.Name(), "type", st.typ.String())
	}
	if d, ok := v.(*deferred); ok {
		w.memberFixup(st.value, st.typ, m, d)
		return nil
	}
	if !st.propsStarted {
		st.propsStarted = true
		if w.opt.BeforeProperties != nil {
			w.opt.BeforeProperties(st.result())
		}
	}
	if w.opt.SetValue != nil {
		handled, err := w.opt.SetValue(st.result(), m, v)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	cv, err := w.coerce(p, v, m.FieldType(), m.Converter())
	if err != nil {
		return err
	}
	if err := w.store(st.value, st.typ, m, v, cv, p); err != nil {
		return err
	}
	if m == st.typ.NameProperty() {
		if err := w.register(p, cv.String(), st.result()); err != nil {
			return err
		}
	}
	if m.IsAmbient() && st.frame != nil {
		w.ambient.add(st.frame, m, cv.Interface())
	}
	if w.copiedPending(v, cv) {
		obj, t := st.value, st.typ
		w.recopy(v, obj, p, func() error {
			cv, err := w.coerce(p, v, m.FieldType(), m.Converter())
			if err != nil {
				return err
			}
			return w.store(obj, t, m, v, cv, p)
		})
	}
	return nil
}

func (w *Writer) store(obj reflect.Value, t *schema.Type, m *schema.Member, v any, cv reflect.Value, p goxaml.PathRef) error {
	if m.IsAttachable() {
		if !schema.SetAttached(obj.Interface(), m, cv.Interface()) {
			return p.Fail(goxaml.CodeTypeMismatch, "value", fmt.Sprint(v), "actual", t.String(), "expected", "pointer instance")
		}
		return nil
	}
	if obj.Kind() != reflect.Pointer || obj.Elem().Kind() != reflect.Struct {
		return p.Fail(goxaml.CodeUnknownMember, "member", m.Name(), "type", t.String())
	}
	fieldByIndex(obj.Elem(), m.FieldIndex()).Set(cv)
	return nil
}

// addItem appends v to the collection st, or stores it under key when st
// is a dictionary.
func (w *Writer) addItem(st *objectState, v any, key any, hasKey bool, p goxaml.PathRef) error {
	if isDeferred(key) {
		return w.deferItem(st, v, key, hasKey, p)
	}
	if err := w.needCreated(st, p); err != nil {
		return err
	}
	ptr, t := st.value, st.typ
	c := st.value
	if c.Kind() == reflect.Pointer {
		c = c.Elem()
	}
	switch c.Kind() {
	case reflect.Slice:
		iv, err := w.coerce(p, v, c.Type().Elem(), nil)
		if err != nil {
			return err
		}
		c.Set(reflect.Append(c, iv))
		if w.copiedPending(v, iv) {
			i := c.Len() - 1
			w.recopy(v, ptr, p, func() error { return w.setSlot(ptr, i, v, p) })
		}
	case reflect.Map:
		if !hasKey {
			return p.Fail(goxaml.CodeTypeMismatch, "value", fmt.Sprint(v), "actual", "item without key", "expected", st.typ.String())
		}
		if c.IsNil() {
			c.Set(reflect.MakeMap(c.Type()))
		}
		kv, err := w.coerce(p.Field(schema.KeyName), key, c.Type().Key(), nil)
		if err != nil {
			return err
		}
		iv, err := w.coerce(p, v, c.Type().Elem(), nil)
		if err != nil {
			return err
		}
		c.SetMapIndex(kv, iv)
		if w.copiedPending(v, iv) {
			w.recopy(v, ptr, p, func() error {
				return w.addItem(&objectState{typ: t, path: p, value: ptr, created: true}, v, key, true, p)
			})
		}
	default:
		return p.Fail(goxaml.CodeTypeMismatch, "value", fmt.Sprint(v), "actual", fmt.Sprintf("%T", v), "expected", st.typ.String()+" items")
	}
	return nil
}
