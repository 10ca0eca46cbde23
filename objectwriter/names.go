package objectwriter

import (
	"context"
	"reflect"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/schema"
)

// deferred is a value that needs names registered later in the document.
// provide computes it once they are; target and member are what a markup
// extension sees as its target.
type deferred struct {
	names   []string
	path    goxaml.PathRef
	provide func(target any, m *schema.Member) (any, error)
}

// fixup is work postponed until the root object ends. It runs once every
// name it needs resolves and the fixups recorded against waits are done.
// Targets are captured by instance, not by construction record, since
// records are reused once their object ends.
type fixup struct {
	names []string
	path  goxaml.PathRef
	// owner is the instance the fixup writes to.
	owner any
	waits any
	run   func() error
}

func (w *Writer) register(p goxaml.PathRef, name string, v any) error {
	if name == "" {
		return nil
	}
	if _, dup := w.names[name]; dup {
		return p.Fail(goxaml.CodeDuplicateName, "name", name)
	}
	w.names[name] = v
	if w.opt.RegisterNamesOnExternalNameScope && w.opt.ExternalNameScope != nil {
		if err := w.opt.ExternalNameScope.Register(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Resolve implements schema.NameResolver: the document's names first, then
// the external scope.
func (w *Writer) Resolve(name string) (any, bool) {
	if v, ok := w.names[name]; ok {
		return v, true
	}
	if w.opt.ExternalNameScope != nil {
		return w.opt.ExternalNameScope.Resolve(name)
	}
	return nil, false
}

func (w *Writer) IsFixupTokenAvailable() bool { return !w.resolving }

func (w *Writer) FixupToken(names []string) *schema.FixupToken {
	return &schema.FixupToken{Names: append([]string(nil), names...)}
}

// ResolveType implements schema.TypeResolver over the namespaces declared
// in the stream so far.
func (w *Writer) ResolveType(qname string) (*schema.Type, error) {
	t, err := w.sctx.ParseTypeName(qname, w.LookupNamespace)
	if err != nil {
		return nil, goxaml.FailWithCause(goxaml.CodeUnknownType, "/", err, "type", qname)
	}
	return t, nil
}

// LookupNamespace implements schema.NamespaceResolver.
func (w *Writer) LookupNamespace(prefix string) (string, bool) {
	ns, ok := w.namespaces[prefix]
	return ns, ok
}

func (w *Writer) LookupPrefix(namespace string) (string, bool) {
	for p, ns := range w.namespaces {
		if ns == namespace {
			return p, true
		}
	}
	return "", false
}

type target struct {
	object any
	member *schema.Member
}

func (t target) TargetObject() any            { return t.object }
func (t target) TargetMember() *schema.Member { return t.member }

// serviceContext is what markup extensions see while they are evaluated
// for the given object and member.
func (w *Writer) serviceContext(object any, member *schema.Member) context.Context {
	ctx := goxaml.WithService[schema.NameResolver](w.ctx, w)
	ctx = goxaml.WithService[schema.AmbientProvider](ctx, &w.ambient)
	ctx = goxaml.WithService[schema.TargetProvider](ctx, target{object: object, member: member})
	ctx = goxaml.WithService[schema.TypeResolver](ctx, w)
	return goxaml.WithService(ctx, w.sctx)
}

func (w *Writer) evaluate(p goxaml.PathRef, t *schema.Type, me schema.MarkupExtension, object any, member *schema.Member) (any, error) {
	v, err := me.ProvideValue(w.serviceContext(object, member))
	if err != nil {
		return nil, goxaml.FailWithCause(goxaml.CodeEvaluationFailed, p.Pointer(), err, "type", t.String())
	}
	return v, nil
}

func (w *Writer) addFixup(fx *fixup) {
	if fx.owner != nil {
		w.pending[fx.owner]++
	}
	w.fixups = append(w.fixups, fx)
}

// isPending reports whether fixups still write into v.
func (w *Writer) isPending(v any) bool {
	if v == nil || reflect.ValueOf(v).Kind() != reflect.Pointer {
		return false
	}
	return w.pending[v] > 0
}

func (w *Writer) ready(fx *fixup) bool {
	for _, name := range fx.names {
		if _, ok := w.Resolve(name); !ok {
			return false
		}
	}
	return fx.waits == nil || w.pending[fx.waits] == 0
}

// resolveFixups runs once the root object is complete. Fixups run in
// passes until none is left; a pass without progress means a name is
// never registered.
func (w *Writer) resolveFixups() error {
	w.resolving = true
	for len(w.fixups) > 0 {
		queue := w.fixups
		w.fixups = nil
		var rest []*fixup
		for _, fx := range queue {
			if !w.ready(fx) {
				rest = append(rest, fx)
				continue
			}
			if err := fx.run(); err != nil {
				return err
			}
			if fx.owner != nil {
				w.pending[fx.owner]--
			}
		}
		if len(rest) == len(queue) {
			return w.stalled(rest)
		}
		w.fixups = append(rest, w.fixups...)
	}
	return nil
}

func (w *Writer) stalled(rest []*fixup) error {
	for _, fx := range rest {
		for _, name := range fx.names {
			if _, ok := w.Resolve(name); !ok {
				return fx.path.Fail(goxaml.CodeUnresolvedReference, "name", name)
			}
		}
	}
	return rest[0].path.Fail(goxaml.CodeUnresolvedReference, "name", w.pendingName(rest[0].waits))
}

// pendingName is the first unresolved name a fixup into owner waits for.
func (w *Writer) pendingName(owner any) string {
	for _, fx := range w.fixups {
		if fx.owner != owner {
			continue
		}
		for _, name := range fx.names {
			if _, ok := w.Resolve(name); !ok {
				return name
			}
		}
	}
	return ""
}

// meDeferred defers the evaluation of a markup extension that answered
// with a fixup token.
func (w *Writer) meDeferred(st *objectState, me schema.MarkupExtension, tok *schema.FixupToken) *deferred {
	t, p := st.typ, st.path
	d := &deferred{names: tok.Names, path: p}
	d.provide = func(object any, m *schema.Member) (any, error) {
		v, err := w.evaluate(p, t, me, object, m)
		if err != nil {
			return nil, err
		}
		if tok, ok := v.(*schema.FixupToken); ok {
			return nil, p.Fail(goxaml.CodeUnresolvedReference, "name", tok.Names[0])
		}
		return v, nil
	}
	return d
}

// place hands the deferred value d, standing for child, to the open member
// of parent.
func (w *Writer) place(parent, child *objectState, d *deferred) error {
	l := w.sctx.Language()
	switch m := parent.member; {
	case m == l.Items:
		return w.deferItem(parent, d, child.key, child.hasKey, d.path)
	case m == l.Arguments || m == l.PositionalParameters:
		parent.args = append(parent.args, d)
	case m == l.Key:
		parent.key, parent.hasKey = d, true
	case m == l.Initialization:
		parent.waitInit = d
	case m != nil && !m.IsDirective():
		if parent.created {
			return w.assign(parent, m, d, d.path)
		}
		parent.values = append(parent.values, d)
	default:
		return d.path.Fail(goxaml.CodeUnresolvedReference, "name", d.names[0])
	}
	return nil
}

// memberFixup sets member m of obj to d's value once d can be computed.
func (w *Writer) memberFixup(obj reflect.Value, t *schema.Type, m *schema.Member, d *deferred) {
	w.addFixup(&fixup{names: d.names, path: d.path, owner: obj.Interface(), run: func() error {
		v, err := w.provideFor(d, obj, m)
		if err != nil {
			return err
		}
		st := &objectState{typ: t, path: d.path, value: obj, created: true, propsStarted: true}
		return w.assign(st, m, v, d.path)
	}})
}

func (w *Writer) provideFor(d *deferred, obj reflect.Value, m *schema.Member) (any, error) {
	var object any
	if obj.IsValid() {
		object = obj.Interface()
	}
	return d.provide(object, m)
}

// deferItem reserves a slot in collection st for an item whose value or key
// is deferred, and fills it at the root end.
func (w *Writer) deferItem(st *objectState, v any, key any, hasKey bool, p goxaml.PathRef) error {
	if err := w.needCreated(st, p); err != nil {
		return err
	}
	c := st.value
	items := w.sctx.Language().Items
	fx := &fixup{path: p, owner: c.Interface()}
	vd, _ := v.(*deferred)
	kd, _ := key.(*deferred)
	if vd != nil {
		fx.names = append(fx.names, vd.names...)
	}
	if kd != nil {
		fx.names = append(fx.names, kd.names...)
	}
	provide := func() (any, any, error) {
		iv, k := v, key
		var err error
		if vd != nil {
			if iv, err = w.provideFor(vd, c, items); err != nil {
				return nil, nil, err
			}
		}
		if kd != nil {
			if k, err = w.provideFor(kd, c, w.sctx.Language().Key); err != nil {
				return nil, nil, err
			}
		}
		return iv, k, nil
	}
	if s := c.Elem(); s.Kind() == reflect.Slice {
		s.Set(reflect.Append(s, reflect.Zero(s.Type().Elem())))
		slot := s.Len() - 1
		fx.run = func() error {
			iv, _, err := provide()
			if err != nil {
				return err
			}
			return w.setSlot(c, slot, iv, p)
		}
	} else {
		t := st.typ
		fx.run = func() error {
			iv, k, err := provide()
			if err != nil {
				return err
			}
			tmp := &objectState{typ: t, path: p, value: c, created: true}
			return w.addItem(tmp, iv, k, hasKey, p)
		}
	}
	w.addFixup(fx)
	return nil
}

// setSlot stores v at index i of the slice c points to.
func (w *Writer) setSlot(c reflect.Value, i int, v any, p goxaml.PathRef) error {
	s := c.Elem()
	iv, err := w.coerce(p, v, s.Type().Elem(), nil)
	if err != nil {
		return err
	}
	s.Index(i).Set(iv)
	if w.copiedPending(v, iv) {
		w.recopy(v, c, p, func() error { return w.setSlot(c, i, v, p) })
	}
	return nil
}

// copiedPending reports whether storing v as cv copied a struct that
// fixups have yet to complete.
func (w *Writer) copiedPending(v any, cv reflect.Value) bool {
	return cv.Kind() != reflect.Pointer && w.isPending(v)
}

// recopy stores src again, through set, once the fixups into src are done.
// owner is the instance set writes to.
func (w *Writer) recopy(src any, owner reflect.Value, p goxaml.PathRef, set func() error) {
	w.addFixup(&fixup{path: p, owner: owner.Interface(), waits: src, run: set})
}

// needCreated creates st, failing when its construction waits for a name.
func (w *Writer) needCreated(st *objectState, p goxaml.PathRef) error {
	if err := w.create(st); err != nil {
		return err
	}
	if !st.created {
		return p.Fail(goxaml.CodeUnresolvedReference, "name", st.waitNames()[0])
	}
	return nil
}

// deferredObject captures st, whose construction waits for names, so it
// can be built at the root end. st's record is reused afterwards.
func (w *Writer) deferredObject(st *objectState) *deferred {
	t, p, name, factory := st.typ, st.path, st.name, st.factory
	pending := append([]pendingValue(nil), st.pending...)
	fn, args, init := st.waitCtor, st.waitArgs, st.waitInit
	d := &deferred{names: st.waitNames(), path: p}
	d.provide = func(any, *schema.Member) (any, error) {
		ns := &objectState{typ: t, path: p, name: name, factory: factory, pending: pending}
		if init != nil {
			v, err := init.provide(nil, w.sctx.Language().Initialization)
			if err != nil {
				return nil, err
			}
			rt := t.UnderlyingType()
			cv, err := w.coerce(p.Field(schema.InitializationName), v, rt, t.Converter())
			if err != nil {
				return nil, err
			}
			pv := reflect.New(rt)
			pv.Elem().Set(cv)
			ns.value, ns.created = pv, true
			if err := w.afterCreate(ns); err != nil {
				return nil, err
			}
		} else {
			resolved := make([]any, len(args))
			for i, a := range args {
				if ad, ok := a.(*deferred); ok {
					v, err := ad.provide(nil, w.sctx.Language().Arguments)
					if err != nil {
						return nil, err
					}
					a = v
				}
				resolved[i] = a
			}
			if err := w.callFactory(ns, fn, resolved); err != nil {
				return nil, err
			}
		}
		w.complete(ns)
		out := ns.result()
		if t.UnderlyingType().Kind() != reflect.Struct {
			if err := w.register(p, name, out); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return d
}

// finishRoot defers the root itself; Result is set once it is built.
func (w *Writer) finishRoot(d *deferred) error {
	w.addFixup(&fixup{names: d.names, path: d.path, run: func() error {
		v, err := d.provide(nil, nil)
		if err != nil {
			return err
		}
		w.result = v
		return nil
	}})
	return w.resolveFixups()
}
