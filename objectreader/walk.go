package objectreader

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

var errStopped = errors.New("objectreader: consumer stopped")

var reflectTypeType = reflect.TypeFor[reflect.Type]()

// walker performs one traversal. The collecting traversal records
// namespaces and references; the emitting one hands nodes to yield.
type walker struct {
	r       *Reader
	collect bool
	seen    map[string]bool
	yield   func(node.Node, error) bool
	depth   int
}

// emission is one member of an object, rendered by write once members are
// in canonical order.
type emission struct {
	member *schema.Member
	write  func() error
}

type keyed struct {
	value reflect.Value
	typ   *schema.Type
}

func (w *walker) run() error {
	if !w.collect {
		for _, ns := range w.r.namespaces {
			if err := w.emit(node.NamespaceNode(ns.Prefix, ns.Namespace)); err != nil {
				return err
			}
		}
	}
	return w.object(goxaml.RootPath(), w.r.root, nil)
}

func (w *walker) emit(n node.Node) error {
	if w.collect {
		switch n.Kind {
		case node.StartObject:
			w.noteType(n.Type)
		case node.StartMember:
			if n.Member.IsDirective() || n.Member.IsAttachable() {
				w.seen[n.Member.Namespace()] = true
			}
		}
		return nil
	}
	if !w.yield(n, nil) {
		return errStopped
	}
	return nil
}

func (w *walker) noteType(t *schema.Type) {
	w.seen[t.Namespace()] = true
	for _, a := range t.TypeArguments() {
		w.noteType(a)
	}
}

func (w *walker) lang() *schema.Language { return w.r.sctx.Language() }

// object emits v as a complete StartObject..EndObject subtree.
func (w *walker) object(p goxaml.PathRef, v reflect.Value, key *keyed) error {
	w.depth++
	defer func() { w.depth-- }()
	if w.depth > w.r.opt.MaxDepth {
		return p.Fail(goxaml.CodeMaxDepth, "max", w.r.opt.MaxDepth)
	}
	v = unwrap(v)
	if !v.IsValid() || isNil(v) {
		return w.wrapped(p, schema.NullExtension{}, key)
	}
	if v.Type().Implements(reflectTypeType) {
		return w.typeExtension(p, w.r.sctx.TypeFor(v.Interface().(reflect.Type)), key)
	}
	if st, ok := v.Interface().(*schema.Type); ok {
		return w.typeExtension(p, st, key)
	}
	var inst reflect.Value
	var name string
	if v.Kind() == reflect.Pointer {
		t := w.r.sctx.TypeFor(v.Type())
		if !t.IsContentValue() {
			if w.collect {
				if w.r.refs.visit(v) {
					return nil
				}
			} else if e := w.r.refs.lookup(v); e != nil && e.count > 1 {
				if e.emitted {
					return w.wrapped(p, schema.Reference{Name: e.name}, key)
				}
				e.emitted = true
				if e.generated {
					name = e.name
				}
			}
		}
		inst = v
		v = v.Elem()
	}
	t := w.r.sctx.TypeFor(v.Type())
	if t.IsArray() {
		return w.arrayExtension(p, v, t, key)
	}
	if !supported(v.Type()) {
		return p.Fail(goxaml.CodeUnknownType, "type", v.Type().String())
	}

	var ems []emission
	if key != nil {
		ems = append(ems, emission{w.lang().Key, func() error { return w.keyValue(p.Field(schema.KeyName), key) }})
	}
	if name != "" {
		ems = append(ems, emission{w.lang().Name, func() error { return w.emit(node.ValueNode(name)) }})
	}
	switch {
	case t.IsContentValue():
		ems = append(ems, emission{w.lang().Initialization, func() error {
			s, err := w.toString(t, v)
			if err != nil {
				return err
			}
			return w.emit(node.ValueNode(s))
		}})
	case t.IsCollection() || t.IsDictionary():
		if v.Len() > 0 {
			ems = append(ems, emission{w.lang().Items, func() error { return w.items(p, v, t) }})
		}
	case v.Kind() == reflect.Struct:
		more, err := w.structMembers(p, v, inst, t)
		if err != nil {
			return err
		}
		ems = append(ems, more...)
	}
	slices.SortStableFunc(ems, func(a, b emission) int { return schema.CompareMembers(a.member, b.member) })

	if err := w.emit(node.StartObjectNode(t)); err != nil {
		return err
	}
	for _, e := range ems {
		if err := w.emit(node.StartMemberNode(e.member)); err != nil {
			return err
		}
		if err := e.write(); err != nil {
			return err
		}
		if err := w.emit(node.EndMemberNode()); err != nil {
			return err
		}
	}
	return w.emit(node.EndObjectNode())
}

// wrapped emits a language value (Null, Reference, Type) in place of v.
func (w *walker) wrapped(p goxaml.PathRef, me any, key *keyed) error {
	return w.object(p, reflect.ValueOf(me), key)
}

func (w *walker) typeExtension(p goxaml.PathRef, t *schema.Type, key *keyed) error {
	if w.collect {
		w.noteType(t)
	}
	return w.wrapped(p, schema.TypeExtension{TypeName: w.r.qualifiedName(t)}, key)
}

func (w *walker) arrayExtension(p goxaml.PathRef, v reflect.Value, t *schema.Type, key *keyed) error {
	ae := &schema.ArrayExtension{Type: t.ItemType(), Items: make([]any, v.Len())}
	for i := range v.Len() {
		ae.Items[i] = v.Index(i).Interface()
	}
	return w.object(p, reflect.ValueOf(ae).Elem(), key)
}

func (w *walker) structMembers(p goxaml.PathRef, v, inst reflect.Value, t *schema.Type) ([]emission, error) {
	var ems []emission
	args := t.ConstructorArguments()
	if len(args) > 0 {
		vals := make([]reflect.Value, len(args))
		positional := t.IsMarkupExtension()
		for i, m := range args {
			f, err := v.FieldByIndexErr(m.FieldIndex())
			if err != nil {
				return nil, p.Field(m.Name()).Fail(goxaml.CodeTypeMismatch, "value", "<nil>", "actual", "nil pointer", "expected", m.FieldType().String())
			}
			vals[i] = f
			if positional && !w.isInlineValue(m, f) {
				positional = false
			}
		}
		if positional {
			ems = append(ems, emission{w.lang().PositionalParameters, func() error {
				for i, m := range args {
					fv := unwrap(vals[i])
					s, err := w.toString(w.r.sctx.TypeFor(fv.Type()), fv)
					if err != nil {
						return goxaml.FailWithCause(goxaml.CodeEvaluationFailed, p.Field(m.Name()).Pointer(), err, "type", t.String())
					}
					if err := w.emit(node.ValueNode(s)); err != nil {
						return err
					}
				}
				return nil
			}})
		} else {
			ap := p.Field(schema.ArgumentsName)
			ems = append(ems, emission{w.lang().Arguments, func() error {
				for i := range args {
					if err := w.object(ap.Index(i), vals[i], nil); err != nil {
						return err
					}
				}
				return nil
			}})
		}
	}
	for _, m := range t.AllMembers() {
		if m.IsEvent() || m.IsConstructorArgument() || m.IsAttachable() || !m.IsReadPublic() {
			continue
		}
		f, err := v.FieldByIndexErr(m.FieldIndex())
		if err != nil {
			continue
		}
		if !supported(m.FieldType()) {
			if w.r.opt.SkipUnsupported {
				continue
			}
			return nil, p.Field(m.Name()).Fail(goxaml.CodeUnknownType, "type", m.FieldType().String())
		}
		if w.omitted(m, f) {
			continue
		}
		mp := p.Field(m.Name())
		if m.IsReadOnly() {
			mt := m.Type()
			if mt == nil || !(mt.IsCollection() || mt.IsDictionary()) {
				continue
			}
			fv := unwrap(f)
			if !fv.IsValid() || isNil(fv) || fv.Len() == 0 {
				continue
			}
			ems = append(ems, emission{m, func() error { return w.getObject(mp, fv, mt) }})
			continue
		}
		ems = append(ems, emission{m, func() error { return w.memberValue(mp, m, f) }})
	}
	if inst.IsValid() {
		for _, m := range schema.AttachedMembers(inst.Interface()) {
			av, _ := schema.Attached(inst.Interface(), m)
			mp := p.Field(m.DeclaringType().Name() + "." + m.Name())
			ems = append(ems, emission{m, func() error { return w.memberValue(mp, m, reflect.ValueOf(av)) }})
		}
	}
	return ems, nil
}

// isInlineValue reports whether f can be written as a single Value node
// under m: a non-nil content value of exactly the member's type.
func (w *walker) isInlineValue(m *schema.Member, f reflect.Value) bool {
	f = unwrap(f)
	if !f.IsValid() || isNil(f) {
		return false
	}
	dt := w.r.sctx.TypeFor(f.Type())
	if !dt.IsContentValue() {
		return false
	}
	return m.Type() == nil || m.Type().Equal(dt)
}

func (w *walker) memberValue(p goxaml.PathRef, m *schema.Member, f reflect.Value) error {
	if w.isInlineValue(m, f) {
		fv := unwrap(f)
		s, err := w.toString(w.r.sctx.TypeFor(fv.Type()), fv)
		if err != nil {
			return err
		}
		return w.emit(node.ValueNode(s))
	}
	return w.object(p, f, nil)
}

func (w *walker) getObject(p goxaml.PathRef, v reflect.Value, t *schema.Type) error {
	if err := w.emit(node.GetObjectNode()); err != nil {
		return err
	}
	if err := w.emit(node.StartMemberNode(w.lang().Items)); err != nil {
		return err
	}
	if err := w.items(p, v, t); err != nil {
		return err
	}
	if err := w.emit(node.EndMemberNode()); err != nil {
		return err
	}
	return w.emit(node.EndObjectNode())
}

func (w *walker) items(p goxaml.PathRef, v reflect.Value, t *schema.Type) error {
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Map {
		for i := range v.Len() {
			if err := w.object(p.Index(i), v.Index(i), nil); err != nil {
				return err
			}
		}
		return nil
	}
	type entry struct {
		text string
		key  reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	for _, k := range v.MapKeys() {
		entries = append(entries, entry{text: w.keyText(k), key: k})
	}
	slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.text, b.text) })
	for _, e := range entries {
		kv := &keyed{value: e.key, typ: t.KeyType()}
		if err := w.object(p.Field(e.text), v.MapIndex(e.key), kv); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) keyText(k reflect.Value) string {
	k = unwrap(k)
	if k.IsValid() && !isNil(k) {
		if kt := w.r.sctx.TypeFor(k.Type()); kt.IsContentValue() {
			if s, err := w.toString(kt, k); err == nil {
				return s
			}
		}
	}
	return fmt.Sprint(k)
}

func (w *walker) keyValue(p goxaml.PathRef, k *keyed) error {
	kv := unwrap(k.value)
	if kv.IsValid() && !isNil(kv) {
		dt := w.r.sctx.TypeFor(kv.Type())
		if dt.IsContentValue() && (k.typ == nil || k.typ.Equal(dt)) {
			s, err := w.toString(dt, kv)
			if err != nil {
				return err
			}
			return w.emit(node.ValueNode(s))
		}
	}
	return w.object(p, k.value, nil)
}

func (w *walker) toString(t *schema.Type, v reflect.Value) (string, error) {
	if w.collect {
		return "", nil
	}
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return t.Converter().ToString(v.Interface(), w.r)
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func supported(rt reflect.Type) bool {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	switch rt.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	}
	return true
}

// omitted reports whether member m, holding f, is left out: an omitempty
// member whose value is empty, or any zero value under OmitZero.
func (w *walker) omitted(m *schema.Member, f reflect.Value) bool {
	if w.r.opt.OmitZero && f.IsZero() {
		return true
	}
	if !m.OmitEmpty() {
		return false
	}
	switch f.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
		return f.Len() == 0
	}
	return f.IsZero()
}
