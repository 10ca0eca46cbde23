package schema

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

type typeFlags uint16

const (
	typeCollection typeFlags = 1 << iota
	typeDictionary
	typeArray
	typeMarkupExtension
	typeConstructible
	typeNullable
	typeUnknown
)

// Type describes one value type. Descriptors are created by a Context on
// first query and cached for the context's lifetime; everything derived from
// the Go type (members, base, item and key types) is computed once on first
// use.
type Type struct {
	ctx       *Context
	rt        reflect.Type
	name      string
	namespace string
	flags     typeFlags
	conv      ValueConverter

	// unknown placeholders carry their arguments from the start
	args []*Type

	derive     sync.Once
	members    []*Member
	byName     map[string]*Member
	content    *Member
	nameProp   *Member
	ctorArgs   []*Member
	base       *Type
	item       *Type
	key        *Type
	ambient    bool
	meReturn   *Type
	hasAmbient bool
}

// Context returns the schema context that created t.
func (t *Type) Context() *Context { return t.ctx }

// UnderlyingType is the Go type; nil for unknown placeholders.
func (t *Type) UnderlyingType() reflect.Type { return t.rt }

func (t *Type) Name() string      { return t.name }
func (t *Type) Namespace() string { return t.namespace }

// TypeArguments lists the element (and key) types of composite types.
func (t *Type) TypeArguments() []*Type {
	if t.flags&typeUnknown != 0 {
		return t.args
	}
	t.derive.Do(t.compute)
	return t.args
}

func (t *Type) IsUnknown() bool         { return t.flags&typeUnknown != 0 }
func (t *Type) IsCollection() bool      { return t.flags&typeCollection != 0 }
func (t *Type) IsDictionary() bool      { return t.flags&typeDictionary != 0 }
func (t *Type) IsArray() bool           { return t.flags&typeArray != 0 }
func (t *Type) IsMarkupExtension() bool { return t.flags&typeMarkupExtension != 0 }
func (t *Type) IsConstructible() bool   { return t.flags&typeConstructible != 0 }
func (t *Type) IsNullable() bool        { return t.flags&typeNullable != 0 }

// IsContentValue reports whether a value of t is fully represented by one
// string through its converter.
func (t *Type) IsContentValue() bool { return t.conv != nil }

// IsObject reports whether t is the universal Object type (Go's any).
func (t *Type) IsObject() bool {
	return t.rt != nil && t.rt.Kind() == reflect.Interface && t.rt.NumMethod() == 0
}

// Converter is nil unless t is a content value.
func (t *Type) Converter() ValueConverter { return t.conv }

// IsAmbient reports whether instances of t are pushed on the ambient stack
// while they are built.
func (t *Type) IsAmbient() bool {
	t.derive.Do(t.compute)
	return t.ambient
}

// BaseType is the first embedded struct, or nil.
func (t *Type) BaseType() *Type {
	t.derive.Do(t.compute)
	return t.base
}

// ItemType is the element type of collections, arrays and dictionaries.
func (t *Type) ItemType() *Type {
	t.derive.Do(t.compute)
	return t.item
}

// KeyType is the key type of dictionaries.
func (t *Type) KeyType() *Type {
	t.derive.Do(t.compute)
	return t.key
}

// AllMembers lists ordinary members followed by attachable members owned by
// t, in CompareMembers order.
func (t *Type) AllMembers() []*Member {
	t.derive.Do(t.compute)
	out := append([]*Member(nil), t.members...)
	if t.rt != nil {
		out = append(out, t.ctx.attachablesOf(t.rt)...)
	}
	SortMembers(out)
	return out
}

// Member returns the ordinary member called name.
func (t *Type) Member(name string) (*Member, bool) {
	t.derive.Do(t.compute)
	m, ok := t.byName[name]
	return m, ok
}

// AttachableMember returns the attachable member name owned by t.
func (t *Type) AttachableMember(name string) (*Member, bool) {
	if t.rt == nil {
		return nil, false
	}
	for _, m := range t.ctx.attachablesOf(t.rt) {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

// ResolveMember returns the ordinary or attachable member called name, or an
// unknown placeholder so unfamiliar documents can still be carried.
func (t *Type) ResolveMember(name string) *Member {
	if m, ok := t.Member(name); ok {
		return m
	}
	if m, ok := t.AttachableMember(name); ok {
		return m
	}
	return unknownMember(t, name)
}

// ContentProperty is the member filled by un-named child content.
func (t *Type) ContentProperty() *Member {
	t.derive.Do(t.compute)
	return t.content
}

// NameProperty is the member aliasing the Name directive, or nil.
func (t *Type) NameProperty() *Member {
	t.derive.Do(t.compute)
	return t.nameProp
}

// ConstructorArguments lists the constructor arguments in canonical order.
func (t *Type) ConstructorArguments() []*Member {
	t.derive.Do(t.compute)
	return t.ctorArgs
}

// MarkupExtensionReturnType is the declared result of a markup extension, or
// Object when undeclared. Nil for other types.
func (t *Type) MarkupExtensionReturnType() *Type {
	if !t.IsMarkupExtension() {
		return nil
	}
	t.derive.Do(t.compute)
	return t.meReturn
}

// Factory returns the factory registered under name whose arity is argc.
// The empty name is the type's constructor.
func (t *Type) Factory(name string, argc int) (reflect.Value, bool) {
	if t.rt == nil {
		return reflect.Value{}, false
	}
	for _, fn := range t.ctx.factoriesOf(t.rt, name) {
		ft := fn.Type()
		if ft.NumIn() == argc || (ft.IsVariadic() && argc >= ft.NumIn()-1) {
			return fn, true
		}
	}
	return reflect.Value{}, false
}

// RequiresArguments reports whether t can only be built from constructor
// arguments: its constructor is registered and takes parameters.
func (t *Type) RequiresArguments() bool {
	if t.rt == nil {
		return false
	}
	fns := t.ctx.factoriesOf(t.rt, "")
	if len(fns) == 0 {
		return false
	}
	for _, fn := range fns {
		if fn.Type().NumIn() == 0 {
			return false
		}
	}
	return true
}

// Equal reports whether t and o describe the same type: underlying type,
// name, namespace and type arguments all pairwise equal.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	if t.rt != o.rt || t.name != o.name || t.namespace != o.namespace {
		return false
	}
	return slices.EqualFunc(t.TypeArguments(), o.TypeArguments(), (*Type).Equal)
}

// String renders Name(Arg, Arg) for diagnostics.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	args := t.TypeArguments()
	if len(args) == 0 {
		return t.name
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return t.name + "(" + strings.Join(parts, ", ") + ")"
}

func (t *Type) compute() {
	t.byName = map[string]*Member{}
	rt := t.rt
	if rt == nil {
		return
	}
	switch rt.Kind() {
	case reflect.Slice, reflect.Array:
		t.item = t.ctx.TypeFor(rt.Elem())
		t.args = []*Type{t.item}
	case reflect.Map:
		t.key = t.ctx.TypeFor(rt.Key())
		t.item = t.ctx.TypeFor(rt.Elem())
		t.args = []*Type{t.key, t.item}
	case reflect.Struct:
		t.computeMembers(rt)
	}
	if t.IsContentValue() {
		// content values never expand into members or items
		t.item, t.key, t.args = nil, nil, nil
	}
	if t.IsMarkupExtension() {
		t.meReturn = t.ctx.objectType()
		if rt, ok := returnTypeOf(rt); ok {
			t.meReturn = t.ctx.TypeFor(rt)
		}
	}
	t.ambient = t.hasAmbient || reflect.PointerTo(rt).Implements(ambientMarkerType)
}

func (t *Type) computeMembers(rt reflect.Type) {
	for _, sf := range reflect.VisibleFields(rt) {
		if sf.Anonymous {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if t.base == nil && ft.Kind() == reflect.Struct && len(sf.Index) == 1 {
				t.base = t.ctx.TypeFor(ft)
			}
			if ft.Kind() == reflect.Struct {
				// promoted fields are visited on their own
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		tag := parseFieldTag(sf)
		if tag.skip {
			continue
		}
		if _, dup := t.byName[tag.name]; dup {
			continue
		}
		m := &Member{
			kind:      MemberOrdinary,
			name:      tag.name,
			declaring: t,
			fieldType: sf.Type,
			index:     append([]int(nil), sf.Index...),
			flags:     memberReadPublic,
			argPos:    tag.argPos,
		}
		if !tag.readOnly {
			m.flags |= memberWritePublic
		} else {
			m.flags |= memberReadOnly
		}
		if tag.ambient {
			m.flags |= memberAmbient
			t.hasAmbient = true
		}
		if tag.content && t.content == nil {
			m.flags |= memberContent
			t.content = m
		}
		if tag.omitEmpty {
			m.flags |= memberOmitEmpty
		}
		if tag.nameProp && t.nameProp == nil && sf.Type.Kind() == reflect.String {
			m.flags |= memberNameProperty
			t.nameProp = m
		}
		switch sf.Type.Kind() {
		case reflect.Func:
			m.flags |= memberEvent
		default:
			m.valueType = t.ctx.TypeFor(sf.Type)
		}
		t.members = append(t.members, m)
		t.byName[m.name] = m
		if m.argPos >= 0 {
			t.ctorArgs = append(t.ctorArgs, m)
		}
	}
	SortMembers(t.members)
	sortConstructorArguments(t.ctorArgs)
}
