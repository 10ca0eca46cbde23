package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLookupCacheSize bounds the name lookup cache of a Context.
const DefaultLookupCacheSize = 1024

// ContextOpt configures a Context.
type ContextOpt struct {
	// LookupCacheSize bounds LookupType's cache; 0 uses DefaultLookupCacheSize.
	LookupCacheSize int
	// Prefixes pins preferred prefixes per namespace.
	Prefixes map[string]string
}

// Context resolves Go types to Type descriptors and names to types. Lookups
// are safe for concurrent use; registrations should happen before the types
// involved are first queried.
type Context struct {
	mu          sync.RWMutex
	types       map[reflect.Type]*Type
	named       map[string]*Type
	converters  map[reflect.Type]ValueConverter
	factories   map[reflect.Type]map[string][]reflect.Value
	attachables map[reflect.Type][]*Member
	prefixes    map[string]string

	lookup *lru.Cache[string, *Type]
	lang   *Language
}

// NewContext creates a schema context. The last option wins.
func NewContext(opts ...ContextOpt) *Context {
	var opt ContextOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	size := opt.LookupCacheSize
	if size <= 0 {
		size = DefaultLookupCacheSize
	}
	cache, err := lru.New[string, *Type](size)
	if err != nil {
		// only returned for non-positive sizes
		panic(err)
	}
	c := &Context{
		types:       map[reflect.Type]*Type{},
		named:       map[string]*Type{},
		converters:  map[reflect.Type]ValueConverter{},
		factories:   map[reflect.Type]map[string][]reflect.Value{},
		attachables: map[reflect.Type][]*Member{},
		prefixes:    map[string]string{},
		lookup:      cache,
		lang:        Lang(),
	}
	for ns, p := range opt.Prefixes {
		c.prefixes[ns] = p
	}
	for rt := range languageTypeNames {
		c.TypeFor(rt)
	}
	return c
}

// Language returns the shared directive registry.
func (c *Context) Language() *Language { return c.lang }

// TypeOf returns the descriptor of v's dynamic type, nil for nil.
func (c *Context) TypeOf(v any) *Type {
	if v == nil {
		return nil
	}
	if rv, ok := v.(reflect.Value); ok {
		return c.TypeFor(rv.Type())
	}
	return c.TypeFor(reflect.TypeOf(v))
}

// TypeFor returns the cached descriptor of rt. Pointer types share the
// descriptor of their element type.
func (c *Context) TypeFor(rt reflect.Type) *Type {
	if rt == nil {
		return nil
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	c.mu.RLock()
	t := c.types[rt]
	c.mu.RUnlock()
	if t != nil {
		return t
	}
	nt := c.newType(rt)
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing := c.types[rt]; existing != nil {
		return existing
	}
	c.types[rt] = nt
	key := namedKey(nt.namespace, nt.name)
	if _, taken := c.named[key]; !taken {
		c.named[key] = nt
	}
	return nt
}

// ObjectType is the descriptor of any.
func (c *Context) ObjectType() *Type { return c.objectType() }

func (c *Context) objectType() *Type { return c.TypeFor(reflect.TypeFor[any]()) }

// Register makes the types of the given samples (values or reflect.Types)
// resolvable by name, following struct fields, elements and keys.
func (c *Context) Register(samples ...any) {
	seen := map[reflect.Type]bool{}
	var walk func(rt reflect.Type)
	walk = func(rt reflect.Type) {
		for rt.Kind() == reflect.Pointer {
			rt = rt.Elem()
		}
		if seen[rt] {
			return
		}
		seen[rt] = true
		t := c.TypeFor(rt)
		switch rt.Kind() {
		case reflect.Slice, reflect.Array:
			walk(rt.Elem())
		case reflect.Map:
			walk(rt.Key())
			walk(rt.Elem())
		case reflect.Struct:
			for _, m := range t.AllMembers() {
				if m.fieldType != nil && m.fieldType.Kind() != reflect.Func {
					walk(m.fieldType)
				}
			}
		}
	}
	for _, s := range samples {
		if s == nil {
			continue
		}
		rt, ok := s.(reflect.Type)
		if !ok {
			rt = reflect.TypeOf(s)
		}
		walk(rt)
	}
}

// LookupType resolves a namespace-qualified name. Names that match nothing
// yield an unknown placeholder carrying only the name, namespace and
// arguments. Placeholders are not cached, so a later Register is seen.
func (c *Context) LookupType(namespace, name string, args ...*Type) *Type {
	key := lookupKey(namespace, name, args)
	if t, ok := c.lookup.Get(key); ok {
		return t
	}
	t := c.resolveName(namespace, name, args)
	if !t.IsUnknown() {
		c.lookup.Add(key, t)
	}
	return t
}

func (c *Context) resolveName(namespace, name string, args []*Type) *Type {
	if namespace == XamlNamespace {
		switch name {
		case "Slice":
			if len(args) == 1 && args[0].rt != nil {
				return c.TypeFor(reflect.SliceOf(args[0].rt))
			}
		case "Map":
			if len(args) == 2 && args[0].rt != nil && args[1].rt != nil && args[0].rt.Comparable() {
				return c.TypeFor(reflect.MapOf(args[0].rt, args[1].rt))
			}
		default:
			if rt, ok := predeclaredTypes[name]; ok && len(args) == 0 {
				return c.TypeFor(rt)
			}
		}
	}
	c.mu.RLock()
	t := c.named[namedKey(namespace, name)]
	c.mu.RUnlock()
	if t != nil && len(args) == 0 {
		return t
	}
	return &Type{
		ctx:       c,
		name:      name,
		namespace: namespace,
		args:      append([]*Type(nil), args...),
		flags:     typeUnknown | typeNullable,
	}
}

// RegisterConverter sets the converter for rt, making it a content value.
// It fails once rt's descriptor exists.
func (c *Context) RegisterConverter(rt reflect.Type, conv ValueConverter) error {
	if rt == nil || conv == nil {
		return errors.New("schema: nil type or converter")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.types[rt]; exists {
		return fmt.Errorf("schema: %s already in use; register converters first", rt)
	}
	c.converters[rt] = conv
	return nil
}

// RegisterFactory registers fn as a factory of rt under name; the empty name
// is the constructor. fn must return the type (or a pointer to it),
// optionally followed by an error.
func (c *Context) RegisterFactory(rt reflect.Type, name string, fn any) error {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return fmt.Errorf("schema: factory %q of %s is not a func", name, rt)
	}
	ft := fv.Type()
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return fmt.Errorf("schema: factory %q of %s: second result must be error", name, rt)
		}
	default:
		return fmt.Errorf("schema: factory %q of %s must return one value and an optional error", name, rt)
	}
	out := ft.Out(0)
	if out != rt && out != reflect.PointerTo(rt) {
		return fmt.Errorf("schema: factory %q returns %s, want %s", name, out, rt)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	byName := c.factories[rt]
	if byName == nil {
		byName = map[string][]reflect.Value{}
		c.factories[rt] = byName
	}
	byName[name] = append(byName[name], fv)
	return nil
}

// RegisterAttachable declares an attachable member name owned by owner.
func (c *Context) RegisterAttachable(owner reflect.Type, name string, valueType reflect.Type) *Member {
	ot := c.TypeFor(owner)
	m := &Member{
		kind:      MemberAttachable,
		name:      name,
		declaring: ot,
		valueType: c.TypeFor(valueType),
		fieldType: valueType,
		flags:     memberReadPublic | memberWritePublic,
		argPos:    -1,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.attachables[ot.rt] {
		if existing.name == name {
			return existing
		}
	}
	c.attachables[ot.rt] = append(c.attachables[ot.rt], m)
	return m
}

// PreferredPrefix returns the prefix this context suggests for namespace.
func (c *Context) PreferredPrefix(namespace string) string {
	c.mu.RLock()
	p, ok := c.prefixes[namespace]
	c.mu.RUnlock()
	if ok {
		return p
	}
	if namespace == XamlNamespace {
		return XamlPrefix
	}
	return derivePrefix(namespace)
}

func (c *Context) attachablesOf(rt reflect.Type) []*Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Member(nil), c.attachables[rt]...)
}

func (c *Context) factoriesOf(rt reflect.Type, name string) []reflect.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.factories[rt][name]
}

func (c *Context) converterFor(rt reflect.Type) ValueConverter {
	c.mu.RLock()
	conv := c.converters[rt]
	c.mu.RUnlock()
	if conv != nil {
		return conv
	}
	return builtinConverter(rt)
}

func (c *Context) newType(rt reflect.Type) *Type {
	t := &Type{ctx: c, rt: rt}
	switch {
	case languageTypeNames[rt] != "":
		t.name, t.namespace = languageTypeNames[rt], XamlNamespace
	case rt.Name() == "":
		t.name, t.namespace = compositeName(rt), XamlNamespace
	case rt.PkgPath() == "":
		t.name, t.namespace = rt.Name(), XamlNamespace
	default:
		t.name, t.namespace = rt.Name(), ClrNamespacePrefix+rt.PkgPath()
	}
	if t.name == "" {
		t.name = rt.String()
	}
	t.conv = c.converterFor(rt)
	isME := rt.Kind() != reflect.Interface && (rt.Implements(markupExtensionType) || reflect.PointerTo(rt).Implements(markupExtensionType))
	switch {
	case t.conv != nil:
	case rt.Kind() == reflect.Slice:
		t.flags |= typeCollection
	case rt.Kind() == reflect.Map:
		t.flags |= typeDictionary
	case rt.Kind() == reflect.Array:
		t.flags |= typeArray
	}
	if isME {
		t.flags |= typeMarkupExtension
	}
	switch rt.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Array:
	default:
		if !isME && rt != typeDescriptorType {
			t.flags |= typeConstructible
		}
	}
	switch rt.Kind() {
	case reflect.Slice, reflect.Map, reflect.Interface, reflect.Struct, reflect.Func, reflect.Chan:
		t.flags |= typeNullable
	}
	return t
}

var errorType = reflect.TypeFor[error]()

var typeDescriptorType = reflect.TypeFor[Type]()

// languageTypeNames names the language types of the x namespace.
var languageTypeNames = map[reflect.Type]string{
	reflect.TypeFor[NullExtension]():  "Null",
	reflect.TypeFor[TypeExtension]():  "Type",
	reflect.TypeFor[Reference]():      "Reference",
	reflect.TypeFor[ArrayExtension](): "Array",
	reflect.TypeFor[any]():            "Object",
	typeDescriptorType:                "TypeName",
}

var predeclaredTypes = map[string]reflect.Type{
	"bool":       reflect.TypeFor[bool](),
	"string":     reflect.TypeFor[string](),
	"int":        reflect.TypeFor[int](),
	"int8":       reflect.TypeFor[int8](),
	"int16":      reflect.TypeFor[int16](),
	"int32":      reflect.TypeFor[int32](),
	"int64":      reflect.TypeFor[int64](),
	"uint":       reflect.TypeFor[uint](),
	"uint8":      reflect.TypeFor[uint8](),
	"uint16":     reflect.TypeFor[uint16](),
	"uint32":     reflect.TypeFor[uint32](),
	"uint64":     reflect.TypeFor[uint64](),
	"uintptr":    reflect.TypeFor[uintptr](),
	"float32":    reflect.TypeFor[float32](),
	"float64":    reflect.TypeFor[float64](),
	"complex64":  reflect.TypeFor[complex64](),
	"complex128": reflect.TypeFor[complex128](),
	"Object":     reflect.TypeFor[any](),
	"Null":       reflect.TypeFor[NullExtension](),
	"Type":       reflect.TypeFor[TypeExtension](),
	"Reference":  reflect.TypeFor[Reference](),
	"Array":      reflect.TypeFor[ArrayExtension](),
	"TypeName":   typeDescriptorType,
}

func compositeName(rt reflect.Type) string {
	switch rt.Kind() {
	case reflect.Slice:
		return "Slice"
	case reflect.Map:
		return "Map"
	case reflect.Array:
		return "Array"
	case reflect.Interface:
		if rt.NumMethod() == 0 {
			return "Object"
		}
		return "Interface"
	case reflect.Struct:
		return "Struct"
	default:
		return rt.Kind().String()
	}
}

func namedKey(namespace, name string) string { return namespace + "\x00" + name }

func lookupKey(namespace, name string, args []*Type) string {
	if len(args) == 0 {
		return namedKey(namespace, name)
	}
	b := &strings.Builder{}
	b.WriteString(namedKey(namespace, name))
	for _, a := range args {
		b.WriteByte('\x00')
		b.WriteString(lookupKey(a.Namespace(), a.Name(), a.TypeArguments()))
	}
	return b.String()
}

// derivePrefix builds a short lowercase prefix from the last path segment of
// a namespace URI.
func derivePrefix(namespace string) string {
	ns := strings.TrimPrefix(namespace, ClrNamespacePrefix)
	if i := strings.IndexByte(ns, ';'); i >= 0 {
		ns = ns[:i]
	}
	ns = strings.TrimRight(ns, "/")
	if i := strings.LastIndexAny(ns, "/:"); i >= 0 {
		ns = ns[i+1:]
	}
	b := &strings.Builder{}
	for _, r := range strings.ToLower(ns) {
		if unicode.IsLetter(r) || (unicode.IsDigit(r) && b.Len() > 0) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "ns"
	}
	return b.String()
}

// NamespaceAcronym derives the initials of a Go-package namespace's last
// segment (split on '.', '_' and '-'), lowercased: clr-namespace:example.com/
// app/order_items gives "oi". It returns "" for other namespaces.
func NamespaceAcronym(namespace string) string {
	if !strings.HasPrefix(namespace, ClrNamespacePrefix) {
		return ""
	}
	ns := strings.TrimPrefix(namespace, ClrNamespacePrefix)
	if i := strings.IndexByte(ns, ';'); i >= 0 {
		ns = ns[:i]
	}
	if i := strings.LastIndexByte(ns, '/'); i >= 0 {
		ns = ns[i+1:]
	}
	b := &strings.Builder{}
	for _, part := range strings.FieldsFunc(ns, func(r rune) bool { return r == '.' || r == '_' || r == '-' }) {
		r := []rune(part)[0]
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
