package schema

import (
	"context"
	"fmt"
	"reflect"

	"github.com/reoring/goxaml"
)

// MarkupExtension is a deferred-construction value: once built, the object
// builder evaluates it and uses the result in its place. Services are
// available through goxaml.Service on ctx (NameResolver, AmbientProvider,
// TargetProvider, TypeResolver, *Context).
type MarkupExtension interface {
	ProvideValue(ctx context.Context) (any, error)
}

// ReturnTyper optionally declares what a markup extension evaluates to.
type ReturnTyper interface {
	MarkupExtensionReturnType() reflect.Type
}

// AmbientMarker marks types whose instances are visible to descendants
// through the AmbientProvider while they are being built.
type AmbientMarker interface {
	Ambient()
}

var (
	markupExtensionType = reflect.TypeFor[MarkupExtension]()
	ambientMarkerType   = reflect.TypeFor[AmbientMarker]()
	returnTyperType     = reflect.TypeFor[ReturnTyper]()
)

func returnTypeOf(rt reflect.Type) (reflect.Type, bool) {
	var v reflect.Value
	switch {
	case rt.Implements(returnTyperType):
		v = reflect.Zero(rt)
	case reflect.PointerTo(rt).Implements(returnTyperType):
		v = reflect.New(rt)
	default:
		return nil, false
	}
	out := v.Interface().(ReturnTyper).MarkupExtensionReturnType()
	return out, out != nil
}

// NullExtension (x:Null) evaluates to nil.
type NullExtension struct{}

func (NullExtension) ProvideValue(context.Context) (any, error) { return nil, nil }

// TypeExtension (x:Type) evaluates to the *Type named by TypeName, a
// prefix-qualified name such as "x:int" or "m:Person".
type TypeExtension struct {
	TypeName string `xaml:"TypeName,arg=0"`
}

func (e TypeExtension) MarkupExtensionReturnType() reflect.Type {
	return reflect.TypeFor[*Type]()
}

func (e TypeExtension) ProvideValue(ctx context.Context) (any, error) {
	tr, err := goxaml.RequireService[TypeResolver](ctx)
	if err != nil {
		return nil, err
	}
	t, err := tr.ResolveType(e.TypeName)
	if err != nil {
		return nil, err
	}
	if t.IsUnknown() {
		return nil, goxaml.Fail(goxaml.CodeUnknownType, "/", "type", e.TypeName)
	}
	return t, nil
}

// Reference (x:Reference) evaluates to the object registered under Name. A
// name not registered yet yields a fixup token the builder resolves after
// the root object completes.
type Reference struct {
	Name string `xaml:"Name,arg=0"`
}

func (r Reference) ProvideValue(ctx context.Context) (any, error) {
	nr, err := goxaml.RequireService[NameResolver](ctx)
	if err != nil {
		return nil, err
	}
	if v, ok := nr.Resolve(r.Name); ok {
		return v, nil
	}
	if nr.IsFixupTokenAvailable() {
		return nr.FixupToken([]string{r.Name}), nil
	}
	return nil, goxaml.Fail(goxaml.CodeUnresolvedReference, "/", "name", r.Name)
}

// ArrayExtension (x:Array) evaluates to a Go array [len(Items)]Type.
type ArrayExtension struct {
	Type  *Type `xaml:"Type"`
	Items []any `xaml:"Items,content,readonly"`
}

func (a *ArrayExtension) ProvideValue(context.Context) (any, error) {
	if a.Type == nil || a.Type.UnderlyingType() == nil {
		return nil, fmt.Errorf("x:Array requires a known element type, got %v", a.Type)
	}
	et := a.Type.UnderlyingType()
	out := reflect.New(reflect.ArrayOf(len(a.Items), et)).Elem()
	for i, it := range a.Items {
		if it == nil {
			continue
		}
		v := reflect.ValueOf(it)
		switch {
		case v.Type().AssignableTo(et):
		case v.Kind() == reflect.Pointer && v.Elem().Type().AssignableTo(et):
			v = v.Elem()
		case v.Type().ConvertibleTo(et):
			v = v.Convert(et)
		default:
			return nil, fmt.Errorf("x:Array item %d: %s is not assignable to %s", i, v.Type(), et)
		}
		out.Index(i).Set(v)
	}
	return out.Interface(), nil
}

// FixupToken is the placeholder a NameResolver hands out for names not yet
// registered.
type FixupToken struct {
	Names []string
}
