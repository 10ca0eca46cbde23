package objectwriter

import (
	"fmt"
	"reflect"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/schema"
)

var (
	reflectTypeType    = reflect.TypeFor[reflect.Type]()
	typeDescriptorType = reflect.TypeFor[schema.Type]()
)

// coerce makes v assignable to target: as is, through a pointer, through the
// converter for strings, from type names to type descriptors, or by a
// numeric or same-kind conversion.
func (w *Writer) coerce(p goxaml.PathRef, v any, target reflect.Type, conv schema.ValueConverter) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(target), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type().AssignableTo(target) {
		return rv.Elem(), nil
	}
	if target.Kind() == reflect.Pointer && rv.Type().AssignableTo(target.Elem()) {
		pv := reflect.New(target.Elem())
		pv.Elem().Set(rv)
		return pv, nil
	}
	base := target
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	switch x := v.(type) {
	case string:
		if base == typeDescriptorType || target == reflectTypeType {
			t, err := w.ResolveType(x)
			if err != nil {
				return reflect.Value{}, err
			}
			if target == reflectTypeType {
				return w.coerce(p, t.UnderlyingType(), target, nil)
			}
			return w.coerce(p, t, target, nil)
		}
		if conv == nil {
			conv = w.sctx.TypeFor(base).Converter()
		}
		if conv != nil {
			out, err := conv.FromString(x, base, w)
			if err != nil {
				return reflect.Value{}, w.mismatch(p, v, target, err)
			}
			if out == nil {
				return reflect.Zero(target), nil
			}
			if reflect.TypeOf(out).AssignableTo(base) || reflect.TypeOf(out).AssignableTo(target) {
				return w.coerce(p, out, target, nil)
			}
			rv = reflect.ValueOf(out)
		}
	case *schema.Type:
		if target == reflectTypeType && x.UnderlyingType() != nil {
			return reflect.ValueOf(x.UnderlyingType()), nil
		}
	}
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if convertible(rv.Type(), base) {
		cv := rv.Convert(base)
		if target.Kind() == reflect.Pointer {
			pv := reflect.New(base)
			pv.Elem().Set(cv)
			return pv, nil
		}
		return cv, nil
	}
	return reflect.Value{}, w.mismatch(p, v, target, nil)
}

func (w *Writer) mismatch(p goxaml.PathRef, v any, target reflect.Type, cause error) error {
	return goxaml.FailWithCause(goxaml.CodeTypeMismatch, p.Pointer(), cause,
		"value", fmt.Sprint(v), "actual", fmt.Sprintf("%T", v), "expected", target.String())
}

// convertible allows numeric conversions and conversions between types of
// the same kind (Color from string, Labels from []string); it rejects
// integer to string.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if from.Kind() == to.Kind() {
		return true
	}
	return numeric(from.Kind()) && numeric(to.Kind())
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// fieldByIndex returns the settable field at index, allocating nil
// embedded pointers on the way.
func fieldByIndex(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}
