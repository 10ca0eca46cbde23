package schema

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// NamespaceResolver maps prefixes to namespaces and back for converters that
// render qualified names.
type NamespaceResolver interface {
	LookupNamespace(prefix string) (string, bool)
	LookupPrefix(namespace string) (string, bool)
}

// ValueConverter turns values of a content-value type into a single string
// and back.
type ValueConverter interface {
	ToString(v any, ns NamespaceResolver) (string, error)
	FromString(s string, target reflect.Type, ns NamespaceResolver) (any, error)
}

// ErrNotConvertible is returned by converters asked to handle a value or
// target they do not cover.
var ErrNotConvertible = errors.New("schema: value not convertible")

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	timeType            = reflect.TypeFor[time.Time]()
	durationType        = reflect.TypeFor[time.Duration]()
)

// builtinConverter picks the converter for rt, or nil when rt is not a
// content value.
func builtinConverter(rt reflect.Type) ValueConverter {
	switch rt {
	case timeType:
		return timeConverter{}
	case durationType:
		return durationConverter{}
	}
	if rt.Implements(textMarshalerType) && reflect.PointerTo(rt).Implements(textUnmarshalerType) {
		return textConverter{}
	}
	switch rt.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return kindConverter{}
	}
	return nil
}

// kindConverter handles predeclared kinds and named types over them.
type kindConverter struct{}

func (kindConverter) ToString(v any, _ NamespaceResolver) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	case reflect.Complex64:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 64), nil
	case reflect.Complex128:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 128), nil
	}
	return "", fmt.Errorf("%w: %T", ErrNotConvertible, v)
}

func (kindConverter) FromString(s string, target reflect.Type, _ NamespaceResolver) (any, error) {
	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		out.SetBool(b)
	case reflect.String:
		out.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, target.Bits())
		if err != nil {
			return nil, err
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(s, 10, target.Bits())
		if err != nil {
			return nil, err
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, target.Bits())
		if err != nil {
			return nil, err
		}
		out.SetFloat(f)
	case reflect.Complex64, reflect.Complex128:
		c, err := strconv.ParseComplex(s, target.Bits())
		if err != nil {
			return nil, err
		}
		out.SetComplex(c)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotConvertible, target)
	}
	return out.Interface(), nil
}

// textConverter delegates to encoding.TextMarshaler/TextUnmarshaler.
type textConverter struct{}

func (textConverter) ToString(v any, _ NamespaceResolver) (string, error) {
	tm, ok := v.(encoding.TextMarshaler)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrNotConvertible, v)
	}
	b, err := tm.MarshalText()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (textConverter) FromString(s string, target reflect.Type, _ NamespaceResolver) (any, error) {
	ptr := reflect.New(target)
	tu, ok := ptr.Interface().(encoding.TextUnmarshaler)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConvertible, target)
	}
	if err := tu.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

// timeConverter renders time.Time as canonical RFC3339 in UTC.
type timeConverter struct{}

func (timeConverter) ToString(v any, _ NamespaceResolver) (string, error) {
	t, ok := v.(time.Time)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrNotConvertible, v)
	}
	return formatRFC3339Canonical(t), nil
}

func (timeConverter) FromString(s string, _ reflect.Type, _ NamespaceResolver) (any, error) {
	return parseRFC3339(s)
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}

type durationConverter struct{}

func (durationConverter) ToString(v any, _ NamespaceResolver) (string, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrNotConvertible, v)
	}
	return d.String(), nil
}

func (durationConverter) FromString(s string, _ reflect.Type, _ NamespaceResolver) (any, error) {
	return time.ParseDuration(s)
}

// ConverterFunc adapts a pair of functions to ValueConverter.
type ConverterFunc[T any] struct {
	Format func(T) (string, error)
	Parse  func(string) (T, error)
}

func (c ConverterFunc[T]) ToString(v any, _ NamespaceResolver) (string, error) {
	tv, ok := v.(T)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrNotConvertible, v)
	}
	return c.Format(tv)
}

func (c ConverterFunc[T]) FromString(s string, _ reflect.Type, _ NamespaceResolver) (any, error) {
	return c.Parse(s)
}
