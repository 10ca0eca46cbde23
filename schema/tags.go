package schema

import (
	"reflect"
	"strconv"
	"strings"
)

// fieldTag is the parsed form of a struct field's xaml tag.
type fieldTag struct {
	name      string
	skip      bool
	content   bool
	ambient   bool
	readOnly  bool
	nameProp  bool
	omitEmpty bool
	argPos    int
}

// parseFieldTag applies the repository-wide rule to resolve a struct field's
// member name and flags.
// Priority: xaml:"Name,..." > json tag name > field name; "-" disables the field.
// Flags: content, ambient, readonly, name (runtime name property), omitempty
// (left out of output when empty), arg=N (constructor argument position).
// Without a xaml tag, a json omitempty option applies too.
func parseFieldTag(sf reflect.StructField) fieldTag {
	ft := fieldTag{name: sf.Name, argPos: -1}
	xt, hasXaml := sf.Tag.Lookup("xaml")
	if hasXaml {
		if xt == "-" {
			ft.skip = true
			return ft
		}
		parts := strings.Split(xt, ",")
		if n := strings.TrimSpace(parts[0]); n != "" {
			ft.name = n
		} else if jn, ok := jsonName(sf); ok {
			ft.name = jn
		}
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			switch {
			case p == "content":
				ft.content = true
			case p == "ambient":
				ft.ambient = true
			case p == "readonly":
				ft.readOnly = true
			case p == "name":
				ft.nameProp = true
			case p == "omitempty":
				ft.omitEmpty = true
			case strings.HasPrefix(p, "arg="):
				if n, err := strconv.Atoi(strings.TrimPrefix(p, "arg=")); err == nil && n >= 0 {
					ft.argPos = n
				}
			}
		}
		return ft
	}
	if jt := sf.Tag.Get("json"); jt == "-" {
		ft.skip = true
		return ft
	}
	if jn, ok := jsonName(sf); ok {
		ft.name = jn
	}
	if jt, ok := sf.Tag.Lookup("json"); ok {
		for _, p := range strings.Split(jt, ",")[1:] {
			if strings.TrimSpace(p) == "omitempty" {
				ft.omitEmpty = true
			}
		}
	}
	return ft
}

func jsonName(sf reflect.StructField) (string, bool) {
	jt := sf.Tag.Get("json")
	if jt == "" || jt == "-" {
		return "", false
	}
	if i := strings.IndexByte(jt, ','); i >= 0 {
		jt = jt[:i]
	}
	if jt == "" {
		return "", false
	}
	return jt, true
}
