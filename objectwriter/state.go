package objectwriter

import (
	"reflect"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/schema"
)

// objectState is the construction record of one object under construction.
type objectState struct {
	typ  *schema.Type
	path goxaml.PathRef

	// value is the instance: a pointer for everything but markup extension
	// results. Valid once created is set.
	value   reflect.Value
	created bool
	// get marks an existing value reached through GetObject.
	get bool

	written []*schema.Member
	member  *schema.Member
	values  []any
	args    []any
	pending []pendingValue

	key     any
	hasKey  bool
	name    string
	factory string
	index   int

	frame        *ambientFrame
	initializing bool
	propsStarted bool

	// A constructor or initialization value that needs a name registered
	// later postpones the object to the root end.
	waitCtor reflect.Value
	waitArgs []any
	waitInit *deferred
}

type pendingValue struct {
	member *schema.Member
	value  any
	path   goxaml.PathRef
}

func (st *objectState) waiting() bool {
	return st.waitInit != nil || st.waitCtor.IsValid()
}

func (st *objectState) waitNames() []string {
	var names []string
	if st.waitInit != nil {
		names = append(names, st.waitInit.names...)
	}
	for _, a := range st.waitArgs {
		if d, ok := a.(*deferred); ok {
			names = append(names, d.names...)
		}
	}
	return names
}

// stateArena keeps one record per depth and reuses it for every object
// built at that depth.
type stateArena struct {
	records []*objectState
	depth   int
}

func (a *stateArena) push(t *schema.Type, p goxaml.PathRef) *objectState {
	if a.depth == len(a.records) {
		a.records = append(a.records, &objectState{})
	}
	st := a.records[a.depth]
	written, values, args := st.written[:0], st.values[:0], st.args[:0]
	*st = objectState{typ: t, path: p, written: written, values: values, args: args}
	a.depth++
	return st
}

func (a *stateArena) pop() {
	if a.depth > 0 {
		a.depth--
	}
}

func (a *stateArena) top() *objectState {
	if a.depth == 0 {
		return nil
	}
	return a.records[a.depth-1]
}

func (a *stateArena) parent() *objectState {
	if a.depth < 2 {
		return nil
	}
	return a.records[a.depth-2]
}

// childPath is where the next object under st goes.
func (st *objectState) childPath() goxaml.PathRef {
	if st.member == nil {
		return st.path
	}
	p := st.path.Field(st.member.Name())
	l := schema.Lang()
	if st.member == l.Items || st.member == l.Arguments {
		p = p.Index(st.index)
		st.index++
	}
	return p
}

func (st *objectState) memberPath() goxaml.PathRef {
	if st.member == nil {
		return st.path
	}
	return st.path.Field(st.member.Name())
}

// result is the value handed to the parent: pointers to structs, plain
// values for everything else.
func (st *objectState) result() any {
	v := st.value
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Pointer && st.typ.UnderlyingType() != nil && st.typ.UnderlyingType().Kind() != reflect.Struct {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.CanInterface() {
		return nil
	}
	return v.Interface()
}
