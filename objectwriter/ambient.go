package objectwriter

import (
	"reflect"
	"slices"

	"github.com/reoring/goxaml/schema"
)

type ambientFrame struct {
	typ      *schema.Type
	instance any
	values   []schema.AmbientValue
}

type ambientRecord struct {
	typ   *schema.Type
	value schema.AmbientValue
}

// ambientStack implements schema.AmbientProvider. Frames are pushed for
// ambient objects while they are built; the history keeps every value ever
// recorded during the build.
type ambientStack struct {
	frames  []*ambientFrame
	history []ambientRecord
}

func (a *ambientStack) push(t *schema.Type, instance any) *ambientFrame {
	f := &ambientFrame{typ: t, instance: instance}
	a.frames = append(a.frames, f)
	a.history = append(a.history, ambientRecord{typ: t, value: schema.AmbientValue{Value: instance}})
	return f
}

func (a *ambientStack) pop(f *ambientFrame) {
	if i := slices.Index(a.frames, f); i >= 0 {
		a.frames = a.frames[:i]
	}
}

func (a *ambientStack) add(f *ambientFrame, m *schema.Member, v any) {
	av := schema.AmbientValue{Member: m, Value: v}
	f.values = append(f.values, av)
	a.history = append(a.history, ambientRecord{typ: f.typ, value: av})
}

func (a *ambientStack) FirstAmbientValue(types ...*schema.Type) (any, bool) {
	for i := len(a.frames) - 1; i >= 0; i-- {
		if typeMatches(a.frames[i].typ, types) {
			return a.frames[i].instance, true
		}
	}
	return nil, false
}

// AllAmbientValues searches innermost first. A frame whose type is a
// ceiling is the last one searched.
func (a *ambientStack) AllAmbientValues(ceiling []*schema.Type, liveOnly bool, types []*schema.Type, members ...*schema.Member) []schema.AmbientValue {
	var out []schema.AmbientValue
	collect := func(t *schema.Type, av schema.AmbientValue) {
		if av.Member == nil {
			if len(types) > 0 && typeMatches(t, types) {
				out = append(out, av)
			}
			return
		}
		if slices.ContainsFunc(members, av.Member.Equal) {
			out = append(out, av)
		}
	}
	if liveOnly {
		for i := len(a.frames) - 1; i >= 0; i-- {
			f := a.frames[i]
			for j := len(f.values) - 1; j >= 0; j-- {
				collect(f.typ, f.values[j])
			}
			collect(f.typ, schema.AmbientValue{Value: f.instance})
			if slices.ContainsFunc(ceiling, f.typ.Equal) {
				break
			}
		}
		return out
	}
	for i := len(a.history) - 1; i >= 0; i-- {
		r := a.history[i]
		collect(r.typ, r.value)
		if r.value.Member == nil && slices.ContainsFunc(ceiling, r.typ.Equal) {
			break
		}
	}
	return out
}

// typeMatches reports whether t is one of types or assignable to one.
func typeMatches(t *schema.Type, types []*schema.Type) bool {
	for _, want := range types {
		if t.Equal(want) {
			return true
		}
		rt, wt := t.UnderlyingType(), want.UnderlyingType()
		if rt == nil || wt == nil {
			continue
		}
		if rt.AssignableTo(wt) || reflect.PointerTo(rt).AssignableTo(wt) {
			return true
		}
	}
	return false
}
