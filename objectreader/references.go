package objectreader

import (
	"fmt"
	"reflect"

	"github.com/reoring/goxaml/schema"
)

// ReferenceNamePrefix starts the names generated for shared objects that
// have no name of their own.
const ReferenceNamePrefix = "__ReferenceID"

type refKey struct {
	rt  reflect.Type
	ptr uintptr
}

type refEntry struct {
	value     reflect.Value
	count     int
	name      string
	generated bool
	emitted   bool
}

// referenceTable counts how often each pointer is reached. Entries reached
// more than once are emitted in full the first time and as x:Reference
// afterwards.
type referenceTable struct {
	entries map[refKey]*refEntry
	order   []refKey
}

func newReferenceTable() *referenceTable {
	return &referenceTable{entries: map[refKey]*refEntry{}}
}

func keyOf(v reflect.Value) refKey { return refKey{rt: v.Type(), ptr: v.Pointer()} }

// visit records one more sighting and reports whether v was seen before.
func (t *referenceTable) visit(v reflect.Value) bool {
	k := keyOf(v)
	e := t.entries[k]
	if e == nil {
		e = &refEntry{value: v}
		t.entries[k] = e
		t.order = append(t.order, k)
	}
	e.count++
	return e.count > 1
}

func (t *referenceTable) lookup(v reflect.Value) *refEntry { return t.entries[keyOf(v)] }

// assignNames names every shared entry in discovery order: its name
// property value when set, otherwise a generated name.
func (t *referenceTable) assignNames(sctx *schema.Context) {
	n := 0
	for _, k := range t.order {
		e := t.entries[k]
		if e.count < 2 {
			continue
		}
		if np := sctx.TypeFor(k.rt).NameProperty(); np != nil {
			if f, err := e.value.Elem().FieldByIndexErr(np.FieldIndex()); err == nil && f.String() != "" {
				e.name = f.String()
				continue
			}
		}
		e.name = fmt.Sprintf("%s%d", ReferenceNamePrefix, n)
		e.generated = true
		n++
	}
}

func (t *referenceTable) reset() {
	for _, e := range t.entries {
		e.emitted = false
	}
}

func (t *referenceTable) shared() int {
	c := 0
	for _, e := range t.entries {
		if e.count > 1 {
			c++
		}
	}
	return c
}
