package schema

import (
	"reflect"
	"slices"
	"sync"
)

// AttachedPropertyStore is implemented by instances that keep their own
// attachable member values.
type AttachedPropertyStore interface {
	SetAttached(m *Member, v any)
	Attached(m *Member) (any, bool)
	AttachedMembers() []*Member
}

// attachedTable is the side table used for instances that do not store
// attachable values themselves. Entries are keyed by instance identity and
// live until ClearAttached is called for the instance.
type attachedTable struct {
	mu      sync.RWMutex
	entries map[any][]AmbientValue
}

var attached = &attachedTable{entries: map[any][]AmbientValue{}}

// identityKey returns a comparable identity for pointer-like instances.
func identityKey(instance any) (any, bool) {
	if instance == nil {
		return nil, false
	}
	rv := reflect.ValueOf(instance)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return instance, true
	default:
		return nil, false
	}
}

// SetAttached stores value for the attachable member m on instance. Instances
// must be pointers unless they implement AttachedPropertyStore.
func SetAttached(instance any, m *Member, value any) bool {
	if s, ok := instance.(AttachedPropertyStore); ok {
		s.SetAttached(m, value)
		return true
	}
	key, ok := identityKey(instance)
	if !ok {
		return false
	}
	attached.mu.Lock()
	defer attached.mu.Unlock()
	list := attached.entries[key]
	for i := range list {
		if list[i].Member.Equal(m) {
			list[i].Value = value
			return true
		}
	}
	attached.entries[key] = append(list, AmbientValue{Member: m, Value: value})
	return true
}

// Attached returns the value of m stored on instance.
func Attached(instance any, m *Member) (any, bool) {
	if s, ok := instance.(AttachedPropertyStore); ok {
		return s.Attached(m)
	}
	key, ok := identityKey(instance)
	if !ok {
		return nil, false
	}
	attached.mu.RLock()
	defer attached.mu.RUnlock()
	for _, e := range attached.entries[key] {
		if e.Member.Equal(m) {
			return e.Value, true
		}
	}
	return nil, false
}

// AttachedMembers lists the attachable members set on instance, sorted with
// CompareMembers.
func AttachedMembers(instance any) []*Member {
	var out []*Member
	if s, ok := instance.(AttachedPropertyStore); ok {
		out = s.AttachedMembers()
	} else if key, ok := identityKey(instance); ok {
		attached.mu.RLock()
		for _, e := range attached.entries[key] {
			out = append(out, e.Member)
		}
		attached.mu.RUnlock()
	}
	out = slices.Clone(out)
	SortMembers(out)
	return out
}

// ClearAttached drops every attachable value stored for instance in the side
// table.
func ClearAttached(instance any) {
	key, ok := identityKey(instance)
	if !ok {
		return
	}
	attached.mu.Lock()
	delete(attached.entries, key)
	attached.mu.Unlock()
}
