package objectwriter

import (
	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/schema"
)

// NameScope is a registry of named objects consulted after the writer's own
// scope.
type NameScope interface {
	Resolve(name string) (any, bool)
	Register(name string, v any) error
}

// MapNameScope is a NameScope over a plain map.
type MapNameScope map[string]any

func (s MapNameScope) Resolve(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

func (s MapNameScope) Register(name string, v any) error {
	if _, dup := s[name]; dup {
		return goxaml.Fail(goxaml.CodeDuplicateName, "/", "name", name)
	}
	s[name] = v
	return nil
}

// Initializer is implemented by values that want their member assignments
// bracketed.
type Initializer interface {
	BeginInit()
	EndInit()
}

// Settings configures a Writer. The last one passed wins.
type Settings struct {
	// RootObjectInstance, when set, is populated instead of creating the
	// root. It must be a pointer to the root type.
	RootObjectInstance any
	// SkipDuplicatePropertyCheck allows the same member twice on an object.
	SkipDuplicatePropertyCheck bool
	// ExternalNameScope resolves names the document does not define.
	ExternalNameScope NameScope
	// RegisterNamesOnExternalNameScope also registers document names there.
	RegisterNamesOnExternalNameScope bool
	// SkipProvideValueOnRoot returns a root markup extension itself instead
	// of the value it provides.
	SkipProvideValueOnRoot bool

	// SetValue, when set, sees every member value before it is converted
	// and stored. Returning true means the handler stored it.
	SetValue func(target any, m *schema.Member, v any) (bool, error)

	// BeforeProperties runs before the first member of an object is set.
	BeforeProperties func(v any)
	// AfterProperties runs when an object's members are complete.
	AfterProperties func(v any)
	// AfterEndInit runs after EndInit of an Initializer.
	AfterEndInit func(v any)
}
