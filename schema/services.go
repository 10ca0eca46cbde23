package schema

// NameResolver resolves names registered in the current name scope.
type NameResolver interface {
	Resolve(name string) (any, bool)
	// IsFixupTokenAvailable reports whether unresolved names may be deferred.
	IsFixupTokenAvailable() bool
	FixupToken(names []string) *FixupToken
}

// TargetProvider exposes the object and member a markup extension's value
// is destined for.
type TargetProvider interface {
	TargetObject() any
	TargetMember() *Member
}

// AmbientValue is one entry of the ambient stack: an ambient member's value,
// or an ambient object itself (Member nil).
type AmbientValue struct {
	Member *Member
	Value  any
}

// AmbientProvider answers ambient lookups during a build.
type AmbientProvider interface {
	// FirstAmbientValue returns the innermost live ambient object assignable
	// to one of types.
	FirstAmbientValue(types ...*Type) (any, bool)
	// AllAmbientValues searches the live stack (liveOnly) innermost first,
	// stopping at ceiling types, or every value recorded so far in the build.
	AllAmbientValues(ceiling []*Type, liveOnly bool, types []*Type, members ...*Member) []AmbientValue
}

// TypeResolver resolves prefix-qualified type names ("p:Name").
type TypeResolver interface {
	ResolveType(qualifiedName string) (*Type, error)
}
