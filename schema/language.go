package schema

import "sync"

const (
	// XamlNamespace is the language namespace holding directives, language
	// types and predeclared Go types.
	XamlNamespace = "http://schemas.microsoft.com/winfx/2006/xaml"
	// XamlPrefix is always bound to XamlNamespace.
	XamlPrefix = "x"
	// ClrNamespacePrefix prefixes namespaces derived from Go package paths.
	ClrNamespacePrefix = "clr-namespace:"
)

// Directive names.
const (
	ItemsName                = "_Items"
	InitializationName       = "_Initialization"
	ArgumentsName            = "Arguments"
	PositionalParametersName = "_PositionalParameters"
	KeyName                  = "Key"
	NameName                 = "Name"
	FactoryMethodName        = "FactoryMethod"
	UidName                  = "Uid"
)

// Language is the process-wide registry of directive members. It is built
// once and shared by every Context.
type Language struct {
	Items                *Member
	Initialization       *Member
	Arguments            *Member
	PositionalParameters *Member
	Key                  *Member
	Name                 *Member
	FactoryMethod        *Member
	Uid                  *Member

	byName map[string]*Member
	all    []*Member
}

var (
	languageOnce sync.Once
	language     *Language
)

// Lang returns the directive registry.
func Lang() *Language {
	languageOnce.Do(func() {
		l := &Language{byName: map[string]*Member{}}
		mk := func(name string) *Member {
			m := &Member{
				kind:      MemberDirective,
				name:      name,
				namespace: XamlNamespace,
				flags:     memberReadPublic | memberWritePublic,
				argPos:    -1,
			}
			l.byName[name] = m
			l.all = append(l.all, m)
			return m
		}
		l.Items = mk(ItemsName)
		l.Initialization = mk(InitializationName)
		l.Arguments = mk(ArgumentsName)
		l.PositionalParameters = mk(PositionalParametersName)
		l.Key = mk(KeyName)
		l.Name = mk(NameName)
		l.FactoryMethod = mk(FactoryMethodName)
		l.Uid = mk(UidName)
		language = l
	})
	return language
}

// Directive looks up a directive by name.
func (l *Language) Directive(name string) (*Member, bool) {
	m, ok := l.byName[name]
	return m, ok
}

// Directives lists every directive in declaration order.
func (l *Language) Directives() []*Member { return append([]*Member(nil), l.all...) }

// IsConstruction reports whether m takes part in building the instance
// itself rather than populating it.
func (l *Language) IsConstruction(m *Member) bool {
	return m == l.Arguments || m == l.PositionalParameters || m == l.Initialization || m == l.FactoryMethod
}
