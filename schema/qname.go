package schema

import (
	"fmt"
	"strings"
)

// FormatTypeName renders t as prefix:Name, appending type arguments in
// parentheses: x:Slice(x:int). prefixOf maps a namespace to its prefix; an
// empty prefix leaves the name unqualified.
func FormatTypeName(t *Type, prefixOf func(namespace string) string) string {
	b := &strings.Builder{}
	formatTypeName(b, t, prefixOf)
	return b.String()
}

func formatTypeName(b *strings.Builder, t *Type, prefixOf func(string) string) {
	if p := prefixOf(t.Namespace()); p != "" {
		b.WriteString(p)
		b.WriteByte(':')
	}
	b.WriteString(t.Name())
	args := t.TypeArguments()
	if len(args) == 0 {
		return
	}
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		formatTypeName(b, a, prefixOf)
	}
	b.WriteByte(')')
}

// ParseTypeName resolves a name written by FormatTypeName. nsOf maps a
// prefix to its namespace; "x" always maps to the language namespace. Names
// that resolve to nothing yield unknown placeholders.
func (c *Context) ParseTypeName(qname string, nsOf func(prefix string) (string, bool)) (*Type, error) {
	qname = strings.TrimSpace(qname)
	name, rest := qname, ""
	if i := strings.IndexByte(qname, '('); i >= 0 {
		if !strings.HasSuffix(qname, ")") {
			return nil, fmt.Errorf("schema: unbalanced type name %q", qname)
		}
		name, rest = qname[:i], qname[i+1:len(qname)-1]
	}
	prefix, local := "", name
	if i := strings.IndexByte(name, ':'); i >= 0 {
		prefix, local = name[:i], name[i+1:]
	}
	if local == "" {
		return nil, fmt.Errorf("schema: empty type name in %q", qname)
	}
	ns, ok := nsOf(prefix)
	if !ok {
		if prefix != XamlPrefix {
			return nil, fmt.Errorf("schema: undeclared prefix %q in %q", prefix, qname)
		}
		ns = XamlNamespace
	}
	var args []*Type
	if rest != "" {
		parts, err := splitTypeArgs(rest)
		if err != nil {
			return nil, fmt.Errorf("schema: %w in %q", err, qname)
		}
		for _, part := range parts {
			a, err := c.ParseTypeName(part, nsOf)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
	}
	return c.LookupType(ns, local, args...), nil
}

// splitTypeArgs splits on the commas at nesting depth zero.
func splitTypeArgs(s string) ([]string, error) {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses")
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses")
	}
	return append(out, s[start:]), nil
}

// FormatMemberName renders m as documents write it: directives as x:Name,
// attachables as prefix:Owner.Name, others by bare name.
func FormatMemberName(m *Member, prefixOf func(namespace string) string) string {
	switch {
	case m.IsDirective():
		return qualify(prefixOf(XamlNamespace), m.name)
	case m.IsAttachable():
		return qualify(prefixOf(m.declaring.Namespace()), m.declaring.Name()+"."+m.name)
	default:
		return m.name
	}
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}

// ParseMemberName resolves a name written by FormatMemberName. Bare names
// resolve on current; names that match nothing yield unknown placeholders.
func (c *Context) ParseMemberName(name string, current *Type, nsOf func(prefix string) (string, bool)) (*Member, error) {
	prefix, local, qualified := strings.Cut(name, ":")
	if !qualified {
		prefix, local = "", name
	}
	if qualified || strings.Contains(local, ".") {
		ns, ok := nsOf(prefix)
		if !ok {
			if prefix != XamlPrefix {
				return nil, fmt.Errorf("schema: undeclared prefix %q in member %q", prefix, name)
			}
			ns = XamlNamespace
		}
		if ns == XamlNamespace {
			if m, ok := c.lang.Directive(local); ok {
				return m, nil
			}
		}
		owner, mname, ok := strings.Cut(local, ".")
		if !ok {
			return nil, fmt.Errorf("schema: member %q is neither a directive nor attachable", name)
		}
		ot := c.LookupType(ns, owner)
		if m, ok := ot.AttachableMember(mname); ok {
			return m, nil
		}
		return unknownMember(ot, mname), nil
	}
	if current == nil {
		return nil, fmt.Errorf("schema: member %q outside an object", name)
	}
	return current.ResolveMember(local), nil
}
