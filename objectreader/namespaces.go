package objectreader

import (
	"slices"
	"strconv"

	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

// assignPrefixes gives every collected namespace a prefix. The root type's
// namespace is the default (empty) prefix, the language namespace is "x",
// and others prefer the package acronym, then the context's preferred
// prefix, numbered on collision. Namespaces are visited in sorted order so
// the result does not depend on traversal order.
func (r *Reader) assignPrefixes(seen map[string]bool) {
	r.prefixes = map[string]string{}
	used := map[string]bool{schema.XamlPrefix: true}
	defaultNS := ""
	if rt := r.rootType(); rt != nil && rt.Namespace() != schema.XamlNamespace {
		defaultNS = rt.Namespace()
		used[""] = true
	}
	uris := make([]string, 0, len(seen))
	for ns := range seen {
		if ns != "" {
			uris = append(uris, ns)
		}
	}
	slices.Sort(uris)
	for _, ns := range uris {
		var prefix string
		switch ns {
		case defaultNS:
			prefix = ""
		case schema.XamlNamespace:
			prefix = schema.XamlPrefix
		default:
			prefix = schema.NamespaceAcronym(ns)
			if prefix == "" || used[prefix] {
				base := r.sctx.PreferredPrefix(ns)
				prefix = base
				for i := 1; used[prefix]; i++ {
					prefix = base + strconv.Itoa(i)
				}
			}
		}
		used[prefix] = true
		r.prefixes[ns] = prefix
	}
	for ns, p := range r.prefixes {
		r.namespaces = append(r.namespaces, node.Namespace{Prefix: p, Namespace: ns})
	}
	slices.SortFunc(r.namespaces, func(a, b node.Namespace) int {
		if a.Prefix < b.Prefix {
			return -1
		}
		if a.Prefix > b.Prefix {
			return 1
		}
		return 0
	})
}

func (r *Reader) rootType() *schema.Type {
	v := unwrap(r.root)
	if !v.IsValid() || isNil(v) {
		return nil
	}
	return r.sctx.TypeFor(v.Type())
}

// qualifiedName renders t with the prefixes assigned to this walk.
func (r *Reader) qualifiedName(t *schema.Type) string {
	return schema.FormatTypeName(t, func(ns string) string { return r.prefixes[ns] })
}
