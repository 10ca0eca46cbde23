// Package json reads and writes node streams as JSON node documents:
//
//	{"namespaces":[{"prefix":"","uri":"clr-namespace:example.com/app"}],
//	 "nodes":[{"kind":"StartObject","type":"Person"},
//	          {"kind":"StartMember","member":"Name"},
//	          {"kind":"Value","value":"Ann"}, ...]}
//
// Type names are prefix-qualified (x:Slice(x:int)); members are written by
// name, attachable members as prefix:Owner.Name and directives as x:Name.
package json

import (
	"github.com/reoring/goxaml/node"
)

type nsDoc struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri"`
}

type nodeDoc struct {
	Kind   string  `json:"kind"`
	Type   string  `json:"type,omitempty"`
	Member string  `json:"member,omitempty"`
	Value  any     `json:"value,omitempty"`
	Prefix *string `json:"prefix,omitempty"`
	URI    string  `json:"uri,omitempty"`
}

var kindNames = map[string]node.Kind{
	node.StartObject.String():          node.StartObject,
	node.GetObject.String():            node.GetObject,
	node.EndObject.String():            node.EndObject,
	node.StartMember.String():          node.StartMember,
	node.EndMember.String():            node.EndMember,
	node.Value.String():                node.Value,
	node.NamespaceDeclaration.String(): node.NamespaceDeclaration,
}
