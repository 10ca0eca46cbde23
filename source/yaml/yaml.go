// Package yaml carries node streams as nested YAML documents.
//
// An object is a mapping. Its "$type" key names the type (or "$get: true"
// marks a retrieved object) and every other key is a member in stream order.
// A member holding one value or object is written as that scalar or mapping;
// several are written as a sequence; an empty member is []. Namespace
// declarations preceding an object appear under its "$ns" key.
//
//	$ns:
//	  "": urn:goxaml:test
//	  x: http://schemas.microsoft.com/winfx/2006/xaml
//	$type: Person
//	Name: Ann
//	Tags:
//	  $get: true
//	  x:_Items:
//	    - {$type: x:string, x:_Initialization: a}
package yaml

import "gopkg.in/yaml.v3"

const (
	keyNamespaces = "$ns"
	keyType       = "$type"
	keyGet        = "$get"

	tagStr  = "!!str"
	tagNull = "!!null"
	tagBool = "!!bool"
)

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func pair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalar(tagStr, key), value)
}
