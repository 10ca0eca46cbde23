// Package goxaml is the root of a bidirectional object graph serializer.
//
// Object graphs travel as a flat stream of nodes (StartObject, GetObject,
// EndObject, StartMember, EndMember, Value, NamespaceDeclaration):
//
// - objectreader walks a Go value and produces nodes
// - objectwriter consumes nodes and builds Go values
// - source/json and source/yaml carry node streams as text
// - codec glues them together (Save, Load, Convert, Clone)
//
// The root package keeps the contracts shared by all of them: the Issues
// error model with node paths and codes, and typed context services used to
// hand name resolution and ambient lookups to markup extensions.
//
// Design policy:
// - Keep only public contracts in the root package; put the enforcement engine under internal/.
// - Describe types through schema.Context rather than raw reflection.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	sctx := schema.NewContext()
//	var buf bytes.Buffer
//	err := codec.Save(ctx, root, &buf, sctx, codec.Options{Format: codec.FormatYAML})
//	v, err := codec.LoadAs[*Person](ctx, &buf, sctx, codec.Options{Format: codec.FormatYAML})
package goxaml
