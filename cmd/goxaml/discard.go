package main

import (
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

// discard is a node.Writer that drops everything.
type discard struct{}

func (discard) WriteStartObject(*schema.Type) error   { return nil }
func (discard) WriteGetObject() error                 { return nil }
func (discard) WriteEndObject() error                 { return nil }
func (discard) WriteStartMember(*schema.Member) error { return nil }
func (discard) WriteEndMember() error                 { return nil }
func (discard) WriteValue(any) error                  { return nil }
func (discard) WriteNamespace(node.Namespace) error   { return nil }
func (discard) Close() error                          { return nil }
