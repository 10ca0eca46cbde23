package goxaml

import (
	"strconv"
	"strings"
)

// PathRef builds node paths (/Root/Items/2/Name) in a chain-safe way and
// creates Issues located at them. Segments are escaped like JSON Pointer.
type PathRef interface {
	Field(name string) PathRef
	Index(i int) PathRef
	Pointer() string
	Issue(code string, kv ...any) Issue
	Fail(code string, kv ...any) error
}

// RootPath returns the empty path "/".
func RootPath() PathRef { return &pathRef{parts: nil} }

// ParsePath splits a rendered path back into a PathRef.
func ParsePath(path string) PathRef {
	if path == "" || path == "/" {
		return RootPath()
	}
	parts := []string{}
	for _, p := range strings.Split(path, "/") {
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}
	return &pathRef{parts: parts}
}

type pathRef struct {
	parts []string
}

func (p *pathRef) Field(name string) PathRef {
	if name == "" {
		return p
	}
	// escape '~' -> '~0', '/' -> '~1' per RFC6901
	esc := strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return &pathRef{parts: append(append([]string{}, p.parts...), esc)}
}

func (p *pathRef) Index(i int) PathRef {
	return &pathRef{parts: append(append([]string{}, p.parts...), strconv.Itoa(i))}
}

func (p *pathRef) Pointer() string {
	if len(p.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

func (p *pathRef) Issue(code string, kv ...any) Issue {
	return NewIssue(code, p.Pointer(), kv...)
}

func (p *pathRef) Fail(code string, kv ...any) error {
	return Issues{p.Issue(code, kv...)}
}
