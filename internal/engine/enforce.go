package engine

import (
	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

// Enforcement wrapper for a node Source: validates ordering with the state
// machine, detects members written twice on one object and bounds nesting.

// DuplicateStrictness controls duplicate member handling.
type DuplicateStrictness int

const (
	DupError DuplicateStrictness = iota
	DupWarn
	DupIgnore
)

// EnforceOptions controls runtime enforcement behavior.
type EnforceOptions struct {
	Settings    Settings
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	// IssueSink receives non-fatal issues (duplicate members under DupWarn).
	IssueSink func(goxaml.Issue)
}

type frame struct {
	typ     *schema.Type
	path    goxaml.PathRef
	members []*schema.Member
	member  *schema.Member
	index   int
}

// Enforce returns a Source that validates every node pulled from inner.
func Enforce(inner node.Source, opt EnforceOptions) node.Source {
	return &enforcingSource{inner: inner, opt: opt, sm: NewStateManager(opt.Settings)}
}

type enforcingSource struct {
	inner node.Source
	opt   EnforceOptions
	sm    *StateManager
	stack []frame
}

func (e *enforcingSource) path() goxaml.PathRef {
	if n := len(e.stack); n > 0 {
		top := &e.stack[n-1]
		if top.member != nil {
			return top.path.Field(top.member.Name())
		}
		return top.path
	}
	return goxaml.RootPath()
}

func (e *enforcingSource) fail(err error, n node.Node) error {
	if te, ok := err.(*TransitionError); ok {
		is := te.Issue(e.path().Pointer())
		is.Line, is.Position = n.Line, n.Position
		return goxaml.Issues{is}
	}
	return err
}

func (e *enforcingSource) NextNode() (node.Node, error) {
	n, err := e.inner.NextNode()
	if err != nil {
		return n, err
	}
	if err := e.sm.Apply(n.Kind); err != nil {
		return node.Node{}, e.fail(err, n)
	}
	switch n.Kind {
	case node.StartObject, node.GetObject:
		t := n.Type
		if n.Kind == node.GetObject {
			if k := len(e.stack); k > 0 && e.stack[k-1].member != nil {
				t = e.stack[k-1].member.Type()
			}
		}
		p := e.childPath()
		e.stack = append(e.stack, frame{typ: t, path: p})
		if e.opt.MaxDepth > 0 && len(e.stack) > e.opt.MaxDepth {
			is := goxaml.NewIssue(goxaml.CodeMaxDepth, p.Pointer(), "max", e.opt.MaxDepth)
			is.Line, is.Position = n.Line, n.Position
			return node.Node{}, goxaml.Issues{is}
		}
	case node.EndObject:
		if k := len(e.stack); k > 0 {
			e.stack = e.stack[:k-1]
		}
	case node.StartMember:
		if k := len(e.stack); k > 0 {
			top := &e.stack[k-1]
			if err := e.checkDuplicate(top, n); err != nil {
				return node.Node{}, err
			}
			top.members = append(top.members, n.Member)
			top.member = n.Member
			top.index = 0
		}
		if n.Member == schema.Lang().PositionalParameters {
			e.sm.SetAcceptMultipleValues(true)
		}
	case node.EndMember:
		if k := len(e.stack); k > 0 {
			e.stack[k-1].member = nil
		}
	}
	return n, nil
}

// childPath is the path of an object about to start: the member it fills,
// indexed when the member holds several items.
func (e *enforcingSource) childPath() goxaml.PathRef {
	k := len(e.stack)
	if k == 0 {
		return goxaml.RootPath()
	}
	top := &e.stack[k-1]
	if top.member == nil {
		return top.path
	}
	p := top.path.Field(top.member.Name())
	if top.member == schema.Lang().Items || top.member == schema.Lang().Arguments {
		p = p.Index(top.index)
		top.index++
	}
	return p
}

func (f *frame) typeName() string {
	if f.typ == nil {
		return f.path.Pointer()
	}
	return f.typ.String()
}

func (e *enforcingSource) checkDuplicate(top *frame, n node.Node) error {
	if e.opt.OnDuplicate == DupIgnore || n.Member == schema.Lang().PositionalParameters {
		return nil
	}
	for _, m := range top.members {
		if !m.Equal(n.Member) {
			continue
		}
		is := goxaml.NewIssue(goxaml.CodeDuplicateMember, top.path.Field(n.Member.Name()).Pointer(),
			"member", n.Member.String(), "type", top.typeName())
		is.Line, is.Position = n.Line, n.Position
		if e.opt.IssueSink != nil {
			e.opt.IssueSink(is)
		}
		if e.opt.OnDuplicate == DupError {
			return goxaml.Issues{is}
		}
		return nil
	}
	return nil
}
