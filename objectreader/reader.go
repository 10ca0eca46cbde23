// Package objectreader walks a live Go value and produces the node stream
// describing it.
package objectreader

import (
	"errors"
	"io"
	"iter"
	"reflect"

	"github.com/untillpro/goutils/logger"

	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

// DefaultMaxDepth bounds the nesting the walker follows.
const DefaultMaxDepth = 10000

// Settings configures a Reader. The last one passed wins.
type Settings struct {
	// SkipUnsupported drops members holding funcs, channels and other
	// values the node stream cannot carry instead of failing.
	SkipUnsupported bool
	// MaxDepth bounds object nesting; 0 uses DefaultMaxDepth.
	MaxDepth int
	// OmitZero leaves out every member holding its type's zero value. The
	// omitempty tag option does the same per member, counting empty
	// collections too.
	OmitZero bool
}

// Reader produces the nodes of one object graph. It is a node.Source; a
// Reader cannot be rewound, create a new one to start over.
type Reader struct {
	sctx *schema.Context
	root reflect.Value
	opt  Settings

	namespaces []node.Namespace
	prefixes   map[string]string
	refs       *referenceTable

	next func() (node.Node, error, bool)
	stop func()
}

// New prepares a walk of root: it collects the namespaces in use and the
// objects reached more than once.
func New(root any, sctx *schema.Context, opts ...Settings) (*Reader, error) {
	r := &Reader{sctx: sctx, root: reflect.ValueOf(root), refs: newReferenceTable()}
	if len(opts) > 0 {
		r.opt = opts[len(opts)-1]
	}
	if r.opt.MaxDepth <= 0 {
		r.opt.MaxDepth = DefaultMaxDepth
	}
	w := &walker{r: r, collect: true, seen: map[string]bool{}}
	if err := w.run(); err != nil {
		return nil, err
	}
	r.refs.assignNames(sctx)
	r.assignPrefixes(w.seen)
	if logger.IsVerbose() {
		logger.Verbose("objectreader: namespaces", len(r.namespaces), "shared objects", r.refs.shared())
	}
	return r, nil
}

// Namespaces lists the namespace declarations emitted before the root.
func (r *Reader) Namespaces() []node.Namespace {
	return append([]node.Namespace(nil), r.namespaces...)
}

// Nodes walks the graph lazily; iteration stops at the first error.
func (r *Reader) Nodes() iter.Seq2[node.Node, error] {
	return func(yield func(node.Node, error) bool) {
		r.refs.reset()
		w := &walker{r: r, yield: yield}
		if err := w.run(); err != nil && !errors.Is(err, errStopped) {
			yield(node.Node{}, err)
		}
	}
}

// NextNode returns the next node, io.EOF once the root object has ended.
func (r *Reader) NextNode() (node.Node, error) {
	if r.next == nil {
		r.next, r.stop = iter.Pull2(r.Nodes())
	}
	n, err, ok := r.next()
	if !ok {
		return node.Node{}, io.EOF
	}
	if err != nil {
		r.stop()
		r.next = func() (node.Node, error, bool) { return node.Node{}, nil, false }
	}
	return n, err
}

// Close releases the walk started by NextNode.
func (r *Reader) Close() error {
	if r.stop != nil {
		r.stop()
	}
	return nil
}

// LookupNamespace implements schema.NamespaceResolver for converters.
func (r *Reader) LookupNamespace(prefix string) (string, bool) {
	for _, ns := range r.namespaces {
		if ns.Prefix == prefix {
			return ns.Namespace, true
		}
	}
	return "", false
}

func (r *Reader) LookupPrefix(namespace string) (string, bool) {
	p, ok := r.prefixes[namespace]
	return p, ok
}
