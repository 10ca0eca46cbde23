package node

import (
	"errors"
	"io"

	"github.com/gammazero/deque"

	"github.com/reoring/goxaml/schema"
)

// ErrQueueEmpty is returned by Dequeue on an empty queue.
var ErrQueueEmpty = errors.New("node: queue is empty")

// Queue is a FIFO of nodes. It enforces no structure; pair it with a
// validating writer when ordering matters. A Queue is not safe for
// concurrent use on its own; BackgroundReader adds the locking.
type Queue struct {
	q    *deque.Deque[Node]
	line LineInfo
}

// NewQueue creates an empty queue.
func NewQueue() *Queue { return &Queue{q: deque.New[Node]()} }

func (q *Queue) Enqueue(n Node) { q.q.PushBack(n) }

// Dequeue removes and returns the oldest node.
func (q *Queue) Dequeue() (Node, error) {
	if q.q.Len() == 0 {
		return Node{}, ErrQueueEmpty
	}
	return q.q.PopFront(), nil
}

func (q *Queue) Len() int      { return q.q.Len() }
func (q *Queue) IsEmpty() bool { return q.q.Len() == 0 }

// Writer returns a Writer that appends to the queue. Line info set on the
// writer is stamped onto the following nodes.
func (q *Queue) Writer() Writer { return &queueWriter{q: q} }

// Reader returns a Source draining the queue; it reports io.EOF once empty.
func (q *Queue) Reader() Source { return &queueReader{q: q} }

type queueWriter struct{ q *Queue }

func (w *queueWriter) SetLineInfo(li LineInfo) { w.q.line = li }

func (w *queueWriter) add(n Node) error {
	n.LineInfo = w.q.line
	w.q.line = LineInfo{}
	w.q.Enqueue(n)
	return nil
}

func (w *queueWriter) WriteStartObject(t *schema.Type) error   { return w.add(StartObjectNode(t)) }
func (w *queueWriter) WriteGetObject() error                   { return w.add(GetObjectNode()) }
func (w *queueWriter) WriteEndObject() error                   { return w.add(EndObjectNode()) }
func (w *queueWriter) WriteStartMember(m *schema.Member) error { return w.add(StartMemberNode(m)) }
func (w *queueWriter) WriteEndMember() error                   { return w.add(EndMemberNode()) }
func (w *queueWriter) WriteValue(v any) error                  { return w.add(ValueNode(v)) }
func (w *queueWriter) WriteNamespace(ns Namespace) error {
	return w.add(NamespaceNode(ns.Prefix, ns.Namespace))
}
func (w *queueWriter) Close() error { return nil }

type queueReader struct{ q *Queue }

func (r *queueReader) NextNode() (Node, error) {
	n, err := r.q.Dequeue()
	if errors.Is(err, ErrQueueEmpty) {
		return Node{}, io.EOF
	}
	return n, err
}
