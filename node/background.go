package node

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/untillpro/goutils/logger"
	"golang.org/x/sync/errgroup"
)

// BackgroundOptions configures a BackgroundReader.
type BackgroundOptions struct {
	// Capacity bounds the hand-off buffer. Zero means unbounded.
	Capacity int
}

// BackgroundReader pulls nodes from an upstream Source on a producer
// goroutine and hands them to the consumer in order. Close asks the
// producer to stop at its next iteration; nodes already handed off are
// still returned before io.EOF.
type BackgroundReader struct {
	cancel context.CancelFunc
	group  *errgroup.Group

	mu    sync.Mutex
	queue *Queue
	ready chan struct{}
	done  bool
	err   error

	bounded chan Node
}

// NewBackgroundReader starts producing from src immediately.
func NewBackgroundReader(ctx context.Context, src Source, opts ...BackgroundOptions) *BackgroundReader {
	var opt BackgroundOptions
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	b := &BackgroundReader{cancel: cancel, group: g, queue: NewQueue(), ready: make(chan struct{}, 1)}
	if opt.Capacity > 0 {
		b.bounded = make(chan Node, opt.Capacity)
	}
	g.Go(func() error { return b.produce(gctx, src) })
	return b
}

func (b *BackgroundReader) produce(ctx context.Context, src Source) (err error) {
	defer func() {
		b.finish(err)
	}()
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := src.NextNode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if logger.IsVerbose() {
				logger.Verbose("node: background producer stopped:", err)
			}
			return err
		}
		if b.bounded != nil {
			select {
			case b.bounded <- n:
			case <-ctx.Done():
				return nil
			}
			continue
		}
		b.mu.Lock()
		wasEmpty := b.queue.IsEmpty()
		b.queue.Enqueue(n)
		b.mu.Unlock()
		if wasEmpty {
			b.signal()
		}
	}
}

func (b *BackgroundReader) finish(err error) {
	b.mu.Lock()
	b.done = true
	b.err = err
	b.mu.Unlock()
	if b.bounded != nil {
		close(b.bounded)
	}
	b.signal()
}

func (b *BackgroundReader) signal() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// NextNode blocks until a node is available, the producer fails, or the
// upstream is exhausted.
func (b *BackgroundReader) NextNode() (Node, error) {
	if b.bounded != nil {
		n, ok := <-b.bounded
		if ok {
			return n, nil
		}
		return Node{}, b.terminal()
	}
	for {
		b.mu.Lock()
		if !b.queue.IsEmpty() {
			n, err := b.queue.Dequeue()
			b.mu.Unlock()
			return n, err
		}
		done := b.done
		b.mu.Unlock()
		if done {
			return Node{}, b.terminal()
		}
		<-b.ready
	}
}

func (b *BackgroundReader) terminal() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	return io.EOF
}

// Close signals the producer to stop. It does not wait for a producer
// blocked inside the upstream Source; use Wait for that.
func (b *BackgroundReader) Close() error {
	b.cancel()
	return nil
}

// Wait blocks until the producer has returned and reports its error.
func (b *BackgroundReader) Wait() error {
	return b.group.Wait()
}
