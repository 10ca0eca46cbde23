package codec

import (
	"context"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/reoring/goxaml/internal/engine"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/objectreader"
	"github.com/reoring/goxaml/objectwriter"
	"github.com/reoring/goxaml/schema"
	"github.com/reoring/goxaml/source/json"
	"github.com/reoring/goxaml/source/yaml"
)

// Options configures the facade.
type Options struct {
	Format   Format
	Compress bool

	// Strict validates decoded documents in text mode, rejecting members
	// written twice and nesting deeper than MaxDepth.
	Strict   bool
	MaxDepth int

	// Background decodes on a producer goroutine. QueueCapacity bounds the
	// hand-off buffer; zero means unbounded.
	Background    bool
	QueueCapacity int

	Reader objectreader.Settings
	Writer objectwriter.Settings
}

// Source is a node.Source over an encoded document. Close releases the
// decompressor and stops background decoding.
type Source struct {
	node.Source
	closers []func() error
}

func (s *Source) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// NewSource decodes the document in r.
func NewSource(ctx context.Context, r io.Reader, sctx *schema.Context, opt Options) (*Source, error) {
	s := &Source{}
	if opt.Compress {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { dec.Close(); return nil })
		r = dec
	}
	switch opt.Format {
	case FormatYAML:
		s.Source = yaml.NewDecoder(r, sctx)
	default:
		s.Source = json.NewDecoder(r, sctx)
	}
	if opt.Strict {
		s.Source = engine.Enforce(s.Source, engine.EnforceOptions{
			Settings: engine.TextSettings(),
			MaxDepth: opt.MaxDepth,
		})
	}
	if opt.Background {
		br := node.NewBackgroundReader(ctx, s.Source, node.BackgroundOptions{Capacity: opt.QueueCapacity})
		s.closers = append(s.closers, func() error {
			_ = br.Close()
			return br.Wait()
		})
		s.Source = br
	}
	return s, nil
}

// Sink is a node.Writer producing an encoded document. Close finishes the
// document and flushes the compressor.
type Sink struct {
	node.Writer
	zw *zstd.Encoder
}

func (s *Sink) Close() error {
	err := s.Writer.Close()
	if s.zw != nil {
		if cerr := s.zw.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NewSink encodes to w.
func NewSink(w io.Writer, sctx *schema.Context, opt Options) (*Sink, error) {
	s := &Sink{}
	if opt.Compress {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		s.zw, w = zw, zw
	}
	switch opt.Format {
	case FormatYAML:
		s.Writer = yaml.NewEncoder(w, sctx)
	default:
		s.Writer = json.NewEncoder(w, sctx)
	}
	return s, nil
}
