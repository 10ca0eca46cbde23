// Package codec saves object graphs as node documents and loads them back,
// gluing objectreader, the text adapters and objectwriter together.
package codec

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/untillpro/goutils/logger"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/objectreader"
	"github.com/reoring/goxaml/objectwriter"
	"github.com/reoring/goxaml/schema"
)

// Save writes the graph rooted at v to w.
func Save(ctx context.Context, v any, w io.Writer, sctx *schema.Context, opt Options) error {
	r, err := objectreader.New(v, sctx, opt.Reader)
	if err != nil {
		return err
	}
	defer r.Close()
	sink, err := NewSink(w, sctx, opt)
	if err != nil {
		return err
	}
	if err := node.Transform(ctx, sink, r); err != nil {
		return err
	}
	if logger.IsVerbose() {
		logger.Verbose("codec: saved", fmt.Sprintf("%T", v), "as", opt.Format.String())
	}
	return nil
}

// Load builds the graph held in the document read from r.
func Load(ctx context.Context, r io.Reader, sctx *schema.Context, opt Options) (any, error) {
	src, err := NewSource(ctx, r, sctx, opt)
	if err != nil {
		return nil, err
	}
	v, err := objectwriter.Build(ctx, src, sctx, opt.Writer)
	if cerr := src.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// LoadAs is Load returning the root as T. Roots built behind a pointer are
// dereferenced when T is not a pointer.
func LoadAs[T any](ctx context.Context, r io.Reader, sctx *schema.Context, opt Options) (T, error) {
	v, err := Load(ctx, r, sctx, opt)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v)
}

// Convert re-encodes a document from one format to another without building
// objects.
func Convert(ctx context.Context, r io.Reader, w io.Writer, sctx *schema.Context, from, to Options) error {
	src, err := NewSource(ctx, r, sctx, from)
	if err != nil {
		return err
	}
	defer src.Close()
	sink, err := NewSink(w, sctx, to)
	if err != nil {
		return err
	}
	return node.Transform(ctx, sink, src)
}

// Clone deep-copies the graph rooted at v by piping its nodes straight into
// an object writer. Shared references stay shared.
func Clone(ctx context.Context, v any, sctx *schema.Context, opt Options) (any, error) {
	r, err := objectreader.New(v, sctx, opt.Reader)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return objectwriter.Build(ctx, r, sctx, opt.Writer)
}

// CloneAs is Clone for a typed root.
func CloneAs[T any](ctx context.Context, v T, sctx *schema.Context, opt Options) (T, error) {
	out, err := Clone(ctx, v, sctx, opt)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](out)
}

func as[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var zero T
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if t, ok := rv.Elem().Interface().(T); ok {
			return t, nil
		}
	}
	return zero, goxaml.Fail(goxaml.CodeTypeMismatch, "/",
		"value", fmt.Sprint(v), "actual", fmt.Sprintf("%T", v), "expected", reflect.TypeFor[T]().String())
}
