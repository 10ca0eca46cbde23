package main

import (
	"context"
	"io"
	"os"

	"github.com/reoring/goxaml/codec"
	"github.com/reoring/goxaml/schema"
)

// inputOptions derives codec options for path ("-" is stdin) from the
// file name, the config and the flags, in increasing precedence.
func inputOptions(path string) (codec.Options, error) {
	opt := codec.Options{MaxDepth: cfg.MaxDepth, QueueCapacity: cfg.QueueCapacity}
	if path == "-" {
		f, err := codec.ParseFormat(cfg.Format)
		if err != nil {
			return opt, err
		}
		opt.Format = f
	} else {
		opt.Format, opt.Compress = codec.DetectFormat(path)
	}
	if cfg.Compress {
		opt.Compress = true
	}
	if flagFrom != "" {
		f, err := codec.ParseFormat(flagFrom)
		if err != nil {
			return opt, err
		}
		opt.Format = f
	}
	return opt, nil
}

type input struct {
	*codec.Source
	file io.Closer
}

func (in *input) Close() error {
	err := in.Source.Close()
	if in.file != nil {
		if cerr := in.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func openInput(ctx context.Context, path string, sctx *schema.Context, opt codec.Options) (*input, error) {
	var r io.Reader = os.Stdin
	var file io.Closer
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r, file = f, f
	}
	src, err := codec.NewSource(ctx, r, sctx, opt)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, err
	}
	return &input{Source: src, file: file}, nil
}
