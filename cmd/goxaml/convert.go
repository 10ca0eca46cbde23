package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/untillpro/goutils/logger"

	"github.com/reoring/goxaml/codec"
	"github.com/reoring/goxaml/node"
)

func newConvertCmd() *cobra.Command {
	var to, out string
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Re-encode a node document as JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := inputOptions(args[0])
			if err != nil {
				return err
			}
			var dst codec.Options
			switch {
			case to != "":
				if dst.Format, err = codec.ParseFormat(to); err != nil {
					return err
				}
			case out != "" && out != "-":
				dst.Format, dst.Compress = codec.DetectFormat(out)
			default:
				if dst.Format, err = codec.ParseFormat(cfg.Format); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("compress") {
				dst.Compress = flagCompress
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			sctx := newContext()
			in, err := openInput(cmd.Context(), args[0], sctx, from)
			if err != nil {
				return err
			}
			defer in.Close()
			sink, err := codec.NewSink(w, sctx, dst)
			if err != nil {
				return err
			}
			if err := node.Transform(cmd.Context(), sink, in); err != nil {
				return fmt.Errorf("converting %s: %w", args[0], err)
			}
			logger.Info("convert:", args[0], from.Format.String(), "->", dst.Format.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "output format: json|yaml (default: from -o, then the config)")
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file")
	return cmd
}
