package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/untillpro/goutils/logger"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/node"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a node document for ordering, duplicate members and depth",
		Long:  "Decodes FILE (- for stdin) and runs it through the text-mode state machine. Issues are printed with the node position they were found at.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := inputOptions(args[0])
			if err != nil {
				return err
			}
			opt.Strict = true
			in, err := openInput(cmd.Context(), args[0], newContext(), opt)
			if err != nil {
				return err
			}
			defer in.Close()
			nodes, err := node.Copy(cmd.Context(), discard{}, in)
			if err != nil {
				if iss, ok := goxaml.AsIssues(err); ok {
					for _, it := range iss {
						fmt.Fprintln(cmd.ErrOrStderr(), formatIssue(it))
					}
					return fmt.Errorf("%s: %d issue(s)", args[0], len(iss))
				}
				return err
			}
			logger.Info("validate:", args[0], "nodes:", nodes)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d nodes)\n", args[0], nodes)
			return nil
		},
	}
}

func formatIssue(it goxaml.Issue) string {
	if it.Line > 0 {
		return fmt.Sprintf("%d:%d: %s [%s] at %s", it.Line, it.Position, it.Message, it.Code, it.Path)
	}
	return fmt.Sprintf("%s [%s] at %s", it.Message, it.Code, it.Path)
}
