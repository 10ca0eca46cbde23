package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	j "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/goxaml/node"
)

type memberStat struct {
	Member string `json:"member"`
	Nodes  int    `json:"nodes"`
}

type docStats struct {
	Nodes    int            `json:"nodes"`
	Kinds    map[string]int `json:"kinds"`
	MaxDepth int            `json:"maxDepth"`
	Root     string         `json:"root,omitempty"`
	Members  []memberStat   `json:"members,omitempty"`

	depth int
}

func (s *docStats) tally(n node.Node) {
	s.Nodes++
	s.Kinds[n.Kind.String()]++
	switch n.Kind {
	case node.StartObject, node.GetObject:
		s.depth++
		if s.depth > s.MaxDepth {
			s.MaxDepth = s.depth
		}
	case node.EndObject:
		s.depth--
	}
}

// collectStats counts the nodes of src. Each member of the root object is
// read as its own subtree so its size can be reported.
func collectStats(src node.Source) (*docStats, error) {
	s := &docStats{Kinds: map[string]int{}}
	for {
		n, err := src.NextNode()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return s, err
		}
		if n.Kind == node.StartMember && s.depth == 1 {
			nodes, err := node.Collect(node.ReadSubtreeFrom(n, src))
			for _, sn := range nodes {
				s.tally(sn)
			}
			if err != nil {
				return s, err
			}
			s.Members = append(s.Members, memberStat{Member: n.Member.Name(), Nodes: len(nodes)})
			continue
		}
		if n.Kind == node.StartObject && s.depth == 0 && n.Type != nil {
			s.Root = n.Type.String()
		}
		s.tally(n)
	}
}

func newStatsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Summarize a node document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := inputOptions(args[0])
			if err != nil {
				return err
			}
			opt.Background = true
			in, err := openInput(cmd.Context(), args[0], newContext(), opt)
			if err != nil {
				return err
			}
			defer in.Close()
			s, err := collectStats(in)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				b, err := j.Marshal(s)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, string(b))
				return err
			}
			fmt.Fprintf(w, "root:      %s\n", s.Root)
			fmt.Fprintf(w, "nodes:     %d\n", s.Nodes)
			fmt.Fprintf(w, "max depth: %d\n", s.MaxDepth)
			kinds := make([]string, 0, len(s.Kinds))
			for k := range s.Kinds {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				fmt.Fprintf(w, "  %-22s %d\n", k, s.Kinds[k])
			}
			for _, m := range s.Members {
				fmt.Fprintf(w, "  member %-15s %d\n", m.Member, m.Nodes)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
