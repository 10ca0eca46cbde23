package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/untillpro/goutils/logger"

	"github.com/reoring/goxaml/schema"
)

var (
	flagConfig   string
	flagVerbose  bool
	flagCompress bool
	flagFrom     string

	cfg = defaultConfig()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "goxaml",
		Short:         "Inspect and convert object node documents",
		Long:          "goxaml validates, converts and summarizes node documents written by the goxaml codec in JSON or YAML, optionally zstd-compressed.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(flagConfig)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("compress") {
				loaded.Compress = flagCompress
			}
			if flagVerbose {
				loaded.LogLevel = "verbose"
			}
			level, err := parseLogLevel(loaded.LogLevel)
			if err != nil {
				return err
			}
			logger.SetLogLevel(level)
			cfg = loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "TOML config file")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().BoolVar(&flagCompress, "compress", false, "treat input and output as zstd-compressed regardless of file name")
	root.PersistentFlags().StringVar(&flagFrom, "from", "", "input format: json|yaml (default: from the file name)")

	root.AddCommand(newValidateCmd(), newConvertCmd(), newStatsCmd())
	return root
}

// newContext returns the schema context documents are resolved against.
// Types no Go program registered resolve to placeholders, which is all the
// CLI needs to carry nodes.
func newContext() *schema.Context { return schema.NewContext() }
