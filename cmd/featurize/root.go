package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "featurize",
		Short: "featurize - encode tabular records as feature vectors",
		Long: `featurize converts CSV records into fixed-length numeric feature vectors
against a precomputed column summary: numeric columns are copied or
standardized, categorical columns are one-hot encoded, identifier and
ignored columns are dropped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "featurize v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newEncodeCmd())
	root.AddCommand(newInspectCmd())

	return root
}
