// Command chatbook extracts chat exports and renders memory books offline.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "chatbook",
		Short:        "Extract chat exports and render memory books",
		SilenceUsage: true,
	}
	root.AddCommand(newExtractCmd(), newRenderCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
