package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tchatsouvenir/bookshop/internal/bookgen"
)

func newRenderCmd() *cobra.Command {
	var (
		f      extractFlags
		design bookgen.Design
		out    string
	)
	cmd := &cobra.Command{
		Use:     "render",
		Short:   "Render a chat export into an HTML book",
		Example: `  chatbook render --file chat.txt --title "Nos souvenirs" --out book.html`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ex, err := f.extract(cmd)
			if err != nil {
				return err
			}
			if len(ex.Messages) == 0 {
				return fmt.Errorf("no messages left after filtering")
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if err := bookgen.Render(w, design, ex.Messages); err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d messages to %s\n", len(ex.Messages), out)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&design.CoverTitle, "title", "", "cover title")
	cmd.Flags().StringVar(&design.CoverSubtitle, "subtitle", "", "cover subtitle")
	cmd.Flags().StringVar(&design.CoverColor, "cover-color", "", "cover color (#rrggbb)")
	cmd.Flags().StringVar(&design.FontStyle, "font", "", "font style")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	return cmd
}
