package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"tchatsouvenir/bookshop/internal/chatexport"
)

type extractFlags struct {
	platform     string
	file         string
	from         string
	to           string
	participants []string
	stripEmojis  bool
	maxArchive   int64
}

func newExtractCmd() *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the messages and summary of a chat export as JSON",
		Example: `  chatbook extract --platform whatsapp --file chat.zip
  chatbook extract --platform messenger --file message_1.json --from 2024-01-01 --strip-emojis`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ex, err := f.extract(cmd)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ex)
		},
	}
	f.register(cmd)
	return cmd
}

func (f *extractFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.platform, "platform", "p", "whatsapp", "whatsapp, messenger or instagram")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "export file (.txt, .json or .zip)")
	cmd.Flags().StringVar(&f.from, "from", "", "keep messages on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "keep messages on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&f.participants, "participant", nil, "keep only these senders (repeatable)")
	cmd.Flags().BoolVar(&f.stripEmojis, "strip-emojis", false, "remove emojis from message text")
	cmd.Flags().Int64Var(&f.maxArchive, "max-archive", chatexport.DefaultMaxArchiveSize, "uncompressed archive size limit in bytes")
	_ = cmd.MarkFlagRequired("file")
}

func (f *extractFlags) extract(cmd *cobra.Command) (*chatexport.Extraction, error) {
	platform, err := chatexport.ParsePlatform(f.platform)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.file)
	if err != nil {
		return nil, err
	}

	filter := chatexport.Filter{
		Participants: f.participants,
		StripEmojis:  f.stripEmojis,
	}
	if filter.From, err = parseDay(f.from, false); err != nil {
		return nil, fmt.Errorf("--from: %w", err)
	}
	if filter.To, err = parseDay(f.to, true); err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}

	return chatexport.Extract(cmd.Context(), platform, filepath.Base(f.file), data, filter, chatexport.ArchiveOptions{
		MaxUncompressed: f.maxArchive,
	})
}

// parseDay reads a YYYY-MM-DD date in UTC. With endOfDay the last
// nanosecond of that day is returned.
func parseDay(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
