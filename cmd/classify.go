package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Summarize and classify a message body",
		Long: `Run the message pipeline on --text, or on standard input when --text is
not given, and print the cleaned body, summary, classification and the tier
that produced them as JSON. Nothing is stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("nothing to classify: pass --text or pipe a message body")
			}

			res := newPipeline(cfg, nil).Process(cmd.Context(), text)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Message body to classify")
	return cmd
}
