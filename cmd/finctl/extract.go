package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/garyjia/finnexus/internal/application/port"
)

func newExtractCmd(a *app) *cobra.Command {
	var draft bool

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract invoice fields from an image or PDF",
		Long: `Send a document to the extraction model and print the fields it found
as JSON. Absent fields are omitted. With --draft the result is opened in
the review workflow and the resulting draft is printed instead, with
defaults filled in.`,
		Example: `  finctl extract invoice.png
  finctl extract scan.pdf --draft`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			upload := port.Document{Data: data, Filename: filepath.Base(args[0])}

			var out interface{}
			if draft {
				view, err := a.container.Services().Review.Upload(cmd.Context(), upload)
				if err != nil {
					return err
				}
				out = view.Draft
			} else {
				doc, err := a.container.Preparer().Prepare(cmd.Context(), upload)
				if err != nil {
					return err
				}
				fields, err := a.container.Extractor().ExtractDraftFields(cmd.Context(), doc.Data, doc.MimeType)
				if err != nil {
					return err
				}
				out = fields
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().BoolVar(&draft, "draft", false, "print the review draft instead of the raw fields")
	return cmd
}
