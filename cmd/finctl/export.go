package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/garyjia/finnexus/internal/application/service"
)

func newExportCmd(a *app) *cobra.Command {
	var filter service.InvoiceFilter

	cmd := &cobra.Command{
		Use:   "export <out.xlsx>",
		Short: "Export the invoice list to an XLSX file",
		Example: `  finctl export invoices.xlsx
  finctl export pending.xlsx --status Pending --search tech`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()

			n, err := a.container.Services().Dashboard.Export(cmd.Context(), filter, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d invoices to %s\n", n, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Search, "search", "", "match client name or invoice number")
	cmd.Flags().StringVar(&filter.Status, "status", service.StatusAll, "invoice status, or All")
	return cmd
}
