package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the financial assistant a question about the dataset",
		Example: `  finctl ask "Which invoices are overdue?"
  finctl ask 下个季度的营收预测是多少`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := a.container.Services().Assistant.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			if reply.IsError {
				return errors.New("assistant request failed")
			}
			return nil
		},
	}
}
