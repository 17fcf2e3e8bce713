package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/docmentor/backend/internal/service/describe"
)

func describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <file>",
		Short: "Summarize a document in 2-3 sentences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			extracted, err := readDocument(args[0])
			if err != nil {
				return err
			}

			aiSvc, err := newGenerator(cmd.Context(), cfg.AI)
			if err != nil {
				return err
			}
			var gen describe.Generator
			if aiSvc != nil {
				gen = aiSvc
			}

			svc := describe.NewService(gen, cfg.Document.MaxChars)
			fmt.Fprintln(cmd.OutOrStdout(), svc.Describe(cmd.Context(), extracted.Text))
			return nil
		},
	}
}
