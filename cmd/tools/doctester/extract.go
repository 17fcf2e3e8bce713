package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/docmentor/backend/internal/document"
)

func extractCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the text extracted from a PDF, TXT, MD or DOCX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extracted, err := readDocument(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pages: %d\n\n", extracted.PageCount)
			fmt.Fprintln(out, document.Truncate(extracted.Text, limit))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", document.DefaultTruncateLimit, "truncate the printed text to this many characters")
	return cmd
}

func readDocument(path string) (document.Extracted, error) {
	info, err := os.Stat(path)
	if err != nil {
		return document.Extracted{}, err
	}
	if _, err := document.Validate(filepath.Base(path), info.Size(), document.DefaultMaxUploadBytes); err != nil {
		return document.Extracted{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return document.Extracted{}, err
	}
	return document.Extract(filepath.Base(path), data)
}
