package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/docmentor/backend/internal/service/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/intake"
	"github.com/zhouzirui/docmentor/backend/internal/service/tutor"
)

func askCmd() *cobra.Command {
	var (
		selection bool
		speak     bool
		voice     string
	)

	cmd := &cobra.Command{
		Use:   "ask <file> <question>",
		Short: "Ask one question about a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			extracted, err := readDocument(args[0])
			if err != nil {
				return err
			}

			store := chatservice.NewService(chatservice.Config{
				HistoryLimit: cfg.Document.HistoryLimit,
				MaxChars:     cfg.Document.MaxChars,
			})
			session, err := store.CreateSession(cmd.Context(), chat.DocumentContext{
				Name:      filepath.Base(args[0]),
				RawText:   extracted.Text,
				PageCount: extracted.PageCount,
			})
			if err != nil {
				return err
			}

			aiSvc, err := newGenerator(cmd.Context(), cfg.AI)
			if err != nil {
				return err
			}
			var gen tutor.Generator
			if aiSvc != nil {
				gen = aiSvc
			}
			in := intake.New(tutor.New(store, gen))

			var reply chat.Message
			if selection {
				reply, err = in.Selection(cmd.Context(), session.ID, args[1])
			} else {
				reply, err = in.Question(cmd.Context(), session.ID, args[1])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)

			if speak {
				speaker, err := newCLISpeaker(cfg.Speech, "")
				if err != nil {
					return err
				}
				speaker.Speak(reply.Text, voice)
				speaker.Wait()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&selection, "selection", false, "treat the text as a highlighted selection to explain")
	cmd.Flags().BoolVar(&speak, "speak", false, "read the answer aloud")
	cmd.Flags().StringVar(&voice, "voice", "", "voice id or name (Rachel, Domi, Bella, Elli, Josh, Arnold, Adam)")
	return cmd
}
