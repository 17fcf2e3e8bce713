package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/docmentor/backend/internal/config"
	"github.com/zhouzirui/docmentor/backend/internal/service/speech"
)

func speakCmd() *cobra.Command {
	var (
		voice string
		out   string
	)

	cmd := &cobra.Command{
		Use:   "speak <text>",
		Short: "Synthesize text with ElevenLabs, falling back to SPEECH_LOCAL_COMMAND",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			speaker, err := newCLISpeaker(cfg.Speech, out)
			if err != nil {
				return err
			}
			speaker.Speak(args[0], voice)
			speaker.Wait()
			return nil
		},
	}
	cmd.Flags().StringVar(&voice, "voice", "", "voice id or name")
	cmd.Flags().StringVarP(&out, "out", "o", "speech.mp3", "where to write remote audio")
	return cmd
}

// cliSpeaker waits for both remote requests and the local speech process.
type cliSpeaker struct {
	*speech.Speaker
	local *speech.CommandSynthesizer
}

func (s *cliSpeaker) Wait() {
	s.Speaker.Wait()
	if s.local != nil {
		s.local.Wait()
	}
}

// newCLISpeaker 远程音频写入文件，本地朗读使用 SPEECH_LOCAL_COMMAND
func newCLISpeaker(cfg config.SpeechConfig, out string) (*cliSpeaker, error) {
	if out == "" {
		out = "speech.mp3"
	}

	var (
		local    speech.LocalSynthesizer
		cmdSynth *speech.CommandSynthesizer
	)
	synth, err := speech.NewCommandSynthesizer(cfg.LocalCommand)
	switch {
	case err == nil:
		local, cmdSynth = synth, synth
	case errors.Is(err, speech.ErrNoLocalCommand):
		log.Println("[speech] SPEECH_LOCAL_COMMAND not set, local fallback disabled")
	default:
		return nil, err
	}

	player := speech.PlayerFunc(func(audio []byte) error {
		if err := os.WriteFile(out, audio, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %d bytes of audio to %s\n", len(audio), out)
		return nil
	})

	return &cliSpeaker{
		Speaker: speech.NewService(cfg).NewSpeaker(local, player),
		local:   cmdSynth,
	}, nil
}
