package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/docmentor/backend/internal/config"
	"github.com/zhouzirui/docmentor/backend/internal/service/ai"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var timeout time.Duration

	root := &cobra.Command{
		Use:   "doctester",
		Short: "Exercise document extraction, description, tutoring and speech from the command line",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if err := godotenv.Load(); err != nil {
				log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			cobra.OnFinalize(cancel)
			cmd.SetContext(ctx)
		},
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline for the command")

	root.AddCommand(extractCmd(), describeCmd(), askCmd(), speakCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("配置加载失败: %w", err)
	}
	return cfg, nil
}

// newGenerator returns nil when no model credentials are configured.
func newGenerator(ctx context.Context, cfg config.AIConfig) (*ai.Service, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	chatModel, err := ai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ai.NewService(ctx, chatModel, cfg.Timeout)
}
