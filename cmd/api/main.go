package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/docmentor/backend/internal/config"
	"github.com/zhouzirui/docmentor/backend/internal/handler"
	"github.com/zhouzirui/docmentor/backend/internal/model/library"
	"github.com/zhouzirui/docmentor/backend/internal/service/ai"
	"github.com/zhouzirui/docmentor/backend/internal/service/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/describe"
	"github.com/zhouzirui/docmentor/backend/internal/service/intake"
	"github.com/zhouzirui/docmentor/backend/internal/service/speech"
	"github.com/zhouzirui/docmentor/backend/internal/service/tutor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	libraryStore := library.NewMemoryStore(library.Seed())
	chatService := chat.NewService(chat.Config{
		HistoryLimit: cfg.Document.HistoryLimit,
		MaxChars:     cfg.Document.MaxChars,
	})

	// Initialize AI service
	var (
		tutorGen    tutor.Generator
		describeGen describe.Generator
	)
	if cfg.AI.Enabled() {
		aiService, err := newAIService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality")
		} else {
			tutorGen, describeGen = aiService, aiService
			log.Printf("AI service initialized provider=%s model=%s", cfg.AI.Provider, cfg.AI.Model)
		}
	} else {
		log.Println("AI credentials not configured, answers will report the missing key")
	}

	tutorService := tutor.New(chatService, tutorGen)
	intakeService := intake.New(tutorService)
	describeService := describe.NewService(describeGen, cfg.Document.MaxChars)

	speechService := speech.NewService(cfg.Speech)
	if speechService.RemoteEnabled() {
		log.Println("ElevenLabs speech enabled")
	} else {
		log.Println("ELEVENLABS_API_KEY not set, speech falls back to the browser voice")
	}

	router := handler.NewRouter(handler.Services{
		Library:        libraryStore,
		Chat:           chatService,
		Describer:      describeService,
		Intake:         intakeService,
		Speech:         speechService,
		MaxUploadBytes: cfg.Document.UploadMaxBytes,
	})

	startServer(ctx, cfg.Server, router)
}

func newAIService(ctx context.Context, cfg config.AIConfig) (*ai.Service, error) {
	chatModel, err := ai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ai.NewService(ctx, chatModel, cfg.Timeout)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("DocMentor backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
