package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chat-widget/handler"
	"chat-widget/internal/config"
	"chat-widget/internal/integrations/openai"
	"chat-widget/internal/integrations/paramstore"
	"chat-widget/internal/repository"
	"chat-widget/internal/usecase"
)

const localParamPrefix = "/local"

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the widget page and the chat endpoint locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

func newLocalHandler(cfg config.Config) (*handler.Handler, error) {
	logger := cfg.NewLogger(os.Stderr)

	// Prompt and model come from the environment instead of SSM.
	params := paramstore.Static{
		localParamPrefix + "/system_prompt":       cfg.SystemPrompt,
		localParamPrefix + "/config/openai_model": cfg.OpenAIModel,
	}

	openaiOpts := []openai.Option{
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithAPIKey(cfg.OpenAIAPIKey),
	}
	if cfg.OpenAITemperature != nil {
		openaiOpts = append(openaiOpts, openai.WithTemperature(*cfg.OpenAITemperature))
	}
	llm, err := openai.NewClient(nil, "", openaiOpts...)
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}

	svc, err := usecase.NewChatService(params, llm, repository.NewMemory(), localParamPrefix, cfg.MaxContextItems, cfg.MaxMessageLen)
	if err != nil {
		return nil, fmt.Errorf("create chat service: %w", err)
	}
	return handler.NewHandler(svc, handler.WithLogger(logger))
}

func serve(ctx context.Context, cfg config.Config) error {
	h, err := newLocalHandler(cfg)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("chat server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down chat server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
