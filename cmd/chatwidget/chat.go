package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chat-widget/internal/chatclient"
	"chat-widget/internal/tui"
	"chat-widget/internal/widget"
)

func newChatCmd() *cobra.Command {
	var (
		endpoint       string
		transcriptPath string
		logPath        string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the chat widget in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if endpoint != "" {
				cfg.ChatEndpoint = endpoint
			}
			if err := cfg.ValidateWidget(); err != nil {
				return err
			}

			// The terminal belongs to the widget; logs go to a file or nowhere.
			logOut, err := openLog(logPath)
			if err != nil {
				return err
			}
			defer func() { _ = logOut.Close() }()
			logger := cfg.NewLogger(logOut)

			client, err := chatclient.New(cfg.ChatEndpoint)
			if err != nil {
				return err
			}

			transcript, runErr := tui.Run(cmd.Context(), client,
				widget.WithScrollDelay(cfg.ScrollDelay),
				widget.WithDiscardStale(cfg.DiscardStale),
				widget.WithLogger(logger),
			)
			if transcript != nil && transcriptPath != "" {
				if err := writeTranscript(transcriptPath, transcript); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "chat endpoint base URL (overrides CHAT_ENDPOINT)")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "write the conversation as HTML to this file on exit")
	cmd.Flags().StringVar(&logPath, "log-file", "", "write logs to this file")
	return cmd
}

func openLog(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func writeTranscript(path string, t *widget.Transcript) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript file: %w", err)
	}
	if err := t.WriteDocument(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
