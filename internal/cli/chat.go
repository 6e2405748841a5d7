package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seagata/hinabot/internal/app"
	"github.com/seagata/hinabot/internal/config"
	"github.com/seagata/hinabot/internal/persona"
)

func newChatCommand(logger *slog.Logger) *cobra.Command {
	var (
		senderName string
		chatID     string
		timeoutSec int
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the bot locally, without Telegram",
		Long:  "One-shot when a message is given, otherwise an interactive prompt. Uses the same dispatcher as serve.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			runtime, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer runtime.Close()
			dispatcher := runtime.Dispatcher()

			sender := strings.TrimSpace(senderName)
			if sender == "" {
				sender = cfg.PrivilegedSender
			}
			emit := func(_ context.Context, text string) error {
				cmd.Println(text)
				return nil
			}
			handleOne := func(parent context.Context, text string) error {
				ctx, cancel := context.WithTimeout(parent, boundedTimeout(timeoutSec))
				defer cancel()
				return dispatcher.Handle(ctx, persona.Message{
					SenderName: sender,
					SenderID:   "local",
					ChatID:     chatID,
					ChatKind:   persona.KindDirect,
					Text:       text,
				}, emit)
			}

			rootCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if text := strings.TrimSpace(strings.Join(args, " ")); text != "" {
				return handleOne(rootCtx, text)
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				cmd.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}
				if err := handleOne(rootCtx, line); err != nil {
					cmd.PrintErrln("error:", err)
				}
				if rootCtx.Err() != nil {
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVar(&senderName, "sender", "", "sender display name (default: privileged sender)")
	cmd.Flags().StringVar(&chatID, "chat", "local", "conversation key to use for history")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 300, "per-message timeout in seconds")
	return cmd
}

func boundedTimeout(seconds int) time.Duration {
	if seconds < 1 {
		seconds = 300
	}
	if seconds > 1800 {
		seconds = 1800
	}
	return time.Duration(seconds) * time.Second
}
