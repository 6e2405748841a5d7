// Package cli defines the hinabot command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seagata/hinabot/internal/app"
	"github.com/seagata/hinabot/internal/brief"
	"github.com/seagata/hinabot/internal/config"
	"github.com/seagata/hinabot/internal/notify"
)

const version = "0.1.0"

func NewRoot(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "hinabot",
		Short: "Hinabot is a persona chat bot for Telegram",
	}

	root.AddCommand(newServeCommand(logger))
	root.AddCommand(newExportCommand(logger))
	root.AddCommand(newNotifyCommand(logger))
	root.AddCommand(newChatCommand(logger))
	root.AddCommand(newTurnsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newServeCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot against Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			runtime, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer runtime.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runtime.Run(ctx)
		},
	}
}

func newExportCommand(logger *slog.Logger) *cobra.Command {
	var (
		inputPath  string
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a markdown brief to a styled PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			who := app.BuildPersona(cfg, logger)
			exporter := brief.New(brief.Config{
				Title:     "OPERATIONAL DIRECTIVE",
				Subtitle:  fmt.Sprintf("PREPARED BY %s // PERSONAL DIVISION", strings.ToUpper(who.Name)),
				FooterTag: fmt.Sprintf("FOR %s-%s ONLY", strings.ToUpper(who.Operator), strings.ToUpper(who.Honorific)),
				Author:    who.Name,
			}, logger)

			in := strings.TrimSpace(inputPath)
			if in == "" {
				in = cfg.DataDir + "/response.md"
			}
			out := strings.TrimSpace(outputPath)
			if out == "" {
				out = brief.OutputName(cfg.ExportDir, time.Now())
			}
			if err := exporter.Export(in, out); err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "markdown file to render (default: data dir response.md)")
	cmd.Flags().StringVar(&outputPath, "output", "", "PDF path to write (default: dated name in export dir)")
	return cmd
}

func newNotifyCommand(logger *slog.Logger) *cobra.Command {
	var attachmentPath string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Mail a brief to the configured recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			notifier := notify.New(notify.Config{
				Host:     cfg.SMTPHost,
				Port:     cfg.SMTPPort,
				Username: cfg.SMTPUsername,
				Password: cfg.SMTPPassword,
				From:     cfg.SMTPFrom,
				To:       cfg.SMTPTo,
			}, logger)

			attachment := strings.TrimSpace(attachmentPath)
			if attachment == "" {
				attachment = brief.OutputName(cfg.ExportDir, time.Now())
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := notifier.Send(ctx, attachment); err != nil {
				return err
			}
			cmd.Println("sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&attachmentPath, "attachment", "", "PDF to mail (default: today's brief in export dir)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
