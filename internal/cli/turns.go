package cli

import (
	"github.com/spf13/cobra"

	"github.com/seagata/hinabot/internal/config"
	"github.com/seagata/hinabot/internal/store"
)

func newTurnsCommand() *cobra.Command {
	var (
		conversationKey string
		mode            string
		failedOnly      bool
		limit           int
	)
	cmd := &cobra.Command{
		Use:   "turns",
		Short: "List recent turns from the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			sqlStore, err := store.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer sqlStore.Close()

			turns, err := sqlStore.ListTurns(cmd.Context(), store.ListTurnsInput{
				ConversationKey: conversationKey,
				Mode:            mode,
				FailedOnly:      failedOnly,
				Limit:           limit,
			})
			if err != nil {
				return err
			}
			for _, turn := range turns {
				line := turn.CreatedAt.Format("2006-01-02 15:04:05") + "  " + turn.Mode + "  " + turn.ConversationKey
				if turn.Model != "" {
					line += "  " + turn.Model
				}
				if turn.ErrorMessage != "" {
					line += "  error: " + turn.ErrorMessage
				}
				cmd.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&conversationKey, "chat", "", "only turns for this conversation key")
	cmd.Flags().StringVar(&mode, "mode", "", "only turns with this response mode")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "only turns that ended in an error")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of turns to list")
	return cmd
}
