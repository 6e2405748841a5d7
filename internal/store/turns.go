package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Turn struct {
	ID              string
	ConversationKey string
	ChatKind        string
	SenderName      string
	Mode            string
	Model           string
	PromptChars     int
	ReplyChars      int
	Latency         time.Duration
	ErrorMessage    string
	CreatedAt       time.Time
}

type RecordTurnInput struct {
	ConversationKey string
	ChatKind        string
	SenderName      string
	Mode            string
	Model           string
	PromptChars     int
	ReplyChars      int
	Latency         time.Duration
	ErrorMessage    string
}

type ListTurnsInput struct {
	ConversationKey string
	Mode            string
	FailedOnly      bool
	Limit           int
}

func (s *Store) RecordTurn(ctx context.Context, input RecordTurnInput) (Turn, error) {
	now := time.Now().UTC()
	record := Turn{
		ID:              "turn_" + uuid.NewString(),
		ConversationKey: strings.TrimSpace(input.ConversationKey),
		ChatKind:        strings.ToLower(strings.TrimSpace(input.ChatKind)),
		SenderName:      strings.TrimSpace(input.SenderName),
		Mode:            strings.ToLower(strings.TrimSpace(input.Mode)),
		Model:           strings.TrimSpace(input.Model),
		PromptChars:     input.PromptChars,
		ReplyChars:      input.ReplyChars,
		Latency:         input.Latency,
		ErrorMessage:    strings.TrimSpace(input.ErrorMessage),
		CreatedAt:       now,
	}
	if record.ConversationKey == "" || record.ChatKind == "" || record.Mode == "" {
		return Turn{}, fmt.Errorf("missing required turn fields")
	}

	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO turns (
			id, conversation_key, chat_kind, sender_name, mode, model, prompt_chars, reply_chars, latency_ms, error_message, created_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ConversationKey,
		record.ChatKind,
		record.SenderName,
		record.Mode,
		nullIfEmpty(record.Model),
		record.PromptChars,
		record.ReplyChars,
		record.Latency.Milliseconds(),
		nullIfEmpty(record.ErrorMessage),
		record.CreatedAt.Unix(),
	); err != nil {
		return Turn{}, fmt.Errorf("insert turn: %w", err)
	}
	return record, nil
}

func (s *Store) ListTurns(ctx context.Context, input ListTurnsInput) ([]Turn, error) {
	limit := input.Limit
	if limit < 1 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	whereParts := []string{"1=1"}
	args := make([]any, 0, 4)
	if key := strings.TrimSpace(input.ConversationKey); key != "" {
		whereParts = append(whereParts, "conversation_key = ?")
		args = append(args, key)
	}
	if mode := strings.ToLower(strings.TrimSpace(input.Mode)); mode != "" {
		whereParts = append(whereParts, "mode = ?")
		args = append(args, mode)
	}
	if input.FailedOnly {
		whereParts = append(whereParts, "error_message IS NOT NULL")
	}
	args = append(args, limit)

	query := `SELECT id, conversation_key, chat_kind, sender_name, mode, model, prompt_chars, reply_chars, latency_ms, error_message, created_at_unix
		FROM turns
		WHERE ` + strings.Join(whereParts, " AND ") + `
		ORDER BY created_at_unix DESC, id DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	turns := make([]Turn, 0, limit)
	for rows.Next() {
		var (
			record       Turn
			model        sql.NullString
			errorMessage sql.NullString
			latencyMS    int64
			createdUnix  int64
		)
		if err := rows.Scan(
			&record.ID,
			&record.ConversationKey,
			&record.ChatKind,
			&record.SenderName,
			&record.Mode,
			&model,
			&record.PromptChars,
			&record.ReplyChars,
			&latencyMS,
			&errorMessage,
			&createdUnix,
		); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		record.Model = model.String
		record.ErrorMessage = errorMessage.String
		record.Latency = time.Duration(latencyMS) * time.Millisecond
		record.CreatedAt = time.Unix(createdUnix, 0).UTC()
		turns = append(turns, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}
