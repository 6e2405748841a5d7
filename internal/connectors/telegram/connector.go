// Package telegram long-polls the Bot API and feeds messages to the
// dispatcher.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/seagata/hinabot/internal/persona"
)

// Dispatcher handles one inbound message and emits each reply through the
// callback, in order.
type Dispatcher interface {
	Handle(ctx context.Context, msg persona.Message, emit func(ctx context.Context, text string) error) error
	SetTag(tag string)
}

type Connector struct {
	token       string
	apiBase     string
	pollSeconds int
	dispatcher  Dispatcher
	httpClient  *http.Client
	logger      *slog.Logger
	botUsername string
	offset      int64
}

func New(token, apiBase string, pollSeconds int, dispatcher Dispatcher, logger *slog.Logger) *Connector {
	if strings.TrimSpace(apiBase) == "" {
		apiBase = "https://api.telegram.org"
	}
	if pollSeconds < 1 {
		pollSeconds = 25
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		token:       strings.TrimSpace(token),
		apiBase:     strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		pollSeconds: pollSeconds,
		dispatcher:  dispatcher,
		httpClient: &http.Client{
			Timeout: time.Duration(pollSeconds+10) * time.Second,
		},
		logger: logger.With("component", "telegram"),
		offset: 0,
	}
}

func (c *Connector) Name() string {
	return "telegram"
}

// Tag is the mention marker group members use to address the bot. Empty
// until the getMe lookup succeeds.
func (c *Connector) Tag() string {
	if c.botUsername == "" {
		return ""
	}
	return "@" + c.botUsername
}

func (c *Connector) Start(ctx context.Context) error {
	if c.token == "" {
		c.logger.Info("connector disabled, token missing")
		<-ctx.Done()
		return nil
	}
	if c.dispatcher == nil {
		c.logger.Info("connector disabled, dispatcher missing")
		<-ctx.Done()
		return nil
	}

	c.logger.Info("connector started", "api_base", c.apiBase)
	if username, err := c.fetchBotUsername(ctx); err == nil {
		c.botUsername = username
		if c.botUsername != "" {
			c.logger.Info("telegram bot identity loaded", "username", c.botUsername)
			c.dispatcher.SetTag("@" + c.botUsername)
		}
	} else {
		c.logger.Warn("telegram bot username lookup failed", "error", err)
	}

	for {
		if ctx.Err() != nil {
			c.logger.Info("connector stopped")
			return nil
		}
		if err := c.pollOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("poll failed", "error", err)
			select {
			case <-ctx.Done():
				c.logger.Info("connector stopped")
				return nil
			case <-time.After(1500 * time.Millisecond):
			}
		}
	}
}

func (c *Connector) pollOnce(ctx context.Context) error {
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d&offset=%d", c.apiBase, c.token, c.pollSeconds, c.offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var payload getUpdatesResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode getUpdates: %w", err)
	}
	if !payload.OK {
		return fmt.Errorf("telegram getUpdates failed")
	}

	for _, update := range payload.Result {
		if update.UpdateID >= c.offset {
			c.offset = update.UpdateID + 1
		}
		if update.Message == nil {
			continue
		}
		if err := c.handleMessage(ctx, *update.Message); err != nil {
			c.logger.Error("handle message failed", "error", err, "update_id", update.UpdateID)
		}
	}
	return nil
}

func (c *Connector) handleMessage(ctx context.Context, message telegramMessage) error {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		text = strings.TrimSpace(message.Caption)
	}
	if text == "" {
		return nil
	}

	msg := persona.Message{
		SenderName: userDisplayName(message.From),
		SenderID:   strconv.FormatInt(message.From.ID, 10),
		ChatID:     strconv.FormatInt(message.Chat.ID, 10),
		ChatKind:   chatKind(message.Chat.Type),
		Text:       text,
	}
	return c.dispatcher.Handle(ctx, msg, func(ctx context.Context, reply string) error {
		return c.sendMessage(ctx, message.Chat.ID, reply)
	})
}

func (c *Connector) fetchBotUsername(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/bot%s/getMe", c.apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	var payload struct {
		OK     bool `json:"ok"`
		Result struct {
			Username string `json:"username"`
		} `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", err
	}
	if !payload.OK {
		return "", fmt.Errorf("telegram getMe failed")
	}
	return strings.TrimSpace(payload.Result.Username), nil
}

func (c *Connector) sendMessage(ctx context.Context, chatID int64, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)
	body := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "MarkdownV2",
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var response struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return fmt.Errorf("decode sendMessage: %w", err)
	}
	if !response.OK {
		return fmt.Errorf("telegram sendMessage failed")
	}
	return nil
}

func chatKind(chatType string) persona.ChatKind {
	if chatType == "group" || chatType == "supergroup" {
		return persona.KindGroup
	}
	return persona.KindDirect
}

// userDisplayName is the name the router checks against the privileged
// sender, so it has to stay the bare first name regardless of any last name
// set on the account.
func userDisplayName(user telegramUser) string {
	if first := strings.TrimSpace(user.FirstName); first != "" {
		return first
	}
	if strings.TrimSpace(user.Username) != "" {
		return user.Username
	}
	return strconv.FormatInt(user.ID, 10)
}

type getUpdatesResponse struct {
	OK     bool             `json:"ok"`
	Result []telegramUpdate `json:"result"`
}

type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message"`
}

type telegramMessage struct {
	MessageID int64        `json:"message_id"`
	From      telegramUser `json:"from"`
	Chat      telegramChat `json:"chat"`
	Text      string       `json:"text"`
	Caption   string       `json:"caption"`
}

type telegramChat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}
