// Package dispatch turns classified inbound messages into outbound replies.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/seagata/hinabot/internal/brief"
	"github.com/seagata/hinabot/internal/history"
	"github.com/seagata/hinabot/internal/llm"
	"github.com/seagata/hinabot/internal/persona"
	"github.com/seagata/hinabot/internal/store"
	"github.com/seagata/hinabot/internal/textnorm"
)

const (
	modelPro   = "gemini-2.5-pro"
	modelFlash = "gemini-2.5-flash"

	// chat replies reason within a fixed budget; the brief lets the model
	// decide for itself.
	chatThinkingBudget    = 4096
	dynamicThinkingBudget = -1

	artifactName = "response.md"
)

// EmitFunc delivers one outbound reply. Replies are emitted in order, and
// interim acknowledgements go out before the model call they announce.
type EmitFunc = func(ctx context.Context, text string) error

// Transcripts resolves a video link to its title and spoken text.
type Transcripts interface {
	Fetch(ctx context.Context, videoID string) (string, error)
	Title(ctx context.Context, videoURL string) (string, error)
}

type Exporter interface {
	Export(inputPath, outputPath string) error
}

type Notifier interface {
	Send(ctx context.Context, attachmentPath string) error
}

type Auditor interface {
	RecordTurn(ctx context.Context, input store.RecordTurnInput) (store.Turn, error)
}

type Config struct {
	DataDir         string
	ExportDir       string
	HistoryMaxChars int
}

type Dispatcher struct {
	cfg         Config
	router      persona.Router
	history     *history.Store
	generator   llm.Generator
	transcripts Transcripts
	exporter    Exporter
	notifier    Notifier
	audit       Auditor
	logger      *slog.Logger

	mu      sync.RWMutex
	persona persona.Persona
}

func New(cfg Config, router persona.Router, who persona.Persona, hist *history.Store, generator llm.Generator, transcripts Transcripts, exporter Exporter, notifier Notifier, audit Auditor, logger *slog.Logger) *Dispatcher {
	if cfg.HistoryMaxChars < 1 {
		cfg.HistoryMaxChars = 6144
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:         cfg,
		router:      router,
		persona:     who,
		history:     hist,
		generator:   generator,
		transcripts: transcripts,
		exporter:    exporter,
		notifier:    notifier,
		audit:       audit,
		logger:      logger.With("component", "dispatch"),
	}
}

// SetPersona swaps the active persona. Called by the personality file watcher.
func (d *Dispatcher) SetPersona(who persona.Persona) {
	d.mu.Lock()
	d.persona = who
	d.mu.Unlock()
}

// SetTag updates the group mention marker once the transport has learned the
// bot's own username.
func (d *Dispatcher) SetTag(tag string) {
	d.mu.Lock()
	d.router.Tag = tag
	d.mu.Unlock()
}

func (d *Dispatcher) currentPersona() persona.Persona {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.persona
}

func (d *Dispatcher) currentRouter() persona.Router {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.router
}

// Handle classifies msg and emits every reply it produces. Pipeline failures
// collapse to a single in-character apology so the loop keeps running; only
// emit failures are returned to the caller.
func (d *Dispatcher) Handle(ctx context.Context, msg persona.Message, emit EmitFunc) error {
	action := d.currentRouter().Classify(msg)
	if action.Mode == persona.ModeIgnore {
		return nil
	}
	who := d.currentPersona()
	start := time.Now()

	replies, model, err := d.respond(ctx, who, msg, action, emit)
	if err != nil {
		d.logger.Error("turn failed", "mode", string(action.Mode), "chat", msg.ChatID, "error", err)
		d.recordTurn(ctx, msg, action, model, 0, time.Since(start), err)
		return emit(ctx, textnorm.EscapeMarkdownV2(who.ApologyReply()))
	}

	if len(replies) == 0 {
		d.logger.Warn("empty model reply", "mode", string(action.Mode), "chat", msg.ChatID)
		replies = []string{who.BusyReply()}
	}

	replyChars := 0
	for _, reply := range replies {
		replyChars += len(reply)
		if emitErr := emit(ctx, textnorm.EscapeMarkdownV2(reply)); emitErr != nil {
			return emitErr
		}
	}
	d.recordTurn(ctx, msg, action, model, replyChars, time.Since(start), nil)
	return nil
}

func (d *Dispatcher) respond(ctx context.Context, who persona.Persona, msg persona.Message, action persona.Action, emit EmitFunc) ([]string, string, error) {
	switch action.Mode {
	case persona.ModeShrug:
		return []string{who.ShrugReply()}, "", nil
	case persona.ModeAskForLink:
		return []string{who.AskForLinkReply()}, "", nil
	case persona.ModeExportBrief:
		return d.exportBrief(ctx, who, msg, emit)
	case persona.ModeOpinion:
		return d.videoOpinion(ctx, who, msg, action, emit)
	case persona.ModeSummarize:
		return d.videoSummary(ctx, who, action, emit)
	case persona.ModeGroupReply, persona.ModePrivateReply:
		return d.chatReply(ctx, who, msg, action)
	default:
		return nil, "", fmt.Errorf("unknown mode %q", action.Mode)
	}
}

func (d *Dispatcher) chatReply(ctx context.Context, who persona.Persona, msg persona.Message, action persona.Action) ([]string, string, error) {
	userLine := who.UserLine(msg.SenderName, msg.Text)
	historyLog := d.history.Get(action.Key)

	var prompt string
	if action.Mode == persona.ModeGroupReply {
		prompt = who.GroupPrompt(userLine, historyLog, msg.SenderName)
	} else {
		prompt = who.PrivatePrompt(userLine, historyLog)
	}

	budget := chatThinkingBudget
	raw, err := d.generator.Generate(ctx, llm.Request{
		Model:          modelFlash,
		Prompt:         prompt,
		Temperature:    1.14,
		ThinkingBudget: &budget,
	})
	if err != nil {
		return nil, modelFlash, fmt.Errorf("generate chat reply: %w", err)
	}

	reply := polish(raw)
	if reply == "" {
		return nil, modelFlash, nil
	}
	d.history.Append(action.Key, who.TurnPair(userLine, reply), d.cfg.HistoryMaxChars)
	if err := d.history.Save(); err != nil {
		d.logger.Error("persist history", "error", err)
	}
	return splitReplies(reply), modelFlash, nil
}

func (d *Dispatcher) videoOpinion(ctx context.Context, who persona.Persona, msg persona.Message, action persona.Action, emit EmitFunc) ([]string, string, error) {
	if err := emit(ctx, textnorm.EscapeMarkdownV2(who.OpinionAck())); err != nil {
		return nil, "", err
	}
	videoID, ok := textnorm.ExtractVideoID(action.VideoURL)
	if !ok {
		return nil, "", fmt.Errorf("no video id in %q", action.VideoURL)
	}
	title, err := d.transcripts.Title(ctx, action.VideoURL)
	if err != nil {
		return nil, "", fmt.Errorf("resolve video title: %w", err)
	}
	userLine := who.UserLine(msg.SenderName, msg.Text)

	// A missing transcript downgrades to the title-only prompt instead of
	// failing the turn.
	var prompt string
	if transcriptText, err := d.transcripts.Fetch(ctx, videoID); err != nil {
		d.logger.Warn("transcript unavailable", "video", videoID, "error", err)
		prompt = who.OpinionFallbackPrompt(userLine, title)
	} else {
		prompt = who.OpinionPrompt(userLine, title, transcriptText)
	}

	raw, err := d.generator.Generate(ctx, llm.Request{
		Model:       modelPro,
		Prompt:      prompt,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, modelPro, fmt.Errorf("generate opinion: %w", err)
	}
	return singleReply(raw), modelPro, nil
}

func (d *Dispatcher) videoSummary(ctx context.Context, who persona.Persona, action persona.Action, emit EmitFunc) ([]string, string, error) {
	if err := emit(ctx, textnorm.EscapeMarkdownV2(who.SummarizeAck())); err != nil {
		return nil, "", err
	}
	videoID, ok := textnorm.ExtractVideoID(action.VideoURL)
	if !ok {
		return nil, "", fmt.Errorf("no video id in %q", action.VideoURL)
	}
	transcriptText, err := d.transcripts.Fetch(ctx, videoID)
	if err != nil {
		return nil, "", fmt.Errorf("fetch transcript: %w", err)
	}

	raw, err := d.generator.Generate(ctx, llm.Request{
		Model:       modelPro,
		Prompt:      who.SummaryPrompt(transcriptText),
		Temperature: 0.7,
	})
	if err != nil {
		return nil, modelPro, fmt.Errorf("generate summary: %w", err)
	}
	return singleReply(raw), modelPro, nil
}

func (d *Dispatcher) exportBrief(ctx context.Context, who persona.Persona, msg persona.Message, emit EmitFunc) ([]string, string, error) {
	if err := emit(ctx, textnorm.EscapeMarkdownV2(who.ExportAck())); err != nil {
		return nil, "", err
	}
	userLine := who.UserLine(msg.SenderName, msg.Text)

	budget := dynamicThinkingBudget
	raw, err := d.generator.Generate(ctx, llm.Request{
		Model:          modelPro,
		Prompt:         who.ExportPrompt(userLine),
		Temperature:    0.95,
		ThinkingBudget: &budget,
	})
	if err != nil {
		return nil, modelPro, fmt.Errorf("generate brief: %w", err)
	}

	artifactPath := filepath.Join(d.cfg.DataDir, artifactName)
	if err := os.WriteFile(artifactPath, []byte(textnorm.NormalizePunctuation(raw)), 0o644); err != nil {
		return nil, modelPro, fmt.Errorf("write brief artifact: %w", err)
	}
	outputPath := brief.OutputName(d.cfg.ExportDir, time.Now())
	if err := d.exporter.Export(artifactPath, outputPath); err != nil {
		return nil, modelPro, fmt.Errorf("export brief: %w", err)
	}
	if err := d.notifier.Send(ctx, outputPath); err != nil {
		return nil, modelPro, fmt.Errorf("mail brief: %w", err)
	}
	return []string{who.ExportDoneReply()}, modelPro, nil
}

func (d *Dispatcher) recordTurn(ctx context.Context, msg persona.Message, action persona.Action, model string, replyChars int, latency time.Duration, turnErr error) {
	if d.audit == nil {
		return
	}
	key := action.Key
	if key == "" {
		key = msg.ChatID
	}
	errorMessage := ""
	if turnErr != nil {
		errorMessage = turnErr.Error()
	}
	if _, err := d.audit.RecordTurn(ctx, store.RecordTurnInput{
		ConversationKey: key,
		ChatKind:        string(msg.ChatKind),
		SenderName:      msg.SenderName,
		Mode:            string(action.Mode),
		Model:           model,
		PromptChars:     len(msg.Text),
		ReplyChars:      replyChars,
		Latency:         latency,
		ErrorMessage:    errorMessage,
	}); err != nil {
		d.logger.Error("record turn", "error", err)
	}
}

// singleReply passes a long-form answer through untouched; opinions and
// summaries are sent whole, without the chat-reply polish or // splitting.
func singleReply(raw string) []string {
	reply := strings.TrimSpace(raw)
	if reply == "" {
		return nil
	}
	return []string{reply}
}

// polish strips hallucinated speaker turns and trailing sentence fragments
// from chat-mode model output.
func polish(raw string) string {
	text := textnorm.StripSpeakerEcho(raw)
	text = textnorm.TrimToLastSentence(text)
	return strings.TrimSpace(text)
}

// splitReplies breaks a reply on the model's // marker into separate chat
// messages.
func splitReplies(reply string) []string {
	parts := strings.Split(reply, "//")
	replies := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			replies = append(replies, trimmed)
		}
	}
	return replies
}
