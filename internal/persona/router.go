package persona

import "strings"

type ChatKind string

const (
	KindDirect ChatKind = "direct"
	KindGroup  ChatKind = "group"
)

// Message is one inbound chat message, already reduced to the fields the
// router cares about.
type Message struct {
	SenderName string
	SenderID   string
	ChatID     string
	ChatKind   ChatKind
	Text       string
}

type Mode string

const (
	ModeExportBrief  Mode = "export_brief"
	ModeOpinion      Mode = "opinion"
	ModeSummarize    Mode = "summarize"
	ModeGroupReply   Mode = "group_reply"
	ModePrivateReply Mode = "private_reply"
	ModeAskForLink   Mode = "ask_for_link"
	ModeShrug        Mode = "shrug"
	ModeIgnore       Mode = "ignore"
)

// Action is the router's verdict for one message. Key is the conversation key
// for modes that read or mutate history; VideoURL is set for the video modes.
type Action struct {
	Mode     Mode
	Key      string
	VideoURL string
}

const (
	triggerExport    = "PDF it"
	triggerOpinion   = "what is your opinion"
	triggerSummarize = "summarize this"
)

// Router classifies messages. Privileged is the single operator display name
// allowed to use the direct-chat modes; Tag is the bot's group mention marker
// (e.g. "@hinabot").
type Router struct {
	Privileged string
	Tag        string
}

// Classify maps a message to its response mode. Decision order: export,
// opinion, summarize, group tag, private default. Non-privileged direct
// senders get the fixed ellipsis reply; untagged group messages are dropped
// without a reply.
//
// The video-URL scan runs only when one of the video trigger phrases is
// actually present. The original behavior scanned unconditionally because of
// a short-circuit bug in the trigger check; the gated form is what the
// triggers were meant to do.
func (r Router) Classify(msg Message) Action {
	key := msg.ChatID

	if msg.ChatKind == KindGroup {
		if r.Tag == "" || !strings.Contains(strings.ToLower(msg.Text), strings.ToLower(r.Tag)) {
			return Action{Mode: ModeIgnore, Key: key}
		}
		return Action{Mode: ModeGroupReply, Key: key}
	}

	if msg.SenderName != r.Privileged {
		return Action{Mode: ModeShrug, Key: key}
	}

	switch {
	case strings.Contains(msg.Text, triggerExport):
		return Action{Mode: ModeExportBrief, Key: key}
	case strings.Contains(msg.Text, triggerOpinion):
		if url, ok := findVideoURL(msg.Text); ok {
			return Action{Mode: ModeOpinion, Key: key, VideoURL: url}
		}
		return Action{Mode: ModeAskForLink, Key: key}
	case strings.Contains(msg.Text, triggerSummarize):
		if url, ok := findVideoURL(msg.Text); ok {
			return Action{Mode: ModeSummarize, Key: key, VideoURL: url}
		}
		return Action{Mode: ModeAskForLink, Key: key}
	default:
		return Action{Mode: ModePrivateReply, Key: key}
	}
}

func findVideoURL(text string) (string, bool) {
	for _, part := range strings.Fields(text) {
		if strings.Contains(part, "youtube.com") || strings.Contains(part, "youtu.be") {
			return part, true
		}
	}
	return "", false
}
