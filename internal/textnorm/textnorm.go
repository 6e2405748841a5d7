// Package textnorm holds the pure text transforms applied to model output
// before it is persisted, rendered, or sent back over the chat transport.
package textnorm

import (
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube\.com/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?)/|\S*?[?&]v=)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// ExtractVideoID pulls the 11-character video id out of the known YouTube URL
// shapes (watch?v=, /v/, /e/, /embed/, youtu.be). The scheme and www. prefix
// are optional.
func ExtractVideoID(url string) (string, bool) {
	match := videoIDPattern.FindStringSubmatch(url)
	if match == nil {
		return "", false
	}
	return match[1], true
}

var markdownV2Pattern = regexp.MustCompile("([\\\\_\\[\\]()~`>#+\\-=|{}.!])")

// EscapeMarkdownV2 escapes the characters Telegram's MarkdownV2 parser
// reserves. The asterisk is intentionally not escaped so bold markup coming
// out of the model survives. Applying it twice doubles every backslash; it is
// not idempotent.
func EscapeMarkdownV2(text string) string {
	return markdownV2Pattern.ReplaceAllString(text, `\$1`)
}

var punctuationReplacer = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
	"—", "--",
	"…", "...",
)

// NormalizePunctuation rewrites typographic punctuation into plain ASCII so
// the text renders cleanly in file output.
func NormalizePunctuation(text string) string {
	return punctuationReplacer.Replace(text)
}

// TrimToLastSentence truncates the text after the rightmost sentence
// terminator (. ! ?). Text without a terminator is returned unchanged.
func TrimToLastSentence(text string) string {
	last := -1
	for _, punc := range []string{".", "!", "?"} {
		if pos := strings.LastIndex(text, punc); pos > last {
			last = pos
		}
	}
	if last < 0 {
		return text
	}
	return text[:last+1]
}

var speakerEchoPattern = regexp.MustCompile(`\n[A-Z][a-zA-Z\s]*:`)

// StripSpeakerEcho cuts the text before a line shaped like "Name:". Models
// occasionally continue the conversation in another speaker's voice; the echo
// and everything after it is dropped.
func StripSpeakerEcho(text string) string {
	loc := speakerEchoPattern.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]]
}
