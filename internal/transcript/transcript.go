// Package transcript fetches captions and titles for referenced videos.
package transcript

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNoTranscript = errors.New("no transcript available")

type Config struct {
	TimedTextBaseURL string
	OEmbedBaseURL    string
	Language         string
	Timeout          time.Duration
}

type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Fetcher {
	if strings.TrimSpace(cfg.TimedTextBaseURL) == "" {
		cfg.TimedTextBaseURL = "https://www.youtube.com/api/timedtext"
	}
	if strings.TrimSpace(cfg.OEmbedBaseURL) == "" {
		cfg.OEmbedBaseURL = "https://www.youtube.com/oembed"
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Fetch returns the caption track for videoID as one plain-text blob, segments
// joined with spaces. An empty track maps to ErrNoTranscript.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) (string, error) {
	endpoint := fmt.Sprintf(
		"%s?lang=%s&v=%s",
		f.cfg.TimedTextBaseURL,
		url.QueryEscape(f.cfg.Language),
		url.QueryEscape(videoID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	res, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("timedtext fetch failed with status %d", res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", err
	}

	var track timedTextResponse
	if err := xml.Unmarshal(body, &track); err != nil {
		return "", fmt.Errorf("decode timedtext: %w", err)
	}
	segments := make([]string, 0, len(track.Texts))
	for _, segment := range track.Texts {
		clean := strings.TrimSpace(html.UnescapeString(segment.Value))
		if clean == "" {
			continue
		}
		segments = append(segments, clean)
	}
	if len(segments) == 0 {
		return "", ErrNoTranscript
	}
	return strings.Join(segments, " "), nil
}

// Title resolves the video title through the keyless oEmbed endpoint.
func (f *Fetcher) Title(ctx context.Context, videoURL string) (string, error) {
	endpoint := fmt.Sprintf(
		"%s?url=%s&format=json",
		f.cfg.OEmbedBaseURL,
		url.QueryEscape(videoURL),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	res, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("oembed lookup failed with status %d", res.StatusCode)
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode oembed response: %w", err)
	}
	return strings.TrimSpace(payload.Title), nil
}

type timedTextResponse struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Value string `xml:",chardata"`
}
