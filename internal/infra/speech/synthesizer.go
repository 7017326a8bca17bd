package speech

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ramu/internal/domain"
	"ramu/internal/infra"
)

const (
	synthesizeOp = "synthesize"

	// OutputFormat is mono 16kHz mp3.
	OutputFormat     = "audio-16khz-32kbitrate-mono-mp3"
	DefaultUserAgent = "ramu-assistant/1.0"
)

// Synthesizer calls the Azure Speech text-to-speech endpoint.
type Synthesizer struct {
	apiKey     string
	httpClient *http.Client
	endpoint   string
	userAgent  string
	logger     *slog.Logger
}

func NewSynthesizer(apiKey, region, userAgent string, logger *slog.Logger) *Synthesizer {
	return NewSynthesizerWithURL(apiKey, SynthesisURL(region), userAgent, logger)
}

func NewSynthesizerWithURL(apiKey, endpoint, userAgent string, logger *slog.Logger) *Synthesizer {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Synthesizer{
		apiKey:     apiKey,
		httpClient: infra.NewStreamingHTTPClient(infra.DefaultTimeout),
		endpoint:   endpoint,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// SetTimeout replaces the response-header deadline. Zero disables it.
func (s *Synthesizer) SetTimeout(d time.Duration) {
	s.httpClient = infra.NewStreamingHTTPClient(d)
}

func SynthesisURL(region string) string {
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region)
}

// Synthesize returns the synthesized audio as a stream. The caller must close it.
func (s *Synthesizer) Synthesize(ctx context.Context, text, locale, voiceID string) (io.ReadCloser, error) {
	if s.apiKey == "" {
		return nil, domain.MissingCredential(synthesizeOp)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(BuildSSML(text, locale, voiceID)))
	if err != nil {
		return nil, infra.SendFailure(synthesizeOp, err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", OutputFormat)
	req.Header.Set("User-Agent", s.userAgent)

	s.logger.Debug("requesting speech synthesis", "chars", len(text), "locale", locale, "voice", voiceID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, infra.SendFailure(synthesizeOp, err)
	}

	if err := infra.CheckResponse(synthesizeOp, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// BuildSSML wraps text in a speak/voice document. Markup-significant
// characters in every embedded value are escaped.
func BuildSSML(text, locale, voiceID string) string {
	var b strings.Builder
	b.WriteString("<speak version='1.0' xml:lang='")
	escape(&b, locale)
	b.WriteString("'><voice name='")
	escape(&b, voiceID)
	b.WriteString("'>")
	escape(&b, text)
	b.WriteString("</voice></speak>")
	return b.String()
}

func escape(b *strings.Builder, s string) {
	// strings.Builder never returns a write error.
	_ = xml.EscapeText(b, []byte(s))
}
