package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"ramu/internal/domain"
	"ramu/internal/infra"
)

const transcribeOp = "transcribe"

// Transcriber calls the Azure Speech short-audio recognition endpoint.
type Transcriber struct {
	apiKey     string
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

func NewTranscriber(apiKey, region string, logger *slog.Logger) *Transcriber {
	return NewTranscriberWithURL(apiKey, RecognitionURL(region), logger)
}

func NewTranscriberWithURL(apiKey, endpoint string, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		apiKey:     apiKey,
		httpClient: infra.NewHTTPClient(infra.DefaultTimeout),
		endpoint:   endpoint,
		logger:     logger,
	}
}

// SetTimeout replaces the per-call deadline. Zero disables it.
func (t *Transcriber) SetTimeout(d time.Duration) {
	t.httpClient = infra.NewHTTPClient(d)
}

func RecognitionURL(region string) string {
	return fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", region)
}

type recognitionResponse struct {
	RecognitionStatus string  `json:"RecognitionStatus"`
	DisplayText       *string `json:"DisplayText"`
}

// Transcribe sends a finished WAV recording and returns the recognized text.
// An empty string means nothing was recognized.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, locale string) (string, error) {
	if t.apiKey == "" {
		return "", domain.MissingCredential(transcribeOp)
	}

	u, err := url.Parse(t.endpoint)
	if err != nil {
		return "", infra.SendFailure(transcribeOp, err)
	}
	q := u.Query()
	q.Set("language", locale)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio))
	if err != nil {
		return "", infra.SendFailure(transcribeOp, err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", t.apiKey)
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "application/json")

	t.logger.Debug("sending audio for transcription", "bytes", len(audio), "locale", locale)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", infra.SendFailure(transcribeOp, err)
	}
	defer resp.Body.Close()

	if err := infra.CheckResponse(transcribeOp, resp); err != nil {
		return "", err
	}

	var result recognitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", infra.DecodeFailure(transcribeOp, err)
	}

	if result.DisplayText == nil {
		t.logger.Debug("no speech recognized", "status", result.RecognitionStatus)
		return "", nil
	}

	return *result.DisplayText, nil
}
