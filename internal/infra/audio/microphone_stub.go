//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"ramu/internal/domain"
)

// MicrophoneCapture stub when portaudio is not available
type MicrophoneCapture struct {
	logger *slog.Logger
}

func NewMicrophoneCapture(sampleRate int, logger *slog.Logger) *MicrophoneCapture {
	return &MicrophoneCapture{logger: logger}
}

func (m *MicrophoneCapture) Name() string {
	return "microphone"
}

func (m *MicrophoneCapture) Start(_ context.Context) error {
	return fmt.Errorf("microphone capture not available: rebuild with -tags portaudio")
}

func (m *MicrophoneCapture) Stop(_ context.Context) ([]byte, error) {
	return nil, domain.ErrNoCaptureData
}
