package application

import (
	"context"
	"io"

	"ramu/internal/domain"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, locale string) (string, error)
}

type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, locale, voiceID string) (io.ReadCloser, error)
}

// AudioCapture records one utterance at a time. Stop returns the finished
// recording.
type AudioCapture interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) ([]byte, error)
	Name() string
}

// AudioPlayer takes ownership of audio and starts playing it.
type AudioPlayer interface {
	Play(ctx context.Context, audio io.ReadCloser) (Playback, error)
	Name() string
}

// Playback is a handle on one playing stream. Stop and Release are idempotent.
type Playback interface {
	Stop() error
	Release() error
}

type ProfileRegistry interface {
	List() []string
	Resolve(name string) (domain.LanguageProfile, error)
	Default() domain.LanguageProfile
}
