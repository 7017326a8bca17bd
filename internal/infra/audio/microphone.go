//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"ramu/internal/domain"
)

const framesPerBuffer = 1024

// MicrophoneCapture records mono 16-bit audio from the default input device.
type MicrophoneCapture struct {
	sampleRate int
	logger     *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	buffer  []int16
	samples []int16
	stop    chan struct{}
	done    chan error
}

func NewMicrophoneCapture(sampleRate int, logger *slog.Logger) *MicrophoneCapture {
	return &MicrophoneCapture{
		sampleRate: sampleRate,
		logger:     logger,
	}
}

func (m *MicrophoneCapture) Name() string {
	return "microphone"
}

func (m *MicrophoneCapture) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return fmt.Errorf("microphone already recording")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	m.buffer = make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}

	m.stream = stream
	m.samples = make([]int16, 0, m.sampleRate*5)
	m.stop = make(chan struct{})
	m.done = make(chan error, 1)

	go m.read(stream, m.stop, m.done)

	m.logger.Info("microphone started", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneCapture) read(stream *portaudio.Stream, stop <-chan struct{}, done chan<- error) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			done <- fmt.Errorf("reading from stream: %w", err)
			return
		}

		m.mu.Lock()
		m.samples = append(m.samples, m.buffer...)
		m.mu.Unlock()
	}
}

// Stop ends the recording and returns it as WAV.
func (m *MicrophoneCapture) Stop(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	stream, stop, done := m.stream, m.stop, m.done
	m.mu.Unlock()

	if stream == nil {
		return nil, domain.ErrNoCaptureData
	}

	close(stop)
	readErr := <-done

	stream.Stop()
	stream.Close()
	portaudio.Terminate()

	m.mu.Lock()
	samples := m.samples
	m.stream, m.samples = nil, nil
	m.mu.Unlock()

	m.logger.Info("microphone stopped", "samples", len(samples))

	if len(samples) == 0 {
		if readErr != nil {
			return nil, readErr
		}
		return nil, domain.ErrNoCaptureData
	}
	return EncodeWAV(samples, m.sampleRate), nil
}
