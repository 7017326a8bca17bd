package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"ramu/internal/application"
)

// DefaultPlayerCommand plays an mp3 read from stdin.
var DefaultPlayerCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-"}

// CommandPlayer pipes audio into an external player process.
type CommandPlayer struct {
	command []string
	logger  *slog.Logger
}

func NewCommandPlayer(command []string, logger *slog.Logger) *CommandPlayer {
	if len(command) == 0 {
		command = DefaultPlayerCommand
	}
	return &CommandPlayer{command: command, logger: logger}
}

func (p *CommandPlayer) Name() string {
	return "command"
}

func (p *CommandPlayer) Play(_ context.Context, audio io.ReadCloser) (application.Playback, error) {
	// Playback outlives the request that started it, so it is not bound to ctx.
	cmd := exec.Command(p.command[0], p.command[1:]...)
	cmd.Stdin = audio
	cmd.WaitDelay = 2 * time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting player %s: %w", p.command[0], err)
	}

	pb := &processPlayback{
		cmd:    cmd,
		audio:  audio,
		done:   make(chan struct{}),
		logger: p.logger,
	}
	go func() {
		pb.waitErr = cmd.Wait()
		if pb.waitErr != nil && stderr.Len() > 0 {
			pb.waitErr = fmt.Errorf("%w: %s", pb.waitErr, bytes.TrimSpace(stderr.Bytes()))
		}
		close(pb.done)
	}()

	return pb, nil
}

type processPlayback struct {
	cmd     *exec.Cmd
	audio   io.ReadCloser
	done    chan struct{}
	waitErr error
	logger  *slog.Logger

	stopOnce    sync.Once
	releaseOnce sync.Once
	closeOnce   sync.Once
	closeErr    error
	stopped     bool
}

func (p *processPlayback) closeAudio() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.audio.Close()
	})
	return p.closeErr
}

// Stop interrupts the player if it is still running.
func (p *processPlayback) Stop() error {
	var err error
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}

		p.stopped = true
		_ = p.cmd.Process.Signal(os.Interrupt)
		_ = p.closeAudio()
		select {
		case <-p.done:
		case <-time.After(500 * time.Millisecond):
			err = p.cmd.Process.Kill()
			<-p.done
		}
	})
	return err
}

// Release waits for the player to exit and closes the audio stream.
func (p *processPlayback) Release() error {
	var err error
	p.releaseOnce.Do(func() {
		<-p.done
		err = p.closeAudio()

		var exitErr *exec.ExitError
		if p.waitErr != nil && !(p.stopped && errors.As(p.waitErr, &exitErr)) {
			p.logger.Warn("player exited with error", "error", p.waitErr)
		}
	})
	return err
}

// FilePlayer saves every reply as an mp3 file instead of playing it.
type FilePlayer struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func NewFilePlayer(dir string, logger *slog.Logger) *FilePlayer {
	return &FilePlayer{dir: dir, logger: logger, now: time.Now}
}

func (p *FilePlayer) Name() string {
	return "file"
}

func (p *FilePlayer) Play(_ context.Context, audio io.ReadCloser) (application.Playback, error) {
	defer audio.Close()

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	path := filepath.Join(p.dir, fmt.Sprintf("reply-%s.mp3", p.now().Format("20060102-150405.000")))
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	n, err := io.Copy(out, audio)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	p.logger.Info("saved reply audio", "path", path, "bytes", n)
	return noopPlayback{}, nil
}

// NoopPlayer discards audio.
type NoopPlayer struct{}

func (NoopPlayer) Name() string {
	return "none"
}

func (NoopPlayer) Play(_ context.Context, audio io.ReadCloser) (application.Playback, error) {
	_, _ = io.Copy(io.Discard, audio)
	return noopPlayback{}, audio.Close()
}

type noopPlayback struct{}

func (noopPlayback) Stop() error    { return nil }
func (noopPlayback) Release() error { return nil }
