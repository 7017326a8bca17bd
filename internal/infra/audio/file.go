package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"ramu/internal/domain"
)

// FileCapture stands in for a microphone on headless hosts: a recording
// consists of the oldest unprocessed audio file dropped into dir.
type FileCapture struct {
	dir    string
	logger *slog.Logger

	mu        sync.Mutex
	recording bool
}

func NewFileCapture(dir string, logger *slog.Logger) *FileCapture {
	return &FileCapture{dir: dir, logger: logger}
}

func (f *FileCapture) Name() string {
	return "file"
}

func (f *FileCapture) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating audio dir: %w", err)
	}

	f.mu.Lock()
	f.recording = true
	f.mu.Unlock()
	return nil
}

func (f *FileCapture) Stop(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.recording {
		return nil, domain.ErrNoCaptureData
	}
	f.recording = false

	path, err := f.nextFile()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no audio file in %s", domain.ErrNoCaptureData, f.dir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	if err := os.Rename(path, path+".processed"); err != nil {
		f.logger.Warn("marking audio file processed", "path", path, "error", err)
	}

	f.logger.Info("captured audio file", "path", path, "bytes", len(data))
	return data, nil
}

func (f *FileCapture) nextFile() (string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return "", fmt.Errorf("reading dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".wav" {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", nil
	}

	sort.Strings(names)
	return filepath.Join(f.dir, names[0]), nil
}
