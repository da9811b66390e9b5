package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"kiosk-voice/internal/domain"
)

// FileSource replays a WAV file as if it came from the microphone, paced at
// the clip's sample rate. It is meant for kiosks without a microphone and for
// demos. When loop is false the source goes quiet after the last frame.
type FileSource struct {
	path      string
	chunkSize int
	loop      bool
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewFileSource(path string, chunkSize int, loop bool, logger *slog.Logger) *FileSource {
	if chunkSize <= 0 {
		chunkSize = domain.DefaultChunkSize
	}
	return &FileSource{
		path:      path,
		chunkSize: chunkSize,
		loop:      loop,
		logger:    logger,
	}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(ctx context.Context, onFrame func(domain.AudioFrame)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		return nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", domain.ErrDeviceUnavailable, f.path, err)
	}
	samples, rate, err := DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("%w: decoding %s: %w", domain.ErrDeviceUnavailable, f.path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	go f.replay(ctx, samples, rate, onFrame, f.done)

	f.logger.Info("file source started", "path", f.path, "samples", len(samples), "sampleRate", rate)
	return nil
}

// Stop returns once the replay goroutine has exited, so no frame is delivered
// after it.
func (f *FileSource) Stop() error {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (f *FileSource) replay(ctx context.Context, samples []int16, rate int, onFrame func(domain.AudioFrame), done chan struct{}) {
	defer close(done)

	if rate <= 0 || len(samples) == 0 {
		return
	}

	interval := time.Duration(f.chunkSize) * time.Second / time.Duration(rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c := newChunker(f.chunkSize, rate)
	pos := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// one frame per tick; a loop wraps into the start of the clip
		need := f.chunkSize
		for need > 0 {
			if pos >= len(samples) {
				if !f.loop {
					c.flush(onFrame)
					return
				}
				pos = 0
			}
			end := min(pos+need, len(samples))
			c.push(samples[pos:end], onFrame)
			need -= end - pos
			pos = end
		}
	}
}
