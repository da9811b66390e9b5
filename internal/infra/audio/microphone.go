//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"kiosk-voice/internal/domain"
)

type MicrophoneSource struct {
	sampleRate int
	chunkSize  int
	logger     *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	buffer []float32
	stop   chan struct{}
	done   chan struct{}
}

func NewMicrophoneSource(sampleRate, chunkSize int, logger *slog.Logger) *MicrophoneSource {
	if chunkSize <= 0 {
		chunkSize = domain.DefaultChunkSize
	}
	return &MicrophoneSource{
		sampleRate: sampleRate,
		chunkSize:  chunkSize,
		logger:     logger,
	}
}

func (m *MicrophoneSource) Name() string {
	return "portaudio"
}

func (m *MicrophoneSource) Start(_ context.Context, onFrame func(domain.AudioFrame)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: initializing portaudio: %w", domain.ErrDeviceUnavailable, err)
	}

	if _, err := portaudio.DefaultInputDevice(); err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, err)
	}

	m.buffer = make([]float32, m.chunkSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), m.chunkSize, m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: opening stream: %w", domain.ErrPermissionDenied, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: starting stream: %w", domain.ErrPermissionDenied, err)
	}

	m.stream = stream
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go m.readLoop(stream, m.buffer, onFrame, m.stop, m.done)

	m.logger.Info("microphone started", "sampleRate", m.sampleRate, "chunkSize", m.chunkSize)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}

	close(m.stop)
	m.stream.Stop()
	<-m.done

	err := m.stream.Close()
	m.stream = nil
	portaudio.Terminate()

	m.logger.Info("microphone stopped")
	if err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}
	return nil
}

func (m *MicrophoneSource) readLoop(stream *portaudio.Stream, buffer []float32, onFrame func(domain.AudioFrame), stop, done chan struct{}) {
	defer close(done)

	for {
		if err := stream.Read(); err != nil {
			select {
			case <-stop:
			default:
				m.logger.Error("reading from microphone", "error", err)
			}
			return
		}

		select {
		case <-stop:
			return
		default:
		}

		onFrame(domain.AudioFrame{
			Samples:    domain.ScaleSamples(buffer),
			SampleRate: m.sampleRate,
		})
	}
}
