//go:build miniaudio && !portaudio

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"kiosk-voice/internal/domain"
)

type MicrophoneSource struct {
	sampleRate int
	chunkSize  int
	logger     *slog.Logger

	mu      sync.Mutex
	context *malgo.AllocatedContext
	device  *malgo.Device
	chunks  *chunker
	onFrame func(domain.AudioFrame)
}

func NewMicrophoneSource(sampleRate, chunkSize int, logger *slog.Logger) *MicrophoneSource {
	if chunkSize <= 0 {
		chunkSize = domain.DefaultChunkSize
	}
	return &MicrophoneSource{
		sampleRate: sampleRate,
		chunkSize:  chunkSize,
		chunks:     newChunker(chunkSize, sampleRate),
		logger:     logger,
	}
}

func (m *MicrophoneSource) Name() string {
	return "miniaudio"
}

func (m *MicrophoneSource) Start(_ context.Context, onFrame func(domain.AudioFrame)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return nil
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return fmt.Errorf("%w: initializing audio context: %w", domain.ErrDeviceUnavailable, err)
	}

	format := malgo.FormatF32
	bytesPerFrame := malgo.SampleSizeInBytes(format)

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(m.sampleRate)
	config.Capture.Format = format
	config.Capture.Channels = 1
	config.Alsa.NoMMap = 1

	m.onFrame = onFrame

	device, err := malgo.InitDevice(audioCtx.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			m.deliver(pInput[:n])
		},
	})
	if err != nil {
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return fmt.Errorf("%w: initializing capture device: %w", domain.ErrDeviceUnavailable, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return fmt.Errorf("%w: starting capture device: %w", domain.ErrPermissionDenied, err)
	}

	m.context = audioCtx
	m.device = device

	m.logger.Info("microphone started", "sampleRate", m.sampleRate, "chunkSize", m.chunkSize)
	return nil
}

// deliver runs on the audio thread.
func (m *MicrophoneSource) deliver(raw []byte) {
	samples := make([]int16, len(raw)/4)
	for i := range samples {
		samples[i] = domain.ScaleSample(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onFrame == nil {
		return
	}
	m.chunks.push(samples, m.onFrame)
}

func (m *MicrophoneSource) Stop() error {
	m.mu.Lock()
	device, audioCtx := m.device, m.context
	m.device, m.context = nil, nil
	m.onFrame = nil
	// a partial frame from this run must not lead the next one
	m.chunks.reset()
	m.mu.Unlock()

	if device == nil {
		return nil
	}

	// Stop waits for the data callback, so it must run without m.mu held.
	err := device.Stop()
	device.Uninit()
	_ = audioCtx.Uninit()
	audioCtx.Free()

	m.logger.Info("microphone stopped")
	if err != nil {
		return fmt.Errorf("stopping capture device: %w", err)
	}
	return nil
}
