//go:build !portaudio && !miniaudio
// +build !portaudio,!miniaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"kiosk-voice/internal/domain"
)

// MicrophoneSource stub when no audio backend is compiled in
type MicrophoneSource struct {
	logger *slog.Logger
}

func NewMicrophoneSource(sampleRate, chunkSize int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{logger: logger}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context, _ func(domain.AudioFrame)) error {
	return fmt.Errorf("%w: rebuild with -tags portaudio or -tags miniaudio", domain.ErrDeviceUnavailable)
}

func (m *MicrophoneSource) Stop() error {
	return nil
}
