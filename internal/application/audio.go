package application

import (
	"context"

	"kiosk-voice/internal/domain"
)

// AudioCapture produces AudioFrames from an input device.
type AudioCapture interface {
	Start(ctx context.Context, onFrame func(domain.AudioFrame)) error
	Stop() error
	Name() string
}

// ClipEncoder turns the frames of one recording into an uploadable clip.
type ClipEncoder func(frames []domain.AudioFrame) []byte
