package application

import (
	"context"

	"kiosk-voice/internal/domain"
)

// IntentDispatcher forwards recognized text to the automation webhook.
// A nil reply with a nil error means nothing was sent.
type IntentDispatcher interface {
	Dispatch(ctx context.Context, text string) (*domain.Reply, error)
}

// ClipUploader sends a recorded clip to the automation webhook.
type ClipUploader interface {
	Upload(ctx context.Context, clip []byte) (*domain.Reply, error)
}
