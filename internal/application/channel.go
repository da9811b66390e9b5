package application

import (
	"context"

	"kiosk-voice/internal/domain"
)

// Channel is a duplex connection to a recognition server.
type Channel interface {
	// Connect starts a connection attempt. Without force it is a no-op while
	// the channel is open and fails with domain.ErrConnectInFlight while
	// another attempt is pending.
	Connect(ctx context.Context, force bool) error
	State() domain.ChannelState
	// Send transmits one frame, or fails with domain.ErrChannelNotOpen.
	Send(frame domain.AudioFrame) error
	Fragments() <-chan domain.TranscriptFragment
	Close() error
}
