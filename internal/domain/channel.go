package domain

type ChannelState int

const (
	ChannelDisconnected ChannelState = iota
	ChannelConnecting
	ChannelOpen
)

func (s ChannelState) String() string {
	switch s {
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	default:
		return "disconnected"
	}
}

// Mode selects how audio turns into text. Modes are mutually exclusive.
type Mode string

const (
	// ModeStreaming streams PCM to a recognition server over a socket.
	ModeStreaming Mode = "streaming"
	// ModeBatch records one clip per button press and uploads it to the webhook.
	ModeBatch Mode = "batch"
	// ModeSpeech receives text fragments recognized by the browser.
	ModeSpeech Mode = "speech"
)
