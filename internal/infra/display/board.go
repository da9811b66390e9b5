package display

import (
	"log/slog"
	"sync"
	"time"
)

const DefaultMessageTTL = 5 * time.Second

// Board is the in-memory status area of the kiosk screen. The kiosk page
// polls it through the status endpoint; every change is also logged.
type Board struct {
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	status  string
	live    string
	message string
	seq     int
	timer   *time.Timer
}

func NewBoard(ttl time.Duration, logger *slog.Logger) *Board {
	if ttl <= 0 {
		ttl = DefaultMessageTTL
	}
	return &Board{ttl: ttl, logger: logger}
}

func (b *Board) SetStatus(text string) {
	b.mu.Lock()
	b.status = text
	b.mu.Unlock()

	if text != "" {
		b.logger.Info("status", "text", text)
	}
}

func (b *Board) SetLiveTranscript(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live = text
}

// ShowMessage replaces the current message; it is cleared after the TTL
// unless another message arrived in between.
func (b *Board) ShowMessage(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.message = text
	b.seq++
	seq := b.seq

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.ttl, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.seq == seq {
			b.message = ""
		}
	})

	b.logger.Info("message", "text", text)
}

type View struct {
	Status  string `json:"status"`
	Live    string `json:"live"`
	Message string `json:"message"`
}

func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return View{Status: b.status, Live: b.live, Message: b.message}
}

// Close cancels a pending message clear.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
}
