package application

import (
	"strings"

	"github.com/google/uuid"

	"kiosk-voice/internal/domain"
)

// Aggregator turns transcript fragments into deduplicated utterances.
// It is not safe for concurrent use; the pipeline loop owns it.
type Aggregator struct {
	live         string
	lastEnqueued string
	pending      []domain.Utterance
	newID        func() string
}

func NewAggregator() *Aggregator {
	return &Aggregator{newID: uuid.NewString}
}

// Accept applies a fragment. It returns the new utterance when the fragment
// is final, non-empty and differs from the previously enqueued text.
func (a *Aggregator) Accept(f domain.TranscriptFragment) (domain.Utterance, bool) {
	if !f.IsFinal {
		a.live = f.Text
		return domain.Utterance{}, false
	}

	text := strings.TrimSpace(f.Text)
	if text == "" || text == a.lastEnqueued {
		return domain.Utterance{}, false
	}

	u := domain.Utterance{ID: a.newID(), Text: text}
	a.pending = append(a.pending, u)
	a.lastEnqueued = text
	a.live = ""
	return u, true
}

// Complete removes a dispatched utterance from the pending queue.
func (a *Aggregator) Complete(id string) {
	for i, u := range a.pending {
		if u.ID == id {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return
		}
	}
}

func (a *Aggregator) Live() string {
	return a.live
}

func (a *Aggregator) Pending() []domain.Utterance {
	out := make([]domain.Utterance, len(a.pending))
	copy(out, a.pending)
	return out
}
