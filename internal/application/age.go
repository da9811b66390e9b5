package application

import "kiosk-voice/internal/domain"

// AgeTracker debounces age estimates so the kiosk only switches when the
// estimated group changes.
type AgeTracker struct {
	current domain.AgeGroup
}

func (t *AgeTracker) Observe(age float64) (domain.AgeGroup, bool) {
	group := domain.AgeGroupFor(age)
	if group == t.current {
		return group, false
	}
	t.current = group
	return group, true
}

func (t *AgeTracker) Current() domain.AgeGroup {
	return t.current
}
