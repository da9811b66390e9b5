package application

import "kiosk-voice/internal/domain"

// Metrics receives pipeline counters.
type Metrics interface {
	FrameSent()
	FrameDropped()
	ConnectAttempt()
	UtteranceQueued()
	DispatchCompleted(result string)
	ActionExecuted(action domain.Action, result string)
	ChannelState(state domain.ChannelState)
}

type NoopMetrics struct{}

func (NoopMetrics) FrameSent()                           {}
func (NoopMetrics) FrameDropped()                        {}
func (NoopMetrics) ConnectAttempt()                      {}
func (NoopMetrics) UtteranceQueued()                     {}
func (NoopMetrics) DispatchCompleted(string)             {}
func (NoopMetrics) ActionExecuted(domain.Action, string) {}
func (NoopMetrics) ChannelState(domain.ChannelState)     {}
