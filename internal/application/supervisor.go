package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kiosk-voice/internal/domain"
)

const DefaultSupervisorInterval = 5 * time.Second

// Supervisor reconnects the channel on a fixed interval whenever it is not open.
type Supervisor struct {
	channel  Channel
	interval time.Duration
	metrics  Metrics
	logger   *slog.Logger
}

func NewSupervisor(channel Channel, interval time.Duration, metrics Metrics, logger *slog.Logger) *Supervisor {
	if interval <= 0 {
		interval = DefaultSupervisorInterval
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Supervisor{
		channel:  channel,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, checking the channel once per interval.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick issues at most one connect attempt.
func (s *Supervisor) Tick(ctx context.Context) {
	state := s.channel.State()
	s.metrics.ChannelState(state)
	if state == domain.ChannelOpen {
		return
	}

	s.logger.Info("channel not open, reconnecting", "state", state)
	err := s.channel.Connect(ctx, false)
	if errors.Is(err, domain.ErrConnectInFlight) {
		s.logger.Debug("connect already pending")
		return
	}
	s.metrics.ConnectAttempt()
	if err != nil {
		s.logger.Warn("reconnect failed", "error", err)
	}
}
