package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"kiosk-voice/internal/domain"
)

// Metrics contains the Prometheus collectors for the voice pipeline
type Metrics struct {
	// Audio path
	FramesSent    prometheus.Counter
	FramesDropped prometheus.Counter

	// Recognition channel
	ConnectAttempts prometheus.Counter
	ChannelOpen     prometheus.Gauge

	// Utterances and webhook
	UtterancesQueued prometheus.Counter
	Dispatches       *prometheus.CounterVec

	// Kiosk actions
	Actions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_voice_frames_sent_total",
			Help: "Total number of audio frames sent to the recognition server",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_voice_frames_dropped_total",
			Help: "Total number of audio frames discarded while the channel was not open or the pipeline was busy",
		}),

		ConnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_voice_connect_attempts_total",
			Help: "Total number of recognition channel connect attempts",
		}),
		ChannelOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kiosk_voice_channel_open",
			Help: "1 when the recognition channel is open, 0 otherwise",
		}),

		UtterancesQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_voice_utterances_queued_total",
			Help: "Total number of final utterances queued for dispatch",
		}),
		Dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_voice_dispatches_total",
			Help: "Webhook dispatches and uploads by result",
		}, []string{"result"}),

		Actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_voice_actions_total",
			Help: "Kiosk actions executed by action and result",
		}, []string{"action", "result"}),
	}
}

func (m *Metrics) FrameSent()       { m.FramesSent.Inc() }
func (m *Metrics) FrameDropped()    { m.FramesDropped.Inc() }
func (m *Metrics) ConnectAttempt()  { m.ConnectAttempts.Inc() }
func (m *Metrics) UtteranceQueued() { m.UtterancesQueued.Inc() }

func (m *Metrics) DispatchCompleted(result string) {
	m.Dispatches.WithLabelValues(result).Inc()
}

func (m *Metrics) ActionExecuted(action domain.Action, result string) {
	m.Actions.WithLabelValues(string(action), result).Inc()
}

func (m *Metrics) ChannelState(state domain.ChannelState) {
	if state == domain.ChannelOpen {
		m.ChannelOpen.Set(1)
		return
	}
	m.ChannelOpen.Set(0)
}
