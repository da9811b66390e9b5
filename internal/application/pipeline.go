package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kiosk-voice/internal/domain"
)

const (
	DefaultStatusTTL   = 3 * time.Second
	defaultEventBuffer = 256
)

var ErrModeNotSupported = errors.New("operation not supported in this mode")

type PipelineConfig struct {
	Mode       domain.Mode
	Capture    AudioCapture
	Channel    Channel
	Dispatcher IntentDispatcher
	Uploader   ClipUploader
	Encoder    ClipEncoder
	Kiosk      KioskState
	Display    Display
	Metrics    Metrics
	// StatusTTL is how long a final batch status stays on screen.
	StatusTTL   time.Duration
	EventBuffer int
}

// Snapshot is a copy of the pipeline state for status reporting.
type Snapshot struct {
	Mode         domain.Mode        `json:"mode"`
	ChannelState string             `json:"channel_state,omitempty"`
	Capturing    bool               `json:"capturing"`
	Recording    bool               `json:"recording"`
	Uploading    bool               `json:"uploading"`
	Status       string             `json:"status"`
	Live         string             `json:"live"`
	Pending      []domain.Utterance `json:"pending"`
	Cart         domain.Cart        `json:"cart"`
	AgeGroup     domain.AgeGroup    `json:"age_group,omitempty"`
}

type event any

type frameEvent struct {
	frame domain.AudioFrame
}

type fragmentEvent struct {
	fragment domain.TranscriptFragment
}

type dispatchDone struct {
	utterance domain.Utterance
	reply     *domain.Reply
	err       error
}

type uploadDone struct {
	reply *domain.Reply
	err   error
}

type toggleRecording struct {
	result chan error
}

type restartEvent struct{}

type ageEvent struct {
	age float64
}

type clearStatus struct {
	seq int
}

type snapshotRequest struct {
	result chan Snapshot
}

// Pipeline owns the aggregator, the executor and the kiosk state. Every
// callback is turned into an event and handled on the goroutine running Run.
type Pipeline struct {
	cfg        PipelineConfig
	aggregator *Aggregator
	executor   *Executor
	recorder   Recorder
	age        AgeTracker
	logger     *slog.Logger

	events chan event
	done   chan struct{}

	capturing bool
	status    string
	statusSeq int
}

func NewPipeline(cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if cfg.Display == nil {
		cfg.Display = NoopDisplay{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoopMetrics{}
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = DefaultStatusTTL
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	return &Pipeline{
		cfg:        cfg,
		aggregator: NewAggregator(),
		executor:   NewExecutor(cfg.Kiosk, cfg.Metrics, logger),
		logger:     logger,
		events:     make(chan event, cfg.EventBuffer),
		done:       make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled, then releases the microphone
// and the channel.
func (p *Pipeline) Run(ctx context.Context) error {
	defer close(p.done)
	defer p.shutdown()

	p.logger.Info("pipeline starting", "mode", p.cfg.Mode)

	switch p.cfg.Mode {
	case domain.ModeStreaming:
		if p.cfg.Channel == nil {
			return fmt.Errorf("streaming mode requires a channel")
		}
		go p.forwardFragments(ctx)
		p.connect(ctx, false)
		if err := p.startCapture(ctx); err != nil {
			p.logger.Warn("streaming without audio until restart", "error", err)
		}
	case domain.ModeBatch:
		if p.cfg.Uploader == nil || p.cfg.Encoder == nil {
			return fmt.Errorf("batch mode requires an uploader and an encoder")
		}
		p.setStatus("press the voice button to speak")
	case domain.ModeSpeech:
		p.setStatus("listening")
	default:
		return fmt.Errorf("unknown mode %q", p.cfg.Mode)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			p.handle(ctx, ev)
		}
	}
}

// SubmitFragment feeds a recognition result into the pipeline.
func (p *Pipeline) SubmitFragment(ctx context.Context, f domain.TranscriptFragment) error {
	return p.post(ctx, fragmentEvent{fragment: f})
}

// ToggleRecording starts or stops a batch recording.
func (p *Pipeline) ToggleRecording(ctx context.Context) error {
	if p.cfg.Mode != domain.ModeBatch {
		return ErrModeNotSupported
	}
	result := make(chan error, 1)
	if err := p.post(ctx, toggleRecording{result: result}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return errors.New("pipeline stopped")
	}
}

// Restart tears down and reinitializes capture and channel.
func (p *Pipeline) Restart(ctx context.Context) error {
	return p.post(ctx, restartEvent{})
}

// ReportAge feeds an age estimate from the camera.
func (p *Pipeline) ReportAge(ctx context.Context, age float64) error {
	return p.post(ctx, ageEvent{age: age})
}

func (p *Pipeline) Snapshot(ctx context.Context) (Snapshot, error) {
	result := make(chan Snapshot, 1)
	if err := p.post(ctx, snapshotRequest{result: result}); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-result:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-p.done:
		return Snapshot{}, errors.New("pipeline stopped")
	}
}

func (p *Pipeline) post(ctx context.Context, ev event) error {
	select {
	case p.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return errors.New("pipeline stopped")
	}
}

// tryPost never blocks; it reports whether the event was queued.
func (p *Pipeline) tryPost(ev event) bool {
	select {
	case p.events <- ev:
		return true
	default:
		return false
	}
}

func (p *Pipeline) handle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case frameEvent:
		p.handleFrame(e.frame)
	case fragmentEvent:
		p.handleFragment(ctx, e.fragment)
	case dispatchDone:
		p.handleDispatchDone(e)
	case toggleRecording:
		e.result <- p.handleToggle(ctx)
	case uploadDone:
		p.handleUploadDone(e)
	case restartEvent:
		p.restart(ctx)
	case ageEvent:
		if group, changed := p.age.Observe(e.age); changed {
			p.logger.Info("age group estimated", "age", e.age, "group", group)
			p.cfg.Kiosk.UI.SelectAge(group)
		}
	case clearStatus:
		if e.seq == p.statusSeq {
			p.setStatus("")
		}
	case snapshotRequest:
		e.result <- p.snapshot()
	default:
		p.logger.Warn("unhandled event", "type", fmt.Sprintf("%T", ev))
	}
}

func (p *Pipeline) handleFrame(frame domain.AudioFrame) {
	switch p.cfg.Mode {
	case domain.ModeStreaming:
		if err := p.cfg.Channel.Send(frame); err != nil {
			p.cfg.Metrics.FrameDropped()
			if !errors.Is(err, domain.ErrChannelNotOpen) {
				p.logger.Debug("frame send failed", "error", err)
			}
			return
		}
		p.cfg.Metrics.FrameSent()
	case domain.ModeBatch:
		p.recorder.Add(frame)
	}
}

func (p *Pipeline) handleFragment(ctx context.Context, f domain.TranscriptFragment) {
	u, queued := p.aggregator.Accept(f)
	p.cfg.Display.SetLiveTranscript(p.aggregator.Live())
	if !queued {
		return
	}

	p.logger.Info("utterance queued", "id", u.ID, "text", u.Text, "pending", len(p.aggregator.Pending()))
	p.cfg.Metrics.UtteranceQueued()

	if p.cfg.Dispatcher == nil {
		p.aggregator.Complete(u.ID)
		return
	}

	go func() {
		reply, err := p.cfg.Dispatcher.Dispatch(ctx, u.Text)
		_ = p.post(context.Background(), dispatchDone{utterance: u, reply: reply, err: err})
	}()
}

func (p *Pipeline) handleDispatchDone(e dispatchDone) {
	p.aggregator.Complete(e.utterance.ID)

	switch {
	case errors.Is(e.err, domain.ErrDecode):
		p.cfg.Metrics.DispatchCompleted("decode_error")
		p.logger.Error("webhook reply not understood", "text", e.utterance.Text, "error", e.err)
		p.setStatus("response format error")
		return
	case e.err != nil:
		p.cfg.Metrics.DispatchCompleted("transport_error")
		p.logger.Error("dispatch failed", "text", e.utterance.Text, "error", e.err)
		p.setStatus(fmt.Sprintf("error: %v", e.err))
		return
	}

	p.cfg.Metrics.DispatchCompleted("ok")
	p.applyReply(e.reply)
}

func (p *Pipeline) applyReply(reply *domain.Reply) {
	if reply == nil {
		return
	}
	if reply.Message != "" {
		p.cfg.Display.ShowMessage(reply.Message)
	}
	if reply.Intent != nil {
		_ = p.executor.Execute(*reply.Intent)
	}
}

func (p *Pipeline) handleToggle(ctx context.Context) error {
	if p.recorder.Uploading() {
		p.setStatus("still sending the last recording")
		return errors.New("upload in progress")
	}

	if !p.recorder.Recording() {
		if !p.recorder.Begin() {
			return errors.New("recording already active")
		}
		if err := p.startCapture(ctx); err != nil {
			p.recorder.Reset()
			return err
		}
		p.setStatus("listening... press again to stop")
		return nil
	}

	p.stopCapture()
	frames := p.recorder.Finish()
	if len(frames) == 0 {
		p.flashStatus("nothing was recorded")
		return nil
	}

	clip := p.cfg.Encoder(frames)
	p.logger.Info("uploading recording", "frames", len(frames), "bytes", len(clip))
	p.setStatus("sending...")

	go func() {
		reply, err := p.cfg.Uploader.Upload(ctx, clip)
		_ = p.post(context.Background(), uploadDone{reply: reply, err: err})
	}()
	return nil
}

func (p *Pipeline) handleUploadDone(e uploadDone) {
	p.recorder.UploadDone()

	switch {
	case errors.Is(e.err, domain.ErrDecode):
		p.cfg.Metrics.DispatchCompleted("decode_error")
		p.logger.Error("webhook reply not understood", "error", e.err)
		p.setStatus("response format error")
		return
	case e.err != nil:
		p.cfg.Metrics.DispatchCompleted("transport_error")
		p.logger.Error("upload failed", "error", e.err)
		p.flashStatus(fmt.Sprintf("error: %v", e.err))
		return
	}

	p.cfg.Metrics.DispatchCompleted("ok")
	p.flashStatus("done")
	p.applyReply(e.reply)
}

func (p *Pipeline) restart(ctx context.Context) {
	p.logger.Info("restarting voice pipeline")

	p.stopCapture()
	p.recorder.Reset()

	if p.cfg.Mode != domain.ModeStreaming {
		p.setStatus("restarted")
		return
	}

	if err := p.cfg.Channel.Close(); err != nil {
		p.logger.Warn("closing channel", "error", err)
	}
	if err := p.startCapture(ctx); err != nil {
		p.logger.Warn("restarted without audio", "error", err)
	}
	p.connect(ctx, true)
}

// connect runs the attempt off the loop so a slow handshake never stalls events.
// Calls rejected with ErrConnectInFlight are not counted as attempts.
func (p *Pipeline) connect(ctx context.Context, force bool) {
	go func() {
		err := p.cfg.Channel.Connect(ctx, force)
		if errors.Is(err, domain.ErrConnectInFlight) {
			return
		}
		p.cfg.Metrics.ConnectAttempt()
		if err != nil {
			p.logger.Warn("connect failed, supervisor will retry", "error", err)
		}
	}()
}

func (p *Pipeline) forwardFragments(ctx context.Context) {
	fragments := p.cfg.Channel.Fragments()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-fragments:
			if !ok {
				return
			}
			if err := p.post(ctx, fragmentEvent{fragment: f}); err != nil {
				return
			}
		}
	}
}

func (p *Pipeline) startCapture(ctx context.Context) error {
	if p.cfg.Capture == nil {
		return fmt.Errorf("%w: no capture configured", domain.ErrDeviceUnavailable)
	}
	if p.capturing {
		return nil
	}

	err := p.cfg.Capture.Start(ctx, func(frame domain.AudioFrame) {
		if !p.tryPost(frameEvent{frame: frame}) {
			p.cfg.Metrics.FrameDropped()
		}
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPermissionDenied):
			p.setStatus("microphone permission is required")
		case errors.Is(err, domain.ErrDeviceUnavailable):
			p.setStatus("no microphone found")
		default:
			p.setStatus("microphone error")
		}
		p.logger.Error("starting capture", "source", p.cfg.Capture.Name(), "error", err)
		return fmt.Errorf("starting capture: %w", err)
	}

	p.capturing = true
	p.logger.Info("capture started", "source", p.cfg.Capture.Name())
	return nil
}

func (p *Pipeline) stopCapture() {
	if !p.capturing {
		return
	}
	if err := p.cfg.Capture.Stop(); err != nil {
		p.logger.Warn("stopping capture", "error", err)
	}
	p.capturing = false
}

func (p *Pipeline) shutdown() {
	p.stopCapture()
	if p.cfg.Channel != nil {
		if err := p.cfg.Channel.Close(); err != nil {
			p.logger.Warn("closing channel", "error", err)
		}
	}
	p.logger.Info("pipeline stopped")
}

func (p *Pipeline) setStatus(text string) {
	p.statusSeq++
	p.status = text
	p.cfg.Display.SetStatus(text)
}

// flashStatus shows text and clears it after StatusTTL unless replaced.
func (p *Pipeline) flashStatus(text string) {
	p.setStatus(text)
	seq := p.statusSeq
	time.AfterFunc(p.cfg.StatusTTL, func() {
		p.tryPost(clearStatus{seq: seq})
	})
}

func (p *Pipeline) snapshot() Snapshot {
	s := Snapshot{
		Mode:      p.cfg.Mode,
		Capturing: p.capturing,
		Recording: p.recorder.Recording(),
		Uploading: p.recorder.Uploading(),
		Status:    p.status,
		Live:      p.aggregator.Live(),
		Pending:   p.aggregator.Pending(),
		AgeGroup:  p.age.Current(),
	}
	if p.cfg.Channel != nil {
		s.ChannelState = p.cfg.Channel.State().String()
	}
	if p.cfg.Kiosk.Cart != nil {
		s.Cart = p.cfg.Kiosk.Cart.Snapshot()
	}
	return s
}
