package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kiosk-voice/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	clipFilename   = "voice_command.wav"
	maxReplySize   = 1 << 20
)

// Client talks to the automation webhook. It sends recognized text as JSON
// and recorded clips as multipart uploads; both get the same reply format.
type Client struct {
	url        string
	language   string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(url, language string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:      url,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
					return "webhook " + r.Method
				}),
			),
		},
		logger: logger,
		now:    time.Now,
	}
}

type dispatchRequest struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Language  string `json:"language"`
}

type replyBody struct {
	Message string        `json:"message"`
	Action  string        `json:"action"`
	Params  domain.Params `json:"params"`
}

// Dispatch posts recognized text. An unconfigured URL is logged and skipped.
func (c *Client) Dispatch(ctx context.Context, text string) (*domain.Reply, error) {
	if c.url == "" {
		c.logger.Warn("webhook url not configured, dropping utterance", "text", text)
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "webhook.Dispatch", trace.WithAttributes(
		attribute.String("webhook.language", c.language),
		attribute.Int("webhook.text_length", len(text)),
	))
	defer span.End()

	body, err := json.Marshal(dispatchRequest{
		Text:      text,
		Timestamp: c.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Language:  c.language,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	reply, err := c.post(ctx, "application/json", bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return reply, nil
}

// Upload posts a recorded clip as multipart/form-data field "file".
func (c *Client) Upload(ctx context.Context, clip []byte) (*domain.Reply, error) {
	if c.url == "" {
		c.logger.Warn("webhook url not configured, dropping recording", "bytes", len(clip))
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "webhook.Upload", trace.WithAttributes(
		attribute.Int("webhook.clip_bytes", len(clip)),
	))
	defer span.End()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", clipFilename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err = part.Write(clip); err != nil {
		return nil, fmt.Errorf("writing audio: %w", err)
	}
	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("closing writer: %w", err)
	}

	c.logger.Info("uploading clip", "bytes", len(clip))

	reply, err := c.post(ctx, writer.FormDataContentType(), body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return reply, nil
}

func (c *Client) post(ctx context.Context, contentType string, body io.Reader) (*domain.Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", domain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: webhook error %d: %s", domain.ErrTransport, resp.StatusCode, string(data))
	}

	var rb replyBody
	if err := json.Unmarshal(data, &rb); err != nil {
		return nil, fmt.Errorf("%w: parsing reply (%s): %w", domain.ErrDecode, string(data), err)
	}

	c.logger.Info("webhook replied", "message", rb.Message, "action", rb.Action)

	reply := &domain.Reply{Message: rb.Message}
	if rb.Action != "" {
		reply.Intent = &domain.Intent{Action: domain.Action(rb.Action), Params: rb.Params}
	}
	return reply, nil
}
