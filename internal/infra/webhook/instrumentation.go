package webhook

import "go.opentelemetry.io/otel"

const scopeName = "kiosk-voice/internal/infra/webhook"

var tracer = otel.Tracer(scopeName)
