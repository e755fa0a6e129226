package orchestrator

import "go.opentelemetry.io/otel"

const scopeName = "github.com/nahida-ai/nahida/internal/orchestrator"

var tracer = otel.Tracer(scopeName)
