package service

import "go.opentelemetry.io/otel"

var tracer = otel.GetTracerProvider().Tracer("eating-management/backend/internal/service")
