package control

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/geoviewer/camsync/internal/control"

// meter returns the global meter for this package. Returns a no-op meter if
// OTel is not configured.
func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

func outcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String("outcome", outcome)
}
