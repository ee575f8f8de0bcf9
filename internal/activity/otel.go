package activity

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/agrosync/fieldops/internal/activity"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
