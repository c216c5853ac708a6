package loop

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Xyntexx/AgOpenGPS/internal/loop"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
