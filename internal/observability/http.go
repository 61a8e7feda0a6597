package observability

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type scrapeErrorLog struct {
	logger zerolog.Logger
}

func (l scrapeErrorLog) Println(v ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprint(v...))
}

// MetricsHandler serves the console and platform collectors for Prometheus.
// Collection errors are logged and the remaining metrics are still returned.
func MetricsHandler(logger zerolog.Logger) fiber.Handler {
	RegisterMetrics()
	h := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:      scrapeErrorLog{logger: logger.With().Str("component", "metrics").Logger()},
		ErrorHandling: promhttp.ContinueOnError,
	})
	return adaptor.HTTPHandler(h)
}
