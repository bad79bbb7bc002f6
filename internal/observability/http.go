package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the HTTP and scoring collectors on a Fiber route.
// A nil gatherer scrapes the default registry.
func MetricsHandler(gatherer prometheus.Gatherer) fiber.Handler {
	RegisterMetrics()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	}))
}
