// Package metrics expone contadores Prometheus de HTTP, inicio de sesión y stock.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados de un guardado de stock.
const (
	StockResultSaved   = "saved"
	StockResultRetried = "retried"
	StockResultFailed  = "failed"
)

// Metrics colectores de la aplicación, registrados en un registro propio.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	loginAttempts *prometheus.CounterVec
	stockSaves    *prometheus.CounterVec
}

// New registra los colectores con el prefijo dado. sessions informa del número
// de sesiones en memoria; puede ser nil.
func New(prefix string, sessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.httpRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.httpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	m.loginAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)
	m.stockSaves = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stock_saves_total",
			Help: "Stock save attempts by result",
		},
		[]string{"result"},
	)
	if sessions != nil {
		factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: prefix + "_active_sessions",
				Help: "Client sessions held in memory",
			},
			func() float64 { return float64(sessions()) },
		)
	}
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Registry registro con los colectores, para pruebas y exposición.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware cuenta peticiones y su duración por ruta.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if status < fiber.StatusBadRequest {
				status = fiber.StatusInternalServerError
			}
		}
		path := c.Route().Path
		labels := []string{c.Method(), path, strconv.Itoa(status)}
		m.httpRequests.WithLabelValues(labels...).Inc()
		m.httpDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler expone el registro en formato Prometheus.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// LoginAttempt cuenta un intento de inicio de sesión ("ok", "mfa_required" o la categoría de error).
func (m *Metrics) LoginAttempt(result string) {
	m.loginAttempts.WithLabelValues(result).Inc()
}

// StockSaved implementa stock.Metrics.
func (m *Metrics) StockSaved() { m.stockSaves.WithLabelValues(StockResultSaved).Inc() }

// StockRetried implementa stock.Metrics.
func (m *Metrics) StockRetried() { m.stockSaves.WithLabelValues(StockResultRetried).Inc() }

// StockFailed implementa stock.Metrics.
func (m *Metrics) StockFailed() { m.stockSaves.WithLabelValues(StockResultFailed).Inc() }
