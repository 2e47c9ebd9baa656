package devserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the per-server Prometheus collectors. Each dev server
// carries its own registry so parallel servers in tests do not collide.
type metrics struct {
	connectedClients *prometheus.GaugeVec
	broadcasts       *prometheus.CounterVec
	requestsProxied  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		connectedClients: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "skiff",
			Subsystem: "devserver",
			Name:      "connected_clients",
			Help:      "Number of clients connected to a WebSocket endpoint.",
		}, []string{"socket"}),
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skiff",
			Subsystem: "devserver",
			Name:      "broadcasts_total",
			Help:      "Messages broadcast to WebSocket clients.",
		}, []string{"socket"}),
		requestsProxied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "skiff",
			Subsystem: "devserver",
			Name:      "requests_total",
			Help:      "HTTP requests handled by the dev server.",
		}),
	}
}

// countRequests increments the request counter around a handler.
func countRequests(m *metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.requestsProxied.Inc()
			next.ServeHTTP(w, r)
		})
	}
}
