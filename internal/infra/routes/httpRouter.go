package routes

import (
	"net/http"

	"voice-connector/internal/infra/handlers"
	"voice-connector/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Routes struct {
	Mux         *mux.Router
	HttpHandler *handlers.HttpHandlers
	Metrics     *metrics.Metrics
}

func NewRoutes(mux *mux.Router, httpHandler *handlers.HttpHandlers, m *metrics.Metrics) *Routes {
	return &Routes{mux, httpHandler, m}
}

func (r *Routes) Init() {
	r.Mux.HandleFunc("/healthCheck", r.HttpHandler.HealthCheck).Methods(http.MethodGet)

	r.Mux.Handle("/metrics", promhttp.HandlerFor(r.Metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
