// Package metrics exposes Prometheus counters for issuer calls and
// provisioning outcomes, and runs the standalone metrics listener started
// next to the API server.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	serviceInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "card_issuing",
		Name:      "up",
		Help:      "Set to 1 while the service is running.",
	}, []string{"service"})

	issuerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "card_issuing",
		Subsystem: "issuer",
		Name:      "requests_total",
		Help:      "Issuer API calls by operation and HTTP status code.",
	}, []string{"operation", "code"})

	provisioningTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "card_issuing",
		Subsystem: "provisioning",
		Name:      "stages_total",
		Help:      "Provisioning stage outcomes.",
	}, []string{"stage", "outcome"})
)

// ObserveIssuerCall records one issuer API exchange. A statusCode of 0
// means the call failed at the transport level.
func ObserveIssuerCall(operation string, statusCode int) {
	code := "transport_error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	issuerRequestsTotal.WithLabelValues(operation, code).Inc()
}

// ObserveProvisioning records the outcome of one provisioning stage.
func ObserveProvisioning(stage, outcome string) {
	provisioningTotal.WithLabelValues(stage, outcome).Inc()
}

// MetricsServer serves the Prometheus scrape endpoint on its own listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given service name and address.
func New(service, listenAddr string) (*MetricsServer, error) {
	serviceInfo.WithLabelValues(service).Set(1)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
