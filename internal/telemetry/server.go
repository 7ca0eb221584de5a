package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartMetricsServer serves the Prometheus scrape endpoint on addr and
// returns a shutdown func. The otel prometheus exporter registers its
// collector with the default registerer, so promhttp.Handler is enough.
func StartMetricsServer(addr string) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv.Shutdown
}
