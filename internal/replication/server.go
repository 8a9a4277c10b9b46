package replication

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	metricsRoutePathConstant            = "/metrics"
	healthRoutePathConstant             = "/healthz"
	healthResponseBodyConstant          = "ok\n"
	serverReadHeaderTimeoutConstant     = 5 * time.Second
	serverShutdownTimeoutConstant       = 5 * time.Second
	metricsServerStartedMessageConstant = "Serving metrics"
	metricsServerStoppedMessageConstant = "Metrics server stopped"
	addressLogFieldConstant             = "address"
)

// MetricsServer exposes Prometheus metrics and a liveness probe over HTTP.
type MetricsServer struct {
	logger *zap.Logger
	server *http.Server
}

// NewMetricsServer builds a server for address serving the collectors known to gatherer.
func NewMetricsServer(address string, gatherer prometheus.Gatherer, logger *zap.Logger) *MetricsServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := chi.NewRouter()
	router.Method(http.MethodGet, metricsRoutePathConstant, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.Get(healthRoutePathConstant, func(responseWriter http.ResponseWriter, _ *http.Request) {
		responseWriter.WriteHeader(http.StatusOK)
		_, _ = responseWriter.Write([]byte(healthResponseBodyConstant))
	})

	return &MetricsServer{
		logger: logger,
		server: &http.Server{
			Addr:              address,
			Handler:           router,
			ReadHeaderTimeout: serverReadHeaderTimeoutConstant,
		},
	}
}

// Handler returns the HTTP routes.
func (metricsServer *MetricsServer) Handler() http.Handler {
	return metricsServer.server.Handler
}

// Run serves until the context is cancelled, then shuts the server down.
func (metricsServer *MetricsServer) Run(executionContext context.Context) error {
	serveErrors := make(chan error, 1)
	go func() {
		metricsServer.logger.Info(metricsServerStartedMessageConstant, zap.String(addressLogFieldConstant, metricsServer.server.Addr))
		serveErrors <- metricsServer.server.ListenAndServe()
	}()

	select {
	case serveError := <-serveErrors:
		if errors.Is(serveError, http.ErrServerClosed) {
			return nil
		}
		return serveError
	case <-executionContext.Done():
		shutdownContext, cancel := context.WithTimeout(context.Background(), serverShutdownTimeoutConstant)
		defer cancel()
		shutdownError := metricsServer.server.Shutdown(shutdownContext)
		metricsServer.logger.Info(metricsServerStoppedMessageConstant)
		return shutdownError
	}
}
