package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/wallet-indexer/pkg/app/errors"
	apphttp "github.com/chainsafe/wallet-indexer/pkg/app/http"
	"github.com/chainsafe/wallet-indexer/pkg/collector"
	"github.com/chainsafe/wallet-indexer/pkg/config"
	"github.com/chainsafe/wallet-indexer/pkg/indexer"
)

const defaultRequestTimeout = 60 * time.Second

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func setupRouter(
	serverCfg *config.ServerConfig,
	monitoringCfg *config.MonitoringConfig,
	collectorService collector.Service,
	indexerService indexer.Service,
	logger *zap.Logger,
) chi.Router {
	requestTimeout := serverCfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: serverCfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.NotFound(apphttp.HandleError(func(http.ResponseWriter, *http.Request) error {
		return apperrors.ResourceNotFoundError(nil, "route not found")
	}))
	r.MethodNotAllowed(apphttp.HandleError(func(http.ResponseWriter, *http.Request) error {
		return apperrors.NotSupportedError(nil, "method not allowed")
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			apphttp.WriteJSON(w, http.StatusOK, healthResponse{
				Status:    "ok",
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			})
		})

		collector.RegisterRoutes(r, collectorService, logger)
		indexer.RegisterRoutes(r, indexerService, collectorService, logger)

		// Legacy paths
		r.Get("/index-transactions", redirect("/api/transactions/index"))
		r.Get("/list-addresses", redirect("/api/addresses/list"))
		r.Get("/list-transactions", redirect("/api/transactions/list"))
		r.Get("/list-transactions/{address}", func(w http.ResponseWriter, req *http.Request) {
			redirect("/api/transactions/list/"+url.PathEscape(chi.URLParam(req, "address")))(w, req)
		})
	})

	if monitoringCfg.Enabled {
		r.Handle(monitoringCfg.MetricsPath, promhttp.Handler())
	}

	return r
}

func redirect(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}
