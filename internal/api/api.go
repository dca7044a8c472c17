package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tradedesk/pkg/tradedesk"
)

// StorageInfo describes where the store keeps its data. It is reported by
// GET /api/storage.
type StorageInfo struct {
	Backend   string `json:"backend"`
	KVDriver  string `json:"kvDriver,omitempty"`
	DataDir   string `json:"dataDir,omitempty"`
	DBPath    string `json:"dbPath,omitempty"`
	RemoteURL string `json:"remoteUrl,omitempty"`
}

// Options configures NewRouter.
type Options struct {
	Logger  *slog.Logger
	Storage StorageInfo
	// AllowedOrigins defaults to every origin.
	AllowedOrigins []string
}

// NewRouter builds the HTTP API router.
func NewRouter(store *tradedesk.Store, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	h := &handler{store: store, storage: opts.Storage, logger: logger}

	r.Get("/api/health", h.health)
	r.Get("/api/storage", h.getStorage)

	// Journal
	r.Get("/api/journal", h.listJournal)
	r.Post("/api/journal", h.addJournalEntry)
	r.Post("/api/journal/digest", h.journalDigest)
	r.With(requireConfirm).Delete("/api/journal/{id}", h.deleteJournalEntry)

	// Portfolio
	r.Get("/api/portfolio", h.listPortfolio)
	r.Post("/api/portfolio", h.addPortfolioItem)
	r.Get("/api/portfolio/valuation", h.portfolioValuation)
	r.Put("/api/portfolio/{id}", h.editPortfolioItem)
	r.Delete("/api/portfolio/{id}", h.deletePortfolioItem)

	// Trades
	r.Get("/api/trades", h.listTrades)
	r.Post("/api/trades", h.addTrade)
	r.Get("/api/trades/stats", h.tradeStats)
	r.Put("/api/trades/{id}", h.editTrade)
	r.With(requireConfirm).Delete("/api/trades/{id}", h.deleteTrade)
	r.With(requireConfirm).Delete("/api/trades", h.clearTrades)

	// Prices
	r.Get("/api/prices", h.getPrices)
	r.Post("/api/prices/refresh", h.refreshPrices)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

type handler struct {
	store   *tradedesk.Store
	storage StorageInfo
	logger  *slog.Logger
}

// requireConfirm rejects destructive requests that lack confirm=true.
func requireConfirm(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("confirm") != "true" {
			writeError(w, r, http.StatusPreconditionRequired, "destructive operation requires confirm=true")
			return
		}
		next.ServeHTTP(w, r)
	})
}
