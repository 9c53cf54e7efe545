package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dummy_device/device-go/internal/device"
	"dummy_device/device-go/internal/metrics"
)

type deviceStore interface {
	List(ctx context.Context) ([]device.Device, error)
	Get(ctx context.Context, id uuid.UUID) (device.Device, error)
	Create(ctx context.Context, name string, t device.Type) (device.Device, error)
	UpdateState(ctx context.Context, id uuid.UUID, state device.State) (device.Device, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Metrics *metrics.Metrics

	// AllowedOrigins feeds the CORS layer. Empty means any origin.
	AllowedOrigins []string

	// RequestTimeout bounds each request. Zero means 15s.
	RequestTimeout time.Duration
}

type Handler struct {
	log      zerolog.Logger
	devices  deviceStore
	db       pinger
	metrics  *metrics.Metrics
	validate *validator.Validate
	opts     Options
}

// NewHandler wires the HTTP surface. A nil store makes device routes answer
// 503; a nil db makes /readyz answer 503.
func NewHandler(log zerolog.Logger, store deviceStore, db pinger, opts Options) *Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Handler{
		log:      log,
		devices:  store,
		db:       db,
		metrics:  opts.Metrics,
		validate: newValidator(),
		opts:     opts,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(h.opts.RequestTimeout))

	// Health
	r.Get("/health", h.handleHealth)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// Devices
	r.Get("/devices", h.handleListDevices)
	r.Post("/devices", h.handleCreateDevice)
	r.Get("/devices/{id}", h.handleGetDevice)
	r.Put("/devices/{id}/state", h.handleUpdateDeviceState)

	return r
}

func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		h.metrics.ObserveHTTPRequest(r.Method, route, status, elapsed)

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, "OK")
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db == nil {
		h.writeError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("readiness ping failed")
		h.writeError(w, http.StatusServiceUnavailable, "database not ready")
		return
	}

	h.writeData(w, http.StatusOK, "READY")
}

func (h *Handler) ensureStore(w http.ResponseWriter) bool {
	if h.devices == nil {
		h.writeError(w, http.StatusServiceUnavailable, "database not configured")
		return false
	}
	return true
}

// writeStoreError maps the store's error taxonomy onto status codes. Storage
// failures are logged by the store and never echoed to the client.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error, failMsg string) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "device not found")
	case errors.Is(err, device.ErrStorage):
		h.writeError(w, http.StatusInternalServerError, failMsg)
	case errors.Is(err, device.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("unclassified device store error")
		h.writeError(w, http.StatusInternalServerError, failMsg)
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := device.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.log.Debug().Str("id", chi.URLParam(r, "id")).Msg("rejected malformed device id")
		h.writeError(w, http.StatusBadRequest, err.Error())
		return uuid.Nil, false
	}
	return id, true
}
