// Package httpapi serves the operational HTTP endpoints of the bot.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/glebk/pizza-bot/internal/domain"
)

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// OrderHistory reads journaled orders and saved addresses of a customer
type OrderHistory interface {
	Orders(customerID int64) ([]*domain.Order, error)
	Addresses(ctx context.Context, customerID int64) ([]domain.CustomerAddress, error)
}

// Server is the operational HTTP server
type Server struct {
	checks  map[string]HealthCheck
	history OrderHistory
	metrics http.Handler
	token   string
	logger  *slog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithAPIToken enables the customer routes behind a bearer token
func WithAPIToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// New creates a Server. metrics may be nil to disable /metrics.
// Customer routes are served only when an API token is configured.
func New(checks map[string]HealthCheck, history OrderHistory, metrics http.Handler, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		checks:  checks,
		history: history,
		metrics: metrics,
		logger:  logger.With("component", "httpapi"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.token != "" {
		r.Route("/customers/{customerID}", func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/orders", s.orders)
			r.Get("/addresses", s.addresses)
		})
	}
	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(s.checks))}
	code := http.StatusOK

	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	s.writeJSON(w, code, resp)
}

type orderResponse struct {
	ID          string    `json:"id"`
	Method      string    `json:"method"`
	CartTotal   int       `json:"cart_total"`
	DeliveryFee int       `json:"delivery_fee"`
	Sum         int       `json:"sum"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	SiteAddress string    `json:"site_address"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) orders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := s.customerID(w, r)
	if !ok {
		return
	}

	orders, err := s.history.Orders(customerID)
	if err != nil {
		s.logger.Error("failed to list orders", "customer_id", customerID, "error", err)
		http.Error(w, "failed to list orders", http.StatusInternalServerError)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, orderResponse{
			ID:          o.ID,
			Method:      string(o.Method),
			CartTotal:   o.CartTotal,
			DeliveryFee: o.DeliveryFee,
			Sum:         o.Sum(),
			Lat:         o.Position.Lat,
			Lon:         o.Position.Lon,
			SiteAddress: o.SiteAddress,
			CreatedAt:   o.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type addressResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (s *Server) addresses(w http.ResponseWriter, r *http.Request) {
	customerID, ok := s.customerID(w, r)
	if !ok {
		return
	}

	addrs, err := s.history.Addresses(r.Context(), customerID)
	if err != nil {
		s.logger.Error("failed to list addresses", "customer_id", customerID, "error", err)
		http.Error(w, "failed to list addresses", http.StatusBadGateway)
		return
	}

	resp := make([]addressResponse, 0, len(addrs))
	for _, a := range addrs {
		resp = append(resp, addressResponse{Lat: a.Position.Lat, Lon: a.Position.Lon})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}
