package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	rootconfig "poolzap/config"
	"poolzap/native/amm"
	"poolzap/native/zap"
	"poolzap/observability/metrics"
	"poolzap/services/zapd/storage"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress string
}

// Server hosts the orchestrator entry points, the event feed and health and
// metrics endpoints for zapd.
type Server struct {
	cfg     Config
	engine  *zap.Engine
	sim     *amm.Router
	store   *storage.Storage
	logger  *slog.Logger
	metrics *metrics.ZapMetrics

	httpServer *http.Server
}

// New constructs a new HTTP server around the orchestrator engine. The
// simulation router is optional; when present the position endpoint is
// served.
func New(cfg Config, engine *zap.Engine, sim *amm.Router, store *storage.Storage, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	return &Server{
		cfg:     cfg,
		engine:  engine,
		sim:     sim,
		store:   store,
		logger:  logger,
		metrics: metrics.Zap(),
	}, nil
}

// Handler returns the fully routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/zap", s.handleZap)
		v1.Post("/purchase", s.handlePurchase)
		v1.Post("/liquidity", s.handleLiquidity)
		v1.Post("/custody/deposit", s.handleDeposit)
		v1.Post("/custody/withdraw", s.handleWithdraw)
		v1.Get("/custody/{token}", s.handleCustodyBalance)
		v1.Get("/quote", s.handleQuote)
		v1.Get("/events", s.handleEvents)
		if s.sim != nil {
			v1.Get("/positions/{recipient}/{token}", s.handlePosition)
		}
	})
	return otelhttp.NewHandler(r, "zapd")
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case isValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, zap.ErrReentrantCall):
		status = http.StatusConflict
	case errors.Is(err, zap.ErrUnauthorized):
		status = http.StatusForbidden
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		zap.ErrInvalidPath,
		zap.ErrInvalidRecipient,
		zap.ErrInvalidToken,
		zap.ErrDeadlineExpired,
		zap.ErrZeroAmount,
		zap.ErrZeroSwapAmount,
		zap.ErrInsufficientSupplied,
		zap.ErrInsufficientCustody,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func decodeBody(r *http.Request, into any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(into)
}

func parseAddress(raw string) ([20]byte, error) {
	return rootconfig.ParseAddress(raw)
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, errors.New("amount must be a non-negative decimal integer")
	}
	return amount, nil
}

func parsePath(raw []string) ([][20]byte, error) {
	path := make([][20]byte, 0, len(raw))
	for _, hop := range raw {
		addr, err := parseAddress(hop)
		if err != nil {
			return nil, err
		}
		path = append(path, addr)
	}
	return path, nil
}

func formatAddress(addr [20]byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 2, 42)
	out[0], out[1] = '0', 'x'
	for _, b := range addr {
		out = append(out, hextable[b>>4], hextable[b&0x0f])
	}
	return string(out)
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func queryInt(r *http.Request, key string, fallback int64) int64 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
