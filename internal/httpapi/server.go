// Package httpapi serves health, service info, the smart-money registry and
// metrics over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"alpha-radar/internal/logging"
	"alpha-radar/internal/model"
	"alpha-radar/internal/registry"
)

// TaskStatus reports whether a recurring task is active.
type TaskStatus interface {
	Running() bool
}

// WalletAdder queues a wallet for background analysis.
type WalletAdder interface {
	AddKnownWallet(ctx context.Context, wallet string) error
}

// Deps are the views the server exposes. Wallets may be nil, which leaves
// the registry read-only.
type Deps struct {
	Name     string
	Version  string
	Registry *registry.Registry
	Wallets  WalletAdder
	Tasks    map[string]TaskStatus
	Metrics  http.Handler
}

// Server is the status HTTP server.
type Server struct {
	deps    Deps
	mux     *http.ServeMux
	server  *http.Server
	logger  zerolog.Logger
	started time.Time
	now     func() time.Time

	listener net.Listener
	done     chan struct{}
}

// NewServer creates a server with all routes registered.
func NewServer(addr string, deps Deps, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		deps:    deps,
		mux:     mux,
		logger:  logger.With().Str("component", "http").Logger(),
		started: time.Now(),
		now:     time.Now,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/smart-wallets", s.handleSmartWallets)
	if s.deps.Wallets != nil {
		s.mux.HandleFunc("POST /api/smart-wallets", s.handleAddWallet)
	}
	if s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics)
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start binds the listener and serves in the background. Bind failures are
// returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("http server stopped")
		}
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	<-s.done
	return err
}

type healthResponse struct {
	Status       string          `json:"status"`
	Timestamp    time.Time       `json:"timestamp"`
	Uptime       string          `json:"uptime"`
	SmartWallets int             `json:"smart_wallets"`
	Tasks        map[string]bool `json:"tasks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	tasks := make(map[string]bool, len(s.deps.Tasks))
	for name, t := range s.deps.Tasks {
		tasks[name] = t.Running()
	}
	resp := healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC(),
		Uptime:    s.now().Sub(s.started).Truncate(time.Second).String(),
		Tasks:     tasks,
	}
	if s.deps.Registry != nil {
		resp.SmartWallets = s.deps.Registry.Len()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type indexResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	endpoints := []string{"/health", "/api/smart-wallets"}
	if s.deps.Metrics != nil {
		endpoints = append(endpoints, "/metrics")
	}
	sort.Strings(endpoints)
	s.writeJSON(w, http.StatusOK, indexResponse{Name: s.deps.Name, Version: s.deps.Version, Endpoints: endpoints})
}

type walletResponse struct {
	Address        string          `json:"address"`
	WinRate        float64         `json:"win_rate"`
	TotalTrades    int             `json:"total_trades"`
	AvgProfitPct   decimal.Decimal `json:"avg_profit_pct"`
	TotalProfitUSD decimal.Decimal `json:"total_profit_usd"`
	LastActive     time.Time       `json:"last_active"`
}

func (s *Server) handleSmartWallets(w http.ResponseWriter, r *http.Request) {
	var profiles []model.WalletProfile
	if s.deps.Registry != nil {
		profiles = s.deps.Registry.Ranked()
	}
	out := make([]walletResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, walletResponse{
			Address:        p.Address,
			WinRate:        p.WinRate,
			TotalTrades:    p.TotalTrades,
			AvgProfitPct:   p.AvgProfitPct,
			TotalProfitUSD: p.TotalProfitUSD,
			LastActive:     p.LastActive.UTC(),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "wallets": out})
}

type addWalletRequest struct {
	Address string `json:"address"`
}

// handleAddWallet accepts a wallet for analysis. The analysis outlives the
// request, so it runs on a context that is not cancelled with it.
func (s *Server) handleAddWallet(w http.ResponseWriter, r *http.Request) {
	var req addWalletRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.deps.Wallets.AddKnownWallet(context.WithoutCancel(r.Context()), req.Address); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Info().Str("wallet", logging.ShortAddr(req.Address)).Msg("wallet queued for analysis")
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "address": req.Address})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode response failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
