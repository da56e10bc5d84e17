// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/absmach/mqttsn/storage"
	"github.com/absmach/mqttsn/transport"
)

// Config holds health check server configuration.
type Config struct {
	Address         string
	ShutdownTimeout time.Duration
}

// Gateway is the view of a gateway session the health checks need.
type Gateway interface {
	Ready() bool
	KnownAddresses() []transport.Address
}

// Server provides health check endpoints for a gateway process.
type Server struct {
	config   Config
	gateway  Gateway
	table    storage.AddressTable
	logger   *slog.Logger
	server   *http.Server
	listener net.Listener
}

// New creates a new health check server. table may be nil when the mesh
// keeps no persistent address assignments.
func New(cfg Config, gw Gateway, table storage.AddressTable, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  cfg,
		gateway: gw,
		table:   table,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/peers", s.handlePeers)

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler serving the health checks.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the listener's network address, or "" before Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listen serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	s.listener = listener

	s.logger.Info("Starting health check server", "address", s.listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Health check server shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Health check server shutdown error", "error", err)
			return err
		}

		s.logger.Info("Health check server stopped")
		return nil
	}
}

// HealthResponse represents the liveness check response.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status  string `json:"status"`
	Peers   int    `json:"peers"`
	Details string `json:"details,omitempty"`
}

// handleReady returns 200 once the gateway has joined the mesh as root.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.gateway == nil {
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status:  "not_ready",
			Details: "gateway not initialized",
		})
		return
	}
	if !s.gateway.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status:  "not_ready",
			Details: "mesh not joined",
		})
		return
	}

	writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Peers:  len(s.gateway.KnownAddresses()),
	})
}

// Peer describes one node reachable through the mesh.
type Peer struct {
	Address   string     `json:"address"`
	NodeID    *uint8     `json:"node_id,omitempty"`
	Endpoint  string     `json:"endpoint,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// PeersResponse lists the known peers.
type PeersResponse struct {
	Count int    `json:"count"`
	Peers []Peer `json:"peers"`
}

// handlePeers lists known mesh addresses, enriched with their stored
// assignment when an address table is configured.
func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.gateway == nil {
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status:  "not_ready",
			Details: "gateway not initialized",
		})
		return
	}

	addrs := s.gateway.KnownAddresses()
	resp := PeersResponse{Count: len(addrs), Peers: make([]Peer, 0, len(addrs))}
	for _, addr := range addrs {
		p := Peer{Address: addr.String()}
		if s.table != nil {
			a, err := s.table.ByAddress(r.Context(), uint16(addr))
			switch {
			case err == nil:
				id, at := a.NodeID, a.UpdatedAt
				p.NodeID = &id
				p.Endpoint = a.Endpoint
				p.UpdatedAt = &at
			case !errors.Is(err, storage.ErrNotFound):
				s.logger.Warn("peer lookup failed", slog.String("address", addr.String()), "error", err)
			}
		}
		resp.Peers = append(resp.Peers, p)
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
