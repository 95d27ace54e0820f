package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"
)

// Server answers status queries on a Unix socket.
type Server struct {
	logger *slog.Logger
	snap   Snapshotter
	socket string
	ln     net.Listener
	srv    *http.Server
}

func NewServer(snap Snapshotter, logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		snap:   snap,
	}
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/v1/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/v1/endpoints", s.handleEndpoints).Methods("GET")
	r.HandleFunc("/v1/rules", s.handleRules).Methods("GET")
	return r
}

// Start listens on the socket and serves in the background. A stale socket
// from a previous run is replaced.
func (s *Server) Start(socketPath string) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("control: create socket directory: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("control: remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("control: listen: %w", err)
	}
	if err := os.Chmod(socketPath, 0660); err != nil {
		ln.Close()
		return fmt.Errorf("control: chmod socket: %w", err)
	}

	s.socket = socketPath
	s.ln = ln
	s.srv = &http.Server{Handler: s.routes()}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("control server stopped", "error", err)
		}
	}()
	s.logger.Info("control server listening", "socket", socketPath)
	return nil
}

// Close stops the server and removes the socket.
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	err := s.srv.Close()
	if rmErr := os.Remove(s.socket); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.snap.Status())
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	eps := s.snap.Endpoints()
	if eps == nil {
		eps = []Endpoint{}
	}
	s.writeJSON(w, EndpointsResponse{Endpoints: eps})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.snap.Rules())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("control response write failed", "error", err)
	}
}
