// Package server exposes a loaded fixture over HTTP so its contents can be
// browsed while writing tests. Queries follow the SPARQL 1.1 Protocol; the
// endpoint is read-only.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aleksaelezovic/rdfixture/pkg/fixture"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql"
)

// Server serves one fixture
type Server struct {
	data   *fixture.Data
	engine *sparql.Engine
	addr   string
	logger *slog.Logger
}

// NewServer creates a server for the data of a fixture. A nil logger uses
// slog.Default.
func NewServer(data *fixture.Data, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		data:   data,
		engine: sparql.NewEngine(data.Store),
		addr:   addr,
		logger: logger,
	}
}

// Handler routes /sparql, /data and the query page
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sparql", s.handleSPARQL)
	mux.HandleFunc("/data", s.handleData)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start listens on the configured address until the server fails
func (s *Server) Start() error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting SPARQL endpoint", "url", "http://"+s.addr+"/sparql")
	return server.ListenAndServe()
}

// QuadCount returns the number of quads in the fixture
func (s *Server) QuadCount() int64 {
	count, err := s.data.Store.Count()
	if err != nil {
		s.logger.Warn("count quads", "error", err)
	}
	return count
}
