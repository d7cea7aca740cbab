// Package api exposes the question-answering service over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/hunterwarburton/webrag/internal/auth"
	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/projection"
)

// Indexer rebuilds and reports on the vector index.
type Indexer interface {
	Reset(ctx context.Context) (int, error)
	State(ctx context.Context) (core.IndexState, error)
}

// Asker answers a question from the index.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Projector produces the 2-D view of the index.
type Projector interface {
	Project(ctx context.Context, req projection.Request) (*projection.Result, error)
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	index     Indexer
	qa        Asker
	projector Projector
	policy    *auth.PolicyService
}

// NewServer creates a Server. A nil policy leaves every route open.
func NewServer(index Indexer, qa Asker, projector Projector, policy *auth.PolicyService) *Server {
	if policy == nil {
		policy = auth.NewPolicyService("")
	}
	return &Server{index: index, qa: qa, projector: projector, policy: policy}
}

// Handler returns the routed handler with CORS, request IDs, logging and
// metrics applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /reset_db", s.HandleReset)
	mux.HandleFunc("POST /ask", s.HandleAsk)
	mux.HandleFunc("POST /vector-data", s.HandleVectorData)
	mux.HandleFunc("GET /healthz", s.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return cors.AllowAll().Handler(withRequestID(withObservability(mux)))
}
