package api

import (
	"net/http"

	"github.com/hunterwarburton/webrag/internal/auth"
	"github.com/hunterwarburton/webrag/internal/logger"
)

// MsgUnauthorized is returned when a guarded route is called without a valid key.
const MsgUnauthorized = "Unauthorized"

// HandleReset rebuilds the index from the corpus.
func (s *Server) HandleReset(w http.ResponseWriter, r *http.Request) {
	if !s.policy.IsAllowed(auth.ActionReset, auth.BearerToken(r)) {
		logger.Warn("[%s] reset rejected: missing or unknown API key", requestID(r.Context()))
		writeJSON(w, http.StatusUnauthorized, errorResponse{Status: statusError, Message: MsgUnauthorized})
		return
	}

	n, err := s.index.Reset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("[%s] reset complete: %d documents", requestID(r.Context()), n)
	writeJSON(w, http.StatusOK, resetResponse{Status: statusSuccess, Documents: n})
}

// HandleAsk answers a question.
func (s *Server) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	answer, err := s.qa.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Status: statusSuccess, Question: req.Question, Answer: answer})
}

// HandleVectorData returns the 2-D projection of the index.
func (s *Server) HandleVectorData(w http.ResponseWriter, r *http.Request) {
	var req VectorDataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	preq, err := req.Parse()
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.projector.Project(r.Context(), preq)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newVectorDataResponse(res))
}

// HandleHealth reports the index lifecycle state.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st, err := s.index.State(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: statusSuccess, Index: st.String()})
}
