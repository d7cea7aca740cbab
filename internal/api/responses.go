package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/logger"
	"github.com/hunterwarburton/webrag/internal/projection"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type resetResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

type askResponse struct {
	Status   string `json:"status"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type healthResponse struct {
	Status string `json:"status"`
	Index  string `json:"index"`
}

type vectorDataResponse struct {
	Status           string             `json:"status"`
	Vectors          []projection.Point `json:"vectors"`
	Texts            []string           `json:"texts"`
	Question         string             `json:"question,omitempty"`
	QuestionVector   *projection.Point  `json:"questionVector,omitempty"`
	SimilarVectors   []projection.Point `json:"similarVectors,omitempty"`
	SimilarTexts     []string           `json:"similarTexts,omitempty"`
	SimilarityScores []float64          `json:"similarityScores,omitempty"`
}

func newVectorDataResponse(res *projection.Result) vectorDataResponse {
	return vectorDataResponse{
		Status:           statusSuccess,
		Vectors:          res.Points,
		Texts:            res.Labels,
		Question:         res.Question,
		QuestionVector:   res.QuestionPoint,
		SimilarVectors:   res.SimilarPoints,
		SimilarTexts:     res.SimilarLabels,
		SimilarityScores: res.SimilarityScores,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

// statusFor maps a typed error onto an HTTP status.
func statusFor(err error) int {
	var (
		ve *core.ValidationError
		ne *core.NotFoundError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ne):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("[%s] %s %s failed: %v", requestID(r.Context()), r.Method, r.URL.Path, err)
	} else {
		logger.Debug("[%s] %s %s rejected: %v", requestID(r.Context()), r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{Status: statusError, Message: err.Error()})
}
