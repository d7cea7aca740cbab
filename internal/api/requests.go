package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/projection"
)

// MsgInvalidJSON is returned for request bodies that are not valid JSON.
const MsgInvalidJSON = "Invalid JSON body"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// Validate trims the question and rejects an empty one.
func (r *AskRequest) Validate() error {
	r.Question = strings.TrimSpace(r.Question)
	if r.Question == "" {
		return &core.ValidationError{Message: core.MsgQuestionRequired}
	}
	return nil
}

// VectorDataRequest is the body of POST /vector-data.
type VectorDataRequest struct {
	Question        string  `json:"question"`
	ReductionMethod *string `json:"reductionMethod"`
}

// Parse validates the request and converts it into a projection request.
// An omitted reductionMethod selects PCA.
func (r *VectorDataRequest) Parse() (projection.Request, error) {
	method := projection.PCA
	if r.ReductionMethod != nil {
		m, err := projection.ParseMethod(*r.ReductionMethod)
		if err != nil {
			return projection.Request{}, err
		}
		method = m
	}
	return projection.Request{Question: strings.TrimSpace(r.Question), Method: method}, nil
}

// decodeJSON reads an optional JSON object body into dst. An empty body
// leaves dst at its zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return &core.ValidationError{Message: MsgInvalidJSON}
}
