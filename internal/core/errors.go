package core

import (
	"errors"
	"fmt"
)

// Fixed client-facing messages.
const (
	MsgQuestionRequired = "Question required"
	MsgInvalidReduction = "Invalid reduction method"
	MsgNoVectors        = "No vectors found"
)

// ValidationError reports a bad request that must not be retried as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports that the requested data does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// UpstreamError wraps a failure of the embedding service, the vector store,
// the generative model or the corpus read. Its message is the raw cause.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IndexNotReadyError is returned when the index did not reach the wanted
// state within its settle budget.
type IndexNotReadyError struct {
	Index string
	Want  IndexState
	Last  IndexState
}

func (e *IndexNotReadyError) Error() string {
	return fmt.Sprintf("index %q not yet %s (last observed %s)", e.Index, e.Want, e.Last)
}

// DimensionError reports an embedding of the wrong length.
type DimensionError struct {
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding has %d components, want %d", e.Got, e.Want)
}

// Upstream wraps err as an UpstreamError unless it already carries a typed
// classification.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		ne *NotFoundError
		ue *UpstreamError
	)
	if errors.As(err, &ve) || errors.As(err, &ne) || errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}
