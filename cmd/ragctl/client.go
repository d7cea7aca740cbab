package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiError is the error envelope returned by the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type resetResult struct {
	Documents int `json:"documents"`
}

type askResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type vectorResult struct {
	Vectors          [][2]float64 `json:"vectors"`
	Texts            []string     `json:"texts"`
	Question         string       `json:"question"`
	QuestionVector   *[2]float64  `json:"questionVector"`
	SimilarVectors   [][2]float64 `json:"similarVectors"`
	SimilarTexts     []string     `json:"similarTexts"`
	SimilarityScores []float64    `json:"similarityScores"`
}

// client talks to a running RAG API.
type client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newClient(baseURL, apiKey string, timeout time.Duration) *client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *client) Reset(ctx context.Context) (*resetResult, error) {
	var out resetResult
	if err := c.post(ctx, "/reset_db", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Ask(ctx context.Context, question string) (*askResult, error) {
	var out askResult
	if err := c.post(ctx, "/ask", map[string]string{"question": question}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Vectors(ctx context.Context, question, method string) (*vectorResult, error) {
	body := map[string]string{"reductionMethod": method}
	if question != "" {
		body["question"] = question
	}
	var out vectorResult
	if err := c.post(ctx, "/vector-data", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) post(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &envelope) != nil || envelope.Message == "" {
			envelope.Message = strings.TrimSpace(string(data))
		}
		return &apiError{Status: resp.StatusCode, Message: envelope.Message}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
