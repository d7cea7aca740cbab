package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/webrag/internal/auth"
	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/embed"
	"github.com/hunterwarburton/webrag/internal/llm"
	"github.com/hunterwarburton/webrag/internal/projection"
	"github.com/hunterwarburton/webrag/internal/rag"
)

const testCorpus = "Sachin is a software engineer who builds distributed systems at scale.\n\n" +
	"Short.\n\n" +
	"He enjoys hiking in the mountains and writing Go code on weekends with friends.\n\n" +
	"He built a portfolio website that answers questions about his career using retrieval.\n\n" +
	"Before that he worked on payment reconciliation pipelines at a fintech startup.\n\n" +
	"He mentors junior engineers and cares deeply about testing and code review."

type stubGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.answer, g.err
}

type testEnv struct {
	handler http.Handler
	gen     *stubGenerator
	store   *rag.MemoryStore
}

func newTestEnv(t *testing.T, corpus, resetKeys string) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus")
	require.NoError(t, os.WriteFile(path, []byte(corpus), 0o644))

	store := rag.NewMemoryStore("webrag", 1)
	embedder := embed.NewLocalEmbedder()
	index := rag.NewIndexManager(store, embedder, rag.LifecycleOptions{
		CorpusPath:   path,
		DeleteSettle: time.Second,
		CreateSettle: time.Second,
		PollInitial:  time.Millisecond,
		PollMax:      5 * time.Millisecond,
	})
	retriever := rag.NewRetriever(store, embedder, 5)
	gen := &stubGenerator{answer: "I build **distributed systems**."}
	qa := rag.NewQAService(index, retriever, rag.NewSynthesizer(llm.NewPromptGenerator(&llm.Persona{Name: "Sachin"}), gen))
	proj := projection.NewProjector(store, retriever, 1000)

	srv := NewServer(index, qa, proj, auth.NewPolicyService(resetKeys))
	return &testEnv{handler: srv.Handler(), gen: gen, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestReset(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	rec, out := env.do(t, http.MethodPost, "/reset_db", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, 5.0, out["documents"])

	rec, out = env.do(t, http.MethodPost, "/reset_db", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5.0, out["documents"])

	n, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestReset_ClientGoneMidRebuild(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	rec, _ := env.do(t, http.MethodPost, "/reset_db", "")
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()
	req := httptest.NewRequest(http.MethodPost, "/reset_db", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	st, err := env.store.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.IndexReady, st)
	n, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n, "the previous index must be rebuilt, not left dropped")
}

func TestReset_RequiresKeyWhenConfigured(t *testing.T) {
	env := newTestEnv(t, testCorpus, "k1,k2")

	rec, out := env.do(t, http.MethodPost, "/reset_db", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, MsgUnauthorized, out["message"])

	rec, _ = env.do(t, http.MethodPost, "/reset_db", "", "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = env.do(t, http.MethodPost, "/reset_db", "", "Authorization", "Bearer k2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5.0, out["documents"])
}

func TestReset_MissingCorpus(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	srvIndex := rag.NewIndexManager(env.store, embed.NewLocalEmbedder(), rag.LifecycleOptions{
		CorpusPath:  filepath.Join(t.TempDir(), "missing"),
		PollInitial: time.Millisecond,
	})
	h := NewServer(srvIndex, nil, nil, nil).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reset_db", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "error", out.Status)
	assert.Contains(t, out.Message, "failed to read corpus")
}

func TestAsk(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	rec, _ := env.do(t, http.MethodPost, "/reset_db", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := env.do(t, http.MethodPost, "/ask", `{"question": "  What do you do?  "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "What do you do?", out["question"])
	assert.Equal(t, "I build **distributed systems**.", out["answer"])

	require.Len(t, env.gen.prompts, 1)
	assert.Contains(t, env.gen.prompts[0], "You are Sachin.")
	assert.Contains(t, env.gen.prompts[0], "Question: What do you do?")
}

func TestAsk_QuestionRequired(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	for _, body := range []string{`{"question": ""}`, `{"question": "   "}`, `{}`, ``} {
		rec, out := env.do(t, http.MethodPost, "/ask", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "error", out["status"])
		assert.Equal(t, core.MsgQuestionRequired, out["message"])
	}
	assert.Empty(t, env.gen.prompts)
}

func TestAsk_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	rec, out := env.do(t, http.MethodPost, "/ask", `{"question":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgInvalidJSON, out["message"])
}

func TestAsk_ModelFailureIsServerError(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	env.gen.err = errors.New("quota exhausted for model")

	rec, out := env.do(t, http.MethodPost, "/ask", `{"question": "hello?"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "quota exhausted for model", out["message"])
}

func TestAsk_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	rec, _ := env.do(t, http.MethodGet, "/ask", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestVectorData_InvalidMethod(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	rec, _ := env.do(t, http.MethodPost, "/reset_db", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := env.do(t, http.MethodPost, "/vector-data", `{"reductionMethod": "UMAP"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.MsgInvalidReduction, out["message"])
}

func TestVectorData_EmptyIndex(t *testing.T) {
	env := newTestEnv(t, "too short\n\nalso short", "")
	rec, out := env.do(t, http.MethodPost, "/reset_db", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, out["documents"])

	rec, out = env.do(t, http.MethodPost, "/vector-data", `{"reductionMethod": "PCA"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.MsgNoVectors, out["message"])
}

func TestVectorData_DefaultsToPCA(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	rec, _ := env.do(t, http.MethodPost, "/reset_db", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := env.do(t, http.MethodPost, "/vector-data", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["vectors"], 5)
	assert.Len(t, out["texts"], 5)
	assert.NotContains(t, out, "questionVector")
	assert.NotContains(t, out, "similarVectors")
}

func TestVectorData_WithQuestion(t *testing.T) {
	for _, method := range []string{"PCA", "TSNE"} {
		t.Run(method, func(t *testing.T) {
			env := newTestEnv(t, testCorpus, "")
			rec, _ := env.do(t, http.MethodPost, "/reset_db", "")
			require.Equal(t, http.StatusOK, rec.Code)

			rec, _ = env.do(t, http.MethodPost, "/vector-data",
				`{"question": "What did he build?", "reductionMethod": "`+method+`"}`)
			require.Equal(t, http.StatusOK, rec.Code)

			var out vectorDataResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, "success", out.Status)
			assert.Len(t, out.Vectors, 5)
			assert.Equal(t, "What did he build?", out.Question)
			require.NotNil(t, out.QuestionVector)
			assert.Len(t, out.SimilarVectors, 5)
			assert.Len(t, out.SimilarTexts, 5)
			require.Len(t, out.SimilarityScores, 5)
			for _, s := range out.SimilarityScores {
				assert.GreaterOrEqual(t, s, -1.0)
				assert.LessOrEqual(t, s, 1.0)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	rec, out := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "absent", out["index"])

	rec, _ = env.do(t, http.MethodPost, "/reset_db", "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, out = env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, "ready", out["index"])
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")

	rec, _ := env.do(t, http.MethodGet, "/healthz", "", "Origin", "http://localhost:3000")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = env.do(t, http.MethodGet, "/healthz", "", RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, testCorpus, "")
	env.do(t, http.MethodGet, "/healthz", "")

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "webrag_http_requests_total")
}
