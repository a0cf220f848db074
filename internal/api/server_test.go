package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docrag/internal/answer"
	"docrag/internal/config"
	"docrag/internal/ingest"
	"docrag/internal/models"
	"docrag/internal/providers"
	"docrag/internal/util"
	"docrag/internal/vector"

	"github.com/stretchr/testify/require"
)

type fakeIngestor struct {
	res ingest.Result
	err error
}

func (f *fakeIngestor) IngestPDF(context.Context, []byte, string, string) (ingest.Result, error) {
	return f.res, f.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

type fakeRetriever struct {
	params vector.SearchParams
	hits   []models.RetrievalHit
	err    error
}

func (f *fakeRetriever) Search(_ context.Context, p vector.SearchParams) ([]models.RetrievalHit, error) {
	f.params = p
	return f.hits, f.err
}

type fakeGenerator struct {
	ans providers.Answer
	err error
}

func (f *fakeGenerator) Answer(context.Context, providers.AnswerRequest) (providers.Answer, error) {
	return f.ans, f.err
}

func testConfig() config.Config {
	return config.Config{
		EmbedModel:   "intfloat/e5-small-v2",
		TopK:         8,
		MinScore:     0,
		PreviewChars: 220,
	}
}

func newTestServer(retriever Retriever, generator providers.AnswerProvider) *Server {
	return NewServer(testConfig(), nil, &fakeIngestor{}, &fakeEmbedder{vec: []float32{0.1}}, retriever, generator)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeRetriever{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "e5-small-v2")
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	s := newTestServer(&fakeRetriever{}, nil)
	rec := postJSON(t, s.Routes(), "/search", map[string]any{"query": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRejectsBadDocID(t *testing.T) {
	s := newTestServer(&fakeRetriever{}, nil)
	rec := postJSON(t, s.Routes(), "/search", map[string]any{"query": "q", "doc_id": "not-a-uuid"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRejectsOutOfRangeMinScore(t *testing.T) {
	s := newTestServer(&fakeRetriever{}, nil)
	rec := postJSON(t, s.Routes(), "/search", map[string]any{"query": "q", "min_score": 1.5})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEmbeddingFailureIsServerError(t *testing.T) {
	s := NewServer(testConfig(), nil, &fakeIngestor{}, &fakeEmbedder{err: errors.New("model down")}, &fakeRetriever{}, nil)
	rec := postJSON(t, s.Routes(), "/search", map[string]any{"query": "q"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSearchAppliesDefaultsAndClampsScores(t *testing.T) {
	retriever := &fakeRetriever{hits: []models.RetrievalHit{
		{DocumentID: "d1", PageNumber: 1, ChunkIndex: 0, ChunkText: strings.Repeat("long text ", 50), Score: 1.2},
	}}
	s := newTestServer(retriever, nil)
	rec := postJSON(t, s.Routes(), "/search", map[string]any{"query": "what is chunking"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 8, retriever.params.TopK)

	var resp struct {
		Hits []searchHit `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Hits, 1)
	// Projection clamps to [0,1]; the raw score is a normalization bug signal
	// handled upstream, not here.
	require.Equal(t, 1.0, resp.Hits[0].Score)
	require.True(t, strings.HasSuffix(resp.Hits[0].ChunkText, "..."))
}

func TestSearchPreviewCharsZeroReturnsFullText(t *testing.T) {
	full := strings.Repeat("full text without truncation ", 20)
	retriever := &fakeRetriever{hits: []models.RetrievalHit{
		{DocumentID: "d1", PageNumber: 1, ChunkIndex: 0, ChunkText: full, Score: 0.5},
	}}
	s := newTestServer(retriever, nil)
	rec := postJSON(t, s.Routes(), "/search", map[string]any{"query": "q", "preview_chars": 0})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Hits []searchHit `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Hits, 1)
	require.Equal(t, full, resp.Hits[0].ChunkText)
}

func TestSearchRejectsNegativePreviewChars(t *testing.T) {
	s := newTestServer(&fakeRetriever{}, nil)
	rec := postJSON(t, s.Routes(), "/search", map[string]any{"query": "q", "preview_chars": -5})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnswerZeroHitsShortCircuits(t *testing.T) {
	gen := &fakeGenerator{ans: providers.Answer{Text: "should never run", ModelName: "x"}}
	s := newTestServer(&fakeRetriever{hits: nil}, gen)
	rec := postJSON(t, s.Routes(), "/answer", map[string]any{"query": "anything", "min_score": 0.9})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp answerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, answer.NoEvidenceAnswer, resp.Answer)
	require.Empty(t, resp.Citations)
	require.Empty(t, resp.Model)
}

func TestAnswerGenerativePath(t *testing.T) {
	hits := []models.RetrievalHit{{DocumentID: "d1", PageNumber: 2, ChunkIndex: 1, ChunkText: "Evidence text here.", Score: 0.9}}
	gen := &fakeGenerator{ans: providers.Answer{Text: "Model answer.", Bullets: []string{"b1"}, ModelName: "gpt-4o-mini"}}
	s := newTestServer(&fakeRetriever{hits: hits}, gen)
	rec := postJSON(t, s.Routes(), "/answer", map[string]any{"query": "q"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp answerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Model answer.", resp.Answer)
	require.Equal(t, "gpt-4o-mini", resp.Model)
	require.Len(t, resp.Citations, 1)
	require.Equal(t, 1, resp.Retrieved)
}

func TestAnswerFallsBackWhenModelUnavailable(t *testing.T) {
	hits := []models.RetrievalHit{{
		DocumentID: "d1", PageNumber: 1, ChunkIndex: 0, Score: 0.9,
		ChunkText: "First fact about storage. Second fact about indexes. Third fact about vectors.",
	}}
	// Null model identifier signals unavailability.
	gen := &fakeGenerator{ans: providers.Answer{}}
	s := newTestServer(&fakeRetriever{hits: hits}, gen)
	rec := postJSON(t, s.Routes(), "/answer", map[string]any{"query": "q"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp answerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Model)
	require.LessOrEqual(t, len(resp.Bullets), 3)
	require.NotEmpty(t, resp.Bullets)
	require.LessOrEqual(t, len([]rune(resp.Answer)), 700)
}

func TestAnswerFallsBackOnGeneratorError(t *testing.T) {
	hits := []models.RetrievalHit{{DocumentID: "d1", Score: 0.8, ChunkText: "Only sentence available."}}
	gen := &fakeGenerator{err: errors.New("upstream 500")}
	s := newTestServer(&fakeRetriever{hits: hits}, gen)
	rec := postJSON(t, s.Routes(), "/answer", map[string]any{"query": "q"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp answerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Model)
	require.Contains(t, resp.Answer, "Only sentence available.")
}

func TestAnswerNoGeneratorConfigured(t *testing.T) {
	hits := []models.RetrievalHit{{DocumentID: "d1", Score: 0.8, ChunkText: "Extractive source sentence."}}
	s := newTestServer(&fakeRetriever{hits: hits}, nil)
	rec := postJSON(t, s.Routes(), "/answer", map[string]any{"query": "q"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp answerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Model)
	require.Contains(t, resp.Answer, "Extractive source sentence.")
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	if contentType != "" {
		hdr["Content-Type"] = []string{contentType}
	}
	pw, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = pw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestIngestRejectsNonPDF(t *testing.T) {
	s := newTestServer(&fakeRetriever{}, nil)
	body, ct := multipartBody(t, "file", "notes.txt", "text/plain", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/ingest", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestHappyPath(t *testing.T) {
	ing := &fakeIngestor{res: ingest.Result{DocumentID: "doc-1", ChunksInserted: 3, Title: "T"}}
	s := NewServer(testConfig(), nil, ing, &fakeEmbedder{vec: []float32{0.1}}, &fakeRetriever{}, nil)
	body, ct := multipartBody(t, "file", "paper.pdf", "application/pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/ingest", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "doc-1")
}

func TestIngestValidationErrorIsClientError(t *testing.T) {
	ing := &fakeIngestor{err: util.ErrNoExtractableText}
	s := NewServer(testConfig(), nil, ing, &fakeEmbedder{vec: []float32{0.1}}, &fakeRetriever{}, nil)
	body, ct := multipartBody(t, "file", "scan.pdf", "application/pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/ingest", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeRetriever{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/ingest", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
