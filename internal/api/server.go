// Package api exposes the ingest, search and answer endpoints over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"strings"

	"docrag/internal/answer"
	"docrag/internal/config"
	"docrag/internal/ingest"
	"docrag/internal/models"
	"docrag/internal/providers"
	"docrag/internal/util"
	"docrag/internal/vector"

	"github.com/google/uuid"
)

type Ingestor interface {
	IngestPDF(ctx context.Context, data []byte, filename, title string) (ingest.Result, error)
}

type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Retriever interface {
	Search(ctx context.Context, p vector.SearchParams) ([]models.RetrievalHit, error)
}

type Server struct {
	cfg       config.Config
	log       *slog.Logger
	ingestor  Ingestor
	embedder  QueryEmbedder
	retriever Retriever
	generator providers.AnswerProvider // nil when no generative model is configured
	extractor *answer.Extractor
}

func NewServer(cfg config.Config, log *slog.Logger, ingestor Ingestor, embedder QueryEmbedder, retriever Retriever, generator providers.AnswerProvider) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		log:       log,
		ingestor:  ingestor,
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		extractor: answer.NewExtractor(nil),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/answer", s.handleAnswer)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "model": s.cfg.EmbedModel})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	fh := multipartFile(r.MultipartForm)
	if fh == nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no file provided"))
		return
	}
	if !acceptablePDF(fh) {
		writeErr(w, http.StatusBadRequest, util.ErrNotPDF)
		return
	}

	src, err := fh.Open()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("open upload: %w", err))
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := s.ingestor.IngestPDF(r.Context(), data, fh.Filename, r.FormValue("title"))
	if err != nil {
		s.log.Error("ingest failed", "filename", fh.Filename, "err", err)
		writeErr(w, ingestStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func ingestStatus(err error) int {
	switch {
	case errors.Is(err, util.ErrEmptyUpload),
		errors.Is(err, util.ErrNotPDF),
		errors.Is(err, util.ErrBadPDF),
		errors.Is(err, util.ErrNoExtractableText):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type searchRequest struct {
	Query    string   `json:"query"`
	TopK     int      `json:"top_k"`
	MinScore *float64 `json:"min_score"`
	DocID    string   `json:"doc_id"`
	// Pointer so an explicit 0 (full chunk text) is distinguishable from
	// the field being absent (config default).
	PreviewChars *int `json:"preview_chars"`

	previewRunes int
}

type searchHit struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	ChunkText  string  `json:"chunk_text,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	params, err := s.searchParams(r.Context(), &req)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	qvec, err := s.embedder.EmbedQuery(r.Context(), req.Query)
	if err != nil {
		s.log.Error("query embedding failed", "err", err)
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	params.Vector = qvec

	hits, err := s.retriever.Search(r.Context(), params)
	if err != nil {
		s.log.Error("search failed", "err", err)
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]searchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, searchHit{
			DocumentID: h.DocumentID,
			Title:      h.Title,
			PageNumber: h.PageNumber,
			ChunkIndex: h.ChunkIndex,
			Score:      clampScore(h.Score),
			ChunkText:  previewText(h.ChunkText, req.previewRunes),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": out, "used_model": s.cfg.EmbedModel})
}

// searchParams validates the request and applies config defaults. The query
// vector is filled in after embedding.
func (s *Server) searchParams(_ context.Context, req *searchRequest) (vector.SearchParams, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return vector.SearchParams{}, util.ErrEmptyQuery
	}
	if req.TopK <= 0 {
		req.TopK = s.cfg.TopK
	}
	if req.TopK > 200 {
		return vector.SearchParams{}, fmt.Errorf("top_k must be at most 200")
	}
	minScore := s.cfg.MinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	if minScore < 0 || minScore > 1 {
		return vector.SearchParams{}, fmt.Errorf("min_score must be in [0,1]")
	}
	if req.DocID != "" {
		if _, err := uuid.Parse(req.DocID); err != nil {
			return vector.SearchParams{}, fmt.Errorf("doc_id must be a valid UUID")
		}
	}
	req.previewRunes = s.cfg.PreviewChars
	if req.PreviewChars != nil {
		if *req.PreviewChars < 0 {
			return vector.SearchParams{}, fmt.Errorf("preview_chars must be >= 0")
		}
		req.previewRunes = *req.PreviewChars
	}
	return vector.SearchParams{
		DocumentID: req.DocID,
		MinScore:   minScore,
		TopK:       req.TopK,
	}, nil
}

type answerResponse struct {
	Answer    string            `json:"answer"`
	Bullets   []string          `json:"answer_bullets"`
	Citations []models.Citation `json:"citations"`
	Model     string            `json:"model,omitempty"`
	Retrieved int               `json:"retrieved"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	params, err := s.searchParams(r.Context(), &req)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	qvec, err := s.embedder.EmbedQuery(r.Context(), req.Query)
	if err != nil {
		s.log.Error("query embedding failed", "err", err)
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	params.Vector = qvec

	hits, err := s.retriever.Search(r.Context(), params)
	if err != nil {
		s.log.Error("search failed", "err", err)
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	// Zero hits short-circuits before either answer path.
	if len(hits) == 0 {
		writeJSON(w, http.StatusOK, answerResponse{
			Answer:    answer.NoEvidenceAnswer,
			Bullets:   []string{},
			Citations: []models.Citation{},
		})
		return
	}

	citations := make([]models.Citation, 0, len(hits))
	contextParts := make([]string, 0, len(hits))
	for _, h := range hits {
		citations = append(citations, models.Citation{
			DocumentID: h.DocumentID,
			Title:      h.Title,
			PageNumber: h.PageNumber,
			ChunkIndex: h.ChunkIndex,
			Preview:    previewText(h.ChunkText, req.previewRunes),
			Score:      clampScore(h.Score),
		})
		contextParts = append(contextParts, h.ChunkText)
	}

	ans := s.generate(r.Context(), req.Query, strings.Join(contextParts, "\n\n"))
	if ans.ModelName == "" {
		text, bullets := s.extractor.Extract(hits)
		ans = providers.Answer{Text: text, Bullets: bullets}
	}
	if ans.Bullets == nil {
		ans.Bullets = []string{}
	}

	writeJSON(w, http.StatusOK, answerResponse{
		Answer:    ans.Text,
		Bullets:   ans.Bullets,
		Citations: citations,
		Model:     ans.ModelName,
		Retrieved: len(hits),
	})
}

// generate asks the generative provider when one is configured. Any failure
// is a fallback signal, never a request error.
func (s *Server) generate(ctx context.Context, question, evidence string) providers.Answer {
	if s.generator == nil {
		return providers.Answer{}
	}
	ans, err := s.generator.Answer(ctx, providers.AnswerRequest{Question: question, Context: evidence})
	if err != nil {
		s.log.Warn("generative answer unavailable, falling back to extractive", "err", err)
		return providers.Answer{}
	}
	return ans
}

// previewText truncates for display; a zero width means the caller asked for
// the full untruncated chunk text.
func previewText(s string, runes int) string {
	if runes <= 0 {
		return s
	}
	return util.Preview(s, runes)
}

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(1, score))
}

func acceptablePDF(fh *multipart.FileHeader) bool {
	switch fh.Header.Get("Content-Type") {
	case "application/pdf", "application/octet-stream":
		return true
	}
	return strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf")
}

func multipartFile(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	if files := form.File["file"]; len(files) > 0 {
		return files[0]
	}
	for _, files := range form.File {
		if len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	msg := "request failed"
	if err != nil {
		if code >= 500 {
			// Internal detail stays in the logs.
			msg = http.StatusText(code)
		} else {
			msg = err.Error()
		}
	}
	writeJSON(w, code, map[string]any{"error": map[string]any{"status": code, "message": msg}})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
