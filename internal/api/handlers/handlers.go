package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/funster-a/hackathon-backend/internal/api/middleware"
	"github.com/funster-a/hackathon-backend/internal/domain"
	"github.com/funster-a/hackathon-backend/internal/extractor"
	"github.com/funster-a/hackathon-backend/internal/oracle"
	"github.com/funster-a/hackathon-backend/internal/pipeline"
)

const (
	// MaxUploadBytes bounds PDF uploads.
	MaxUploadBytes = 20 << 20
	// MaxJSONBytes bounds JSON request bodies.
	MaxJSONBytes = 1 << 20
)

// Response headers carrying analysis diagnostics next to the record body.
const (
	HeaderRunID    = "X-Analysis-Run-ID"
	HeaderFallback = "X-Analysis-Fallback"
)

// StatementAnalyzer is the part of pipeline.Analyzer the handlers use.
type StatementAnalyzer interface {
	Analyze(ctx context.Context, text string, locale domain.Locale) pipeline.Result
	Categorize(description string) string
}

// AnalyzeHandler handles statement analysis and categorization endpoints.
type AnalyzeHandler struct {
	analyzer StatementAnalyzer
	log      zerolog.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(analyzer StatementAnalyzer, log zerolog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		log:      log,
	}
}

// AnalyzePDF handles POST /api/analyze with a multipart "file" field and an
// optional "locale" form value. Unreadable PDFs are analysed as empty text
// and therefore yield the fallback record.
func (h *AnalyzeHandler) AnalyzePDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	text, err := extractor.ExtractText(data)
	if err != nil {
		h.log.Warn().
			Err(err).
			Str("filename", header.Filename).
			Msg("PDF text extraction failed")
		text = ""
	}

	h.log.Info().
		Str("filename", header.Filename).
		Int("bytes", len(data)).
		Int("chars", len([]rune(text))).
		Msg("Extracted statement text")

	locale := domain.ParseLocale(r.FormValue("locale"))
	h.writeResult(w, h.analyzer.Analyze(r.Context(), text, locale))
}

// AnalyzeText handles POST /api/analyze/text
func (h *AnalyzeHandler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text   string `json:"text"`
		Locale string `json:"locale"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	h.writeResult(w, h.analyzer.Analyze(r.Context(), req.Text, domain.ParseLocale(req.Locale)))
}

// Categorize handles POST /api/categorize
func (h *AnalyzeHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"description": req.Description,
		"category":    h.analyzer.Categorize(req.Description),
	})
}

func (h *AnalyzeHandler) writeResult(w http.ResponseWriter, res pipeline.Result) {
	w.Header().Set(HeaderRunID, res.RunID)
	w.Header().Set(HeaderFallback, strconv.FormatBool(res.Fallback))
	middleware.WriteJSON(w, http.StatusOK, res.Record)
}

// ChatHandler forwards free-form questions to the oracle.
type ChatHandler struct {
	oracle  oracle.Oracle
	timeout time.Duration
	log     zerolog.Logger
}

// NewChatHandler creates a chat handler. o may be nil, in which case every
// request is answered with 503.
func NewChatHandler(o oracle.Oracle, timeout time.Duration, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{oracle: o, timeout: timeout, log: log}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "message is required")
		return
	}
	if h.oracle == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Chat is not configured")
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	reply, err := oracle.Chat(ctx, h.oracle, req.Message)
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"reply": reply})
	case errors.Is(err, oracle.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		h.log.Error().Err(err).Msg("Chat oracle unavailable")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Assistant is unavailable")
	default:
		h.log.Error().Err(err).Msg("Chat failed")
		middleware.WriteError(w, http.StatusBadGateway, "Assistant returned no usable reply")
	}
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
