package handlers

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
	"time"

	"github.com/rs/zerolog"

	"github.com/funster-a/hackathon-backend/internal/domain"
	"github.com/funster-a/hackathon-backend/internal/jobs"
	"github.com/funster-a/hackathon-backend/internal/jobs/inmemory"
	"github.com/funster-a/hackathon-backend/internal/logger"
	"github.com/funster-a/hackathon-backend/internal/oracle"
	"github.com/funster-a/hackathon-backend/internal/pipeline"
)

const statementText = "Kaspi Gold выписка за март 2024\n" +
	"05.03.24 - 45 000,00 T Purchases Magnum Cash&Carry\n" +
	"07.03.24 - 12 500,00 T Purchases Yandex Go\n"

const reply = `{
  "total_spent": 57500,
  "forecast_next_month": 60000,
  "categories": [
    {"name": "Продукты", "amount": 45000, "percent": 78.26, "color": "4CAF50"},
    {"name": "Транспорт", "amount": 12500, "percent": 21.74, "color": "FFC107"}
  ],
  "subscriptions": [],
  "advice": "Совет",
  "transactions": [
    {"date": "05.03.2024", "amount": 45000, "description": "Magnum Cash&Carry", "category": "Продукты"},
    {"date": "07.03.2024", "amount": 12500, "description": "Yandex Go", "category": "Транспорт"}
  ]
}`

func newAnalyzer(o oracle.Oracle) *pipeline.Analyzer {
	return pipeline.NewAnalyzer(o, nil, nil)
}

func replying(text string, err error) oracle.Oracle {
	return oracle.Func(func(ctx context.Context, req oracle.Request) (string, error) {
		return text, err
	})
}

func decodeRecord(t *testing.T, rec *httptest.ResponseRecorder) domain.FinancialRecord {
	t.Helper()
	var out domain.FinancialRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestAnalyzeText(t *testing.T) {
	tests := []struct {
		name         string
		oracle       oracle.Oracle
		body         string
		wantStatus   int
		wantFallback string
		wantTotal    float64
	}{
		{
			name:         "oracle reply",
			oracle:       replying(reply, nil),
			body:         `{"text": ` + mustJSON(statementText) + `, "locale": "en"}`,
			wantStatus:   http.StatusOK,
			wantFallback: "false",
			wantTotal:    57500,
		},
		{
			name:         "oracle down",
			oracle:       replying("", errors.New("connection refused")),
			body:         `{"text": ` + mustJSON(statementText) + `}`,
			wantStatus:   http.StatusOK,
			wantFallback: "true",
			wantTotal:    pipeline.FallbackRecord().TotalSpent,
		},
		{
			name:         "short text",
			oracle:       replying(reply, nil),
			body:         `{"text": "hi"}`,
			wantStatus:   http.StatusOK,
			wantFallback: "true",
			wantTotal:    pipeline.FallbackRecord().TotalSpent,
		},
		{
			name:       "bad body",
			oracle:     replying(reply, nil),
			body:       `{"text":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAnalyzeHandler(newAnalyzer(tt.oracle), zerolog.Nop())
			req := httptest.NewRequest(http.MethodPost, "/api/analyze/text", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.AnalyzeText(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if got := rec.Header().Get(HeaderFallback); got != tt.wantFallback {
				t.Errorf("%s = %q, want %q", HeaderFallback, got, tt.wantFallback)
			}
			if rec.Header().Get(HeaderRunID) == "" {
				t.Errorf("%s header missing", HeaderRunID)
			}
			if got := decodeRecord(t, rec); got.TotalSpent != tt.wantTotal {
				t.Errorf("total_spent = %v, want %v", got.TotalSpent, tt.wantTotal)
			}
		})
	}
}

func TestAnalyzeText_LocalizesCategories(t *testing.T) {
	h := NewAnalyzeHandler(newAnalyzer(replying(reply, nil)), zerolog.Nop())
	body := `{"text": ` + mustJSON(statementText) + `, "locale": "en"}`
	rec := httptest.NewRecorder()
	h.AnalyzeText(rec, httptest.NewRequest(http.MethodPost, "/api/analyze/text", strings.NewReader(body)))

	got := decodeRecord(t, rec)
	if len(got.Categories) != 2 || got.Categories[0].Name != "Groceries" || got.Categories[1].Name != "Transport" {
		t.Errorf("categories = %+v, want English names", got.Categories)
	}
	if got.Transactions[0].Category != "Groceries" {
		t.Errorf("transaction category = %q, want Groceries", got.Transactions[0].Category)
	}
}

func TestAnalyzePDF(t *testing.T) {
	h := NewAnalyzeHandler(newAnalyzer(replying(reply, nil)), zerolog.Nop())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "statement.pdf")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("this is not a pdf"))
	mw.WriteField("locale", "kz")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	h.AnalyzePDF(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(HeaderFallback); got != "true" {
		t.Errorf("%s = %q, want true for unreadable PDF", HeaderFallback, got)
	}
	got := decodeRecord(t, rec)
	if len(got.Categories) != len(pipeline.FallbackRecord().Categories) {
		t.Errorf("got %d categories, want fallback record", len(got.Categories))
	}
}

func TestAnalyzePDF_MissingFile(t *testing.T) {
	h := NewAnalyzeHandler(newAnalyzer(replying(reply, nil)), zerolog.Nop())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("locale", "ru")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.AnalyzePDF(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCategorize(t *testing.T) {
	h := NewAnalyzeHandler(newAnalyzer(nil), zerolog.Nop())

	tests := []struct {
		body       string
		wantStatus int
		want       string
	}{
		{body: `{"description": "MAGNUM CASH&CARRY"}`, wantStatus: http.StatusOK, want: "Groceries"},
		{body: `{"description": "Yandex Go"}`, wantStatus: http.StatusOK, want: "Transport"},
		{body: `{"description": "xyz"}`, wantStatus: http.StatusOK, want: pipeline.OtherCategory},
		{body: `{}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Categorize(rec, httptest.NewRequest(http.MethodPost, "/api/categorize", strings.NewReader(tt.body)))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var out map[string]string
			json.Unmarshal(rec.Body.Bytes(), &out)
			if out["category"] != tt.want {
				t.Errorf("category = %q, want %q", out["category"], tt.want)
			}
		})
	}
}

func TestChat(t *testing.T) {
	tests := []struct {
		name       string
		oracle     oracle.Oracle
		body       string
		wantStatus int
		wantReply  string
	}{
		{name: "reply", oracle: replying("Привет!", nil), body: `{"message": "Привет"}`, wantStatus: http.StatusOK, wantReply: "Привет!"},
		{name: "empty message", oracle: replying("x", nil), body: `{"message": "  "}`, wantStatus: http.StatusBadRequest},
		{name: "no oracle", oracle: nil, body: `{"message": "hi"}`, wantStatus: http.StatusServiceUnavailable},
		{
			name:       "unavailable",
			oracle:     replying("", oracle.ErrUnavailable),
			body:       `{"message": "hi"}`,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "empty reply",
			oracle:     replying("", oracle.ErrEmptyResponse),
			body:       `{"message": "hi"}`,
			wantStatus: http.StatusBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewChatHandler(tt.oracle, time.Second, zerolog.Nop())
			rec := httptest.NewRecorder()
			h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body)))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantReply == "" {
				return
			}
			var out map[string]string
			json.Unmarshal(rec.Body.Bytes(), &out)
			if out["reply"] != tt.wantReply {
				t.Errorf("reply = %q, want %q", out["reply"], tt.wantReply)
			}
		})
	}
}

func TestAnalyzeJobRunner_LogsJobFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	job := &jobs.AnalyzeJob{JobID: "job-42", Text: statementText, Locale: domain.LocaleRU, Source: "march.pdf"}
	if err := AnalyzeJobRunner(newAnalyzer(replying(reply, nil)))(ctx, job); err != nil {
		t.Fatalf("runner error = %v", err)
	}
	if job.Fallback || job.Result == nil || job.RunID == "" {
		t.Errorf("job = %+v", job)
	}

	out := buf.String()
	for _, want := range []string{`"job_id":"job-42"`, `"source":"march.pdf"`, `"run_id":"` + job.RunID + `"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestJobsLifecycle(t *testing.T) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, store)
	analyzer := newAnalyzer(replying(reply, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := queue.Start(ctx, AnalyzeJobRunner(analyzer)); err != nil {
		t.Fatal(err)
	}
	defer queue.Stop(context.Background())

	h := NewJobsHandler(store, queue, zerolog.Nop())

	rec := httptest.NewRecorder()
	body := `{"text": ` + mustJSON(statementText) + `, "locale": "ru", "source": "march.pdf"}`
	h.CreateJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("CreateJob status = %d (%s)", rec.Code, rec.Body.String())
	}
	var created jobs.AnalyzeJob
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.JobID == "" {
		t.Fatalf("CreateJob body = %s, err %v", rec.Body.String(), err)
	}

	var job jobs.AnalyzeJob
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = httptest.NewRecorder()
		h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.JobID, nil), created.JobID)
		if rec.Code != http.StatusOK {
			t.Fatalf("GetJob status = %d", rec.Code)
		}
		json.Unmarshal(rec.Body.Bytes(), &job)
		if job.Status == jobs.JobStatusCompleted || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if job.Status != jobs.JobStatusCompleted {
		t.Fatalf("job status = %s, want completed", job.Status)
	}
	if job.Fallback || job.Result == nil || job.Result.TotalSpent != 57500 || job.RunID == "" {
		t.Errorf("job = %+v", job)
	}

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=completed&limit=5", nil))
	var list struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Count != 1 {
		t.Errorf("ListJobs count = %d, want 1", list.Count)
	}
}

func TestJobs_Errors(t *testing.T) {
	store := inmemory.NewStore()
	h := NewJobsHandler(store, inmemory.NewQueue(1, 1, store), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil), "missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GetJob(missing) status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CreateJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"text": " "}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("CreateJob(empty) status = %d, want 400", rec.Code)
	}
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
