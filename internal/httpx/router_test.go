package httpx

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/sparkdata/sparkdata-go/internal/ads"
	"github.com/sparkdata/sparkdata-go/internal/auth"
	"github.com/sparkdata/sparkdata-go/internal/dataset"
	"github.com/sparkdata/sparkdata-go/internal/roi"
	"github.com/sparkdata/sparkdata-go/internal/secrets"
	"github.com/sparkdata/sparkdata-go/internal/store"
)

type stubSummarizer struct {
	text string
	err  error
}

func (s stubSummarizer) Summarize(ctx context.Context, adSpend, totalRevenue, roi, profit float64) (string, error) {
	return s.text, s.err
}

type testEnv struct {
	router http.Handler
	tokens *store.Slot[*oauth2.Token]
	mock   pgxmock.PgxPoolIface
}

func newTestEnv(t *testing.T, adsBaseURL string) *testEnv {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	box, err := secrets.NewBox(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	keys := store.NewKeyStoreWithPool(mock, box)

	uploads := store.NewSlot[*dataset.Dataset]()
	tokens := store.NewSlot[*oauth2.Token]()

	deps := Deps{
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Uploads:    uploads,
		Calculator: roi.NewCalculator(uploads),
		Flow:       auth.NewFlow("cid", "secret", "http://localhost/auth/callback", tokens, keys),
		Keys:       keys,
		AdsClient:  ads.NewClient(ads.NewHTTPClient(2*time.Second), adsBaseURL, "dev-token"),
		Summarizer: stubSummarizer{text: "Great quarter."},
		CustomerID: "6207912456",
	}
	return &testEnv{router: NewRouter(deps), tokens: tokens, mock: mock}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	resp := rec.Result()
	var parsed map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t, "")
	resp, body := env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["message"], "running")
}

func TestAnalyzeROIFromPayload(t *testing.T) {
	env := newTestEnv(t, "")
	payload := `{"ad_spend": 1000, "leads": [{"email":"a@x.com","revenue":500},{"email":"b@x.com","revenue":1500}]}`
	resp, body := env.do(t, http.MethodPost, "/analyze_roi", bytes.NewBufferString(payload))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "input", body["source"])
	assert.Equal(t, 2000.0, body["total_revenue"])
	assert.Equal(t, 2.0, body["roi"])
}

func TestAnalyzeROIZeroSpend(t *testing.T) {
	env := newTestEnv(t, "")
	payload := `{"ad_spend": 0, "leads": [{"email":"a@x.com","revenue":100}]}`
	_, body := env.do(t, http.MethodPost, "/analyze_roi", bytes.NewBufferString(payload))
	assert.Equal(t, 0.0, body["roi"])
}

func TestAnalyzeROINoCache(t *testing.T) {
	env := newTestEnv(t, "")
	resp, body := env.do(t, http.MethodPost, "/analyze_roi", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["error"], "no cached upload")
}

func TestUploadThenCacheSourcedROI(t *testing.T) {
	env := newTestEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "leads.csv")
	require.NoError(t, err)
	fw.Write([]byte("email,revenue\na@x.com,500\nb@x.com,1500\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload_data", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, status := env.do(t, http.MethodGet, "/cache_status", nil)
	assert.Equal(t, true, status["cached"])
	assert.Equal(t, 2.0, status["rows"])

	_, body := env.do(t, http.MethodPost, "/analyze_roi", nil)
	assert.Equal(t, "cache", body["source"])
	assert.Equal(t, 1000.0, body["ad_spend"])
	assert.Equal(t, 2000.0, body["total_revenue"])
	assert.Equal(t, 2.0, body["roi"])
}

func TestCacheStatusEmpty(t *testing.T) {
	env := newTestEnv(t, "")
	_, body := env.do(t, http.MethodGet, "/cache_status", nil)
	assert.Equal(t, false, body["cached"])
}

func TestMatchLeads(t *testing.T) {
	env := newTestEnv(t, "")
	payload := `{"ads_leads": ["alice@x.com"], "crm_leads": ["alice@x.com", "bob@y.com"]}`
	_, body := env.do(t, http.MethodPost, "/match_leads", bytes.NewBufferString(payload))
	assert.Equal(t, 1.0, body["total_matches"])
	matches := body["matches"].([]any)
	require.Len(t, matches, 1)
	m := matches[0].(map[string]any)
	assert.Equal(t, "alice@x.com", m["crm_email"])
	assert.Equal(t, 1.0, m["match_score"])
}

func TestReport(t *testing.T) {
	env := newTestEnv(t, "")
	_, body := env.do(t, http.MethodGet, "/report?ad_spend=1000&total_revenue=2000", nil)
	assert.Equal(t, 2.0, body["roi"])
	assert.Contains(t, body["summary"], "2.00x")
}

func TestReportRejectsZeroSpend(t *testing.T) {
	env := newTestEnv(t, "")
	_, body := env.do(t, http.MethodGet, "/report?ad_spend=0&total_revenue=2000", nil)
	assert.Contains(t, body["error"], "greater than zero")
}

func TestGenerateSummary(t *testing.T) {
	env := newTestEnv(t, "")
	_, body := env.do(t, http.MethodGet, "/generate_summary?ad_spend=1000&total_revenue=2500", nil)
	assert.Equal(t, "Great quarter.", body["summary"])
	assert.Equal(t, 2.5, body["roi"])
	assert.Equal(t, 1500.0, body["profit"])
}

func TestGenerateSummaryValidation(t *testing.T) {
	env := newTestEnv(t, "")
	_, body := env.do(t, http.MethodGet, "/generate_summary?ad_spend=0&total_revenue=100", nil)
	assert.Contains(t, body["error"], "greater than zero")
}

func TestAdsSummaryRequiresToken(t *testing.T) {
	env := newTestEnv(t, "")
	resp, body := env.do(t, http.MethodGet, "/google/ads_summary", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body["error"], "authorize first")
}

func TestAdsSummary(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
		 {"results": [{"segments": {"date": "2025-08-01"},
		   "metrics": {"impressions": 100, "clicks": 10, "cost_micros": 1000000, "conversions": 1}}]},
		 {"results": [{"segments": {"date": "2025-08-02"},
		   "metrics": {"impressions": 200, "clicks": 20, "cost_micros": 2000000, "conversions": 2}}]}
		]`))
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL)
	env.tokens.Set(&oauth2.Token{AccessToken: "tok"})

	resp, body := env.do(t, http.MethodGet,
		"/google/ads_summary?date_range=LAST_7_DAYS&ad_spend=3&total_revenue=30", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])

	summary := body["summary"].(map[string]any)
	assert.Equal(t, 300.0, summary["impressions"])
	assert.Equal(t, 30.0, summary["clicks"])
	assert.Equal(t, 3.0, summary["spend_usd"])
	assert.Equal(t, 10.0, summary["ctr"])
	assert.Equal(t, 0.1, summary["cpc"])
	assert.Equal(t, 10.0, summary["cpm"])
	assert.Equal(t, 10.0, summary["roas"])

	records := body["records"].([]any)
	assert.Len(t, records, 2)

	meta := body["meta"].(map[string]any)
	assert.Equal(t, "6207912456", meta["customer_id"])
	assert.Equal(t, "LAST_7_DAYS", meta["date_range"])
}

func TestAdsSummaryOmitsROASWithoutFinancials(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"results": [{"segments": {"date": "2025-08-01"},
		  "metrics": {"impressions": 100, "clicks": 10, "cost_micros": 1000000}}]}]`))
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL)
	env.tokens.Set(&oauth2.Token{AccessToken: "tok"})

	_, body := env.do(t, http.MethodGet, "/google/ads_summary", nil)
	summary := body["summary"].(map[string]any)
	assert.Nil(t, summary["roas"])
}

func TestAdsSummaryUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad developer token", http.StatusBadRequest)
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL)
	env.tokens.Set(&oauth2.Token{AccessToken: "tok"})

	resp, body := env.do(t, http.MethodGet, "/google/ads_summary", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Failed to retrieve Ads data.", body["error"])
	assert.Contains(t, body["details"], "bad developer token")
}

func TestSettingsUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t, "")

	env.mock.ExpectExec(`INSERT INTO api_keys`).
		WithArgs("sendgrid", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	resp, body := env.do(t, http.MethodPost, "/settings/update?service_name=sendgrid&key_value=sg-123", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])

	env.mock.ExpectExec(`DELETE FROM api_keys`).
		WithArgs("sendgrid").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	_, body = env.do(t, http.MethodDelete, "/settings/delete/sendgrid", nil)
	assert.Equal(t, "success", body["status"])

	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestOAuthLoginRedirects(t *testing.T) {
	env := newTestEnv(t, "")
	resp, _ := env.do(t, http.MethodGet, "/auth/login", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "accounts.google.com")
}
