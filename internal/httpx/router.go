package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"

	"github.com/sparkdata/sparkdata-go/internal/ads"
	"github.com/sparkdata/sparkdata-go/internal/auth"
	"github.com/sparkdata/sparkdata-go/internal/dataset"
	"github.com/sparkdata/sparkdata-go/internal/email"
	"github.com/sparkdata/sparkdata-go/internal/match"
	"github.com/sparkdata/sparkdata-go/internal/metrics"
	"github.com/sparkdata/sparkdata-go/internal/models"
	"github.com/sparkdata/sparkdata-go/internal/roi"
	"github.com/sparkdata/sparkdata-go/internal/store"
	"github.com/sparkdata/sparkdata-go/internal/summarizer"
	"github.com/sparkdata/sparkdata-go/internal/utils"
)

// maxUploadBytes bounds multipart uploads.
const maxUploadBytes = 20 << 20

// Deps carries everything the router wires together. Nil-able fields
// (Keys, Mailer, Summarizer) disable their routes' side effects rather
// than panicking, so the service degrades feature by feature.
type Deps struct {
	Log        *slog.Logger
	Uploads    *store.Slot[*dataset.Dataset]
	Calculator *roi.Calculator
	Flow       *auth.Flow
	Keys       *store.KeyStore
	AdsClient  *ads.Client
	Summarizer summarizer.Summarizer
	Mailer     *email.Sender
	CustomerID string
}

func NewRouter(d Deps) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log))

	mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "service is running successfully"})
	})
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/analyze_roi", d.analyzeROI)
	mux.Post("/match_leads", d.matchLeads)
	mux.Get("/report", d.report)
	mux.Post("/upload_data", d.uploadData)
	mux.Get("/cache_status", d.cacheStatus)
	mux.Get("/generate_summary", d.generateSummary)

	mux.Get("/auth/login", d.oauthLogin)
	mux.Get("/auth/callback", d.oauthCallback)
	mux.Post("/auth/password_login", d.passwordLogin)

	mux.Get("/google/ads_summary", d.adsSummary)

	mux.Route("/settings", func(r chi.Router) {
		r.Get("/get", d.listKeys)
		r.Get("/get/{service_name}", d.getKey)
		r.Post("/update", d.updateKey)
		r.Delete("/delete/{service_name}", d.deleteKey)
		r.Post("/test/{service_name}", d.testKey)
	})

	mux.Post("/api/send-recap", d.sendRecap)

	return mux
}

// analyzeROI dispatches between the payload-sourced and cache-sourced
// branches: an empty or null body selects the cache.
func (d Deps) analyzeROI(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	if len(body) == 0 || string(body) == "null" {
		result, err := d.Calculator.FromCache()
		if err != nil {
			// Matches the upstream contract: structural data errors are
			// reported in-band, not as HTTP failures.
			writeJSON(w, http.StatusOK, map[string]any{"error": errMessage(err)})
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	var req models.AnalyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	writeJSON(w, http.StatusOK, d.Calculator.FromPayload(req))
}

type matchLeadsRequest struct {
	AdsLeads []string `json:"ads_leads"`
	CRMLeads []string `json:"crm_leads"`
}

func (d Deps) matchLeads(w http.ResponseWriter, r *http.Request) {
	var req matchLeadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	pairs := match.Resolve(req.AdsLeads, req.CRMLeads)
	writeJSON(w, http.StatusOK, map[string]any{
		"matches":       pairs,
		"total_matches": len(pairs),
	})
}

func (d Deps) report(w http.ResponseWriter, r *http.Request) {
	adSpend, _ := strconv.ParseFloat(r.URL.Query().Get("ad_spend"), 64)
	totalRevenue, _ := strconv.ParseFloat(r.URL.Query().Get("total_revenue"), 64)
	rep, err := roi.BuildReport(adSpend, totalRevenue)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"error": errMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (d Deps) uploadData(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	ds, err := dataset.Parse(header.Filename, content)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"error": errMessage(err)})
		return
	}
	d.Uploads.Set(ds)
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": header.Filename,
		"rows":     ds.Len(),
		"columns":  ds.Columns,
		"message":  "File uploaded and cached successfully.",
	})
}

func (d Deps) cacheStatus(w http.ResponseWriter, r *http.Request) {
	ds, ok := d.Uploads.Get()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"cached": false, "message": "No data currently cached."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cached": true, "rows": ds.Len(), "columns": ds.Columns})
}

func (d Deps) generateSummary(w http.ResponseWriter, r *http.Request) {
	adSpend, _ := strconv.ParseFloat(r.URL.Query().Get("ad_spend"), 64)
	totalRevenue, _ := strconv.ParseFloat(r.URL.Query().Get("total_revenue"), 64)
	if adSpend <= 0 || totalRevenue <= 0 {
		writeJSON(w, http.StatusOK, map[string]any{"error": "Both ad_spend and total_revenue must be greater than zero."})
		return
	}
	r2 := totalRevenue / adSpend
	profit := totalRevenue - adSpend

	text, err := d.Summarizer.Summarize(r.Context(), adSpend, totalRevenue, r2, profit)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"error": errMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ad_spend":      adSpend,
		"total_revenue": totalRevenue,
		"roi":           round2(r2),
		"profit":        round2(profit),
		"summary":       text,
	})
}

func (d Deps) oauthLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, d.Flow.AuthURL(), http.StatusTemporaryRedirect)
}

func (d Deps) oauthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code query parameter is required")
		return
	}
	token, err := d.Flow.Exchange(r.Context(), code)
	if err != nil && token == nil {
		writeError(w, http.StatusBadGateway, errMessage(err))
		return
	}
	msg := "Google authorization complete. Tokens cached and stored in database."
	if err != nil {
		d.Log.Warn("token persistence failed", slog.String("err", err.Error()))
		msg = "Google authorization complete. Tokens cached; database persistence failed."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": msg,
		"token_preview": map[string]any{
			"access_token":  auth.Preview(token.AccessToken),
			"refresh_token": auth.Preview(token.RefreshToken),
			"scope":         token.Extra("scope"),
			"expires_in":    token.ExpiresIn,
			"token_type":    token.TokenType,
		},
	})
}

type passwordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d Deps) passwordLogin(w http.ResponseWriter, r *http.Request) {
	var req passwordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := auth.VerifyLogin(r.Context(), d.Keys, req.Email, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, errMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful"})
}

func (d Deps) adsSummary(w http.ResponseWriter, r *http.Request) {
	token, ok := d.Flow.CachedToken()
	if !ok {
		writeError(w, http.StatusUnauthorized, "No Google tokens found. Please authorize first at /auth/login.")
		return
	}
	if token.AccessToken == "" {
		writeError(w, http.StatusUnauthorized, "Access token missing or invalid.")
		return
	}

	q := r.URL.Query()
	customerID := q.Get("customer_id")
	if customerID == "" {
		customerID = d.CustomerID
	}
	dateRange := q.Get("date_range")
	if dateRange == "" {
		dateRange = "LAST_7_DAYS"
	}
	adSpend := optionalFloat(q.Get("ad_spend"))
	totalRevenue := optionalFloat(q.Get("total_revenue"))

	acc := metrics.NewAccumulator()
	err := d.AdsClient.SearchStream(r.Context(), token.AccessToken, customerID, dateRange,
		func(rows []models.RawMetricRow) error {
			acc.AddChunk(rows)
			return nil
		})
	if err != nil {
		var upstream *ads.UpstreamError
		if errors.As(err, &upstream) {
			writeJSON(w, upstream.Status, map[string]any{
				"error":   "Failed to retrieve Ads data.",
				"details": upstream.Body,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, errMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"summary": acc.Summarize(adSpend, totalRevenue),
		"records": acc.Records(),
		"meta": map[string]any{
			"customer_id":   customerID,
			"date_range":    dateRange,
			"ad_spend":      adSpend,
			"total_revenue": totalRevenue,
		},
	})
}

func (d Deps) listKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := d.Keys.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, errMessage(err))
		return
	}
	if keys == nil {
		keys = []store.KeyInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": keys})
}

func (d Deps) getKey(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "service_name")
	keys, err := d.Keys.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, errMessage(err))
		return
	}
	for _, k := range keys {
		if k.ServiceName == name {
			writeJSON(w, http.StatusOK, k)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Service not found.")
}

func (d Deps) updateKey(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("service_name")
	value := r.URL.Query().Get("key_value")
	if name == "" || value == "" {
		writeError(w, http.StatusBadRequest, "service_name and key_value are required")
		return
	}
	if err := d.Keys.Upsert(r.Context(), name, value); err != nil {
		writeError(w, http.StatusInternalServerError, errMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "API key for " + name + " updated successfully.",
	})
}

func (d Deps) deleteKey(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "service_name")
	err := d.Keys.Delete(r.Context(), name)
	if eris.Is(err, store.ErrKeyNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "message": "No key found for " + name + "."})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, errMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": name + " key deleted."})
}

func (d Deps) testKey(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "service_name")
	valid, err := d.Keys.Test(r.Context(), name)
	if eris.Is(err, store.ErrKeyNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "message": "No key found for " + name + "."})
		return
	}
	if err != nil || !valid {
		writeJSON(w, http.StatusOK, map[string]any{"status": "invalid", "message": name + " key failed validation."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "valid", "message": name + " key appears valid."})
}

type recapRequest struct {
	ToEmail   string `json:"to_email"`
	FirstName string `json:"first_name"`
	RecapBody string `json:"recap_body"`
}

func (d Deps) sendRecap(w http.ResponseWriter, r *http.Request) {
	var req recapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := d.Mailer.SendRecap(r.Context(), req.ToEmail, req.FirstName, req.RecapBody); err != nil {
		writeError(w, http.StatusInternalServerError, errMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "Recap email sent successfully"})
}

func optionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
