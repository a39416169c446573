package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/addis-analytics/fidata/internal/model"
	"github.com/addis-analytics/fidata/internal/store"
	"github.com/addis-analytics/fidata/internal/summary"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestRouter(t *testing.T) (http.Handler, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return newRouter(st, []string{"*"}), st
}

func validRecordPayload() map[string]any {
	return map[string]any{
		"record_type":     "observation",
		"metric_name":     "Registered mobile money users",
		"indicator_code":  "MM_REG_USERS",
		"pillar":          "digital_payments",
		"value":           "54,800,000",
		"source_url":      "https://example.et/reports/2025",
		"original_text":   "registered users reached 54.8 million",
		"confidence":      "high",
		"collected_by":    "analyst@addis-analytics.com",
		"collection_date": time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC),
	}
}

func postRecord(t *testing.T, router http.Handler, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_AppendRecord(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := postRecord(t, router, validRecordPayload())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var rec model.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.NotEmpty(t, rec.ID)
	require.NotNil(t, rec.ValueNumeric)
	assert.InDelta(t, 54800000, *rec.ValueNumeric, 0.001)
}

func TestRouter_AppendRecord_RejectsIncomplete(t *testing.T) {
	router, _ := newTestRouter(t)

	payload := validRecordPayload()
	delete(payload, "original_text")

	rr := postRecord(t, router, payload)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "original_text")
}

func TestRouter_AppendRecord_BadJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_GetRecord(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := postRecord(t, router, validRecordPayload())
	require.Equal(t, http.StatusCreated, rr.Code)
	var created model.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, "/records/"+created.ID, nil)
	getRR := httptest.NewRecorder()
	router.ServeHTTP(getRR, req)

	assert.Equal(t, http.StatusOK, getRR.Code)

	var fetched model.Record
	require.NoError(t, json.Unmarshal(getRR.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestRouter_GetRecord_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/records/does-not-exist", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_ListRecords_ExcludesSuperseded(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := postRecord(t, router, validRecordPayload())
	require.Equal(t, http.StatusCreated, rr.Code)
	var original model.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &original))

	correction := validRecordPayload()
	correction["value"] = "55,000,000"
	correction["supersedes"] = original.ID
	rr = postRecord(t, router, correction)
	require.Equal(t, http.StatusCreated, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	listRR := httptest.NewRecorder()
	router.ServeHTTP(listRR, req)
	require.Equal(t, http.StatusOK, listRR.Code)

	var records []model.Record
	require.NoError(t, json.Unmarshal(listRR.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, original.ID, records[0].Supersedes)

	// ?all=1 includes the superseded original.
	req = httptest.NewRequest(http.MethodGet, "/records?all=1", nil)
	allRR := httptest.NewRecorder()
	router.ServeHTTP(allRR, req)
	require.NoError(t, json.Unmarshal(allRR.Body.Bytes(), &records))
	assert.Len(t, records, 2)
}

func TestRouter_SummaryCounts(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := postRecord(t, router, validRecordPayload())
	require.Equal(t, http.StatusCreated, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/summary/counts", nil)
	sumRR := httptest.NewRecorder()
	router.ServeHTTP(sumRR, req)
	require.Equal(t, http.StatusOK, sumRR.Code)

	var counts summary.Counts
	require.NoError(t, json.Unmarshal(sumRR.Body.Bytes(), &counts))
	assert.Equal(t, 1, counts.Total)
	assert.Equal(t, 1, counts.ByRecordType["observation"])
}

func TestRouter_ListVerifications_Empty(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := postRecord(t, router, validRecordPayload())
	require.Equal(t, http.StatusCreated, rr.Code)
	var created model.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, "/records/"+created.ID+"/verifications", nil)
	vRR := httptest.NewRecorder()
	router.ServeHTTP(vRR, req)
	assert.Equal(t, http.StatusOK, vRR.Code)
}
