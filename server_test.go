package busmetrics_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caravela.dev/busmetrics"
	"caravela.dev/busmetrics/storage"
)

func rollupRequest(date, token string) *http.Request {
	req := httptest.NewRequest("GET", "/api/cron/daily-rollup", nil)
	if date != "" {
		q := req.URL.Query()
		q.Set("date", date)
		req.URL.RawQuery = q.Encode()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestServerHealth(t *testing.T) {
	server := busmetrics.NewServer(busmetrics.NewPipeline(storage.NewMemoryStorage()), "s3cret")

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServerDailyRollup(t *testing.T) {
	s := storage.NewMemoryStorage()
	defer s.Close()
	seedDay(t, s)

	server := busmetrics.NewServer(busmetrics.NewPipeline(s), "s3cret")

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, rollupRequest("2024-05-14", "s3cret"))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2024-05-14", body["date"])
	assert.Equal(t, 90.0, body["positions"])
	assert.Equal(t, 3.0, body["trips"])
	assert.Equal(t, 1.0, body["routePerformance"])
	assert.NotEmpty(t, body["elapsed"])
}

func TestServerDailyRollupAuth(t *testing.T) {
	server := busmetrics.NewServer(busmetrics.NewPipeline(storage.NewMemoryStorage()), "s3cret")

	for _, token := range []string{"", "wrong", "s3cret-but-longer"} {
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, rollupRequest("2024-05-14", token))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "token %q", token)
		assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
	}

	// A basic-auth style header must not pass either.
	w := httptest.NewRecorder()
	req := rollupRequest("2024-05-14", "")
	req.Header.Set("Authorization", "Basic s3cret")
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServerDailyRollupNoSecretConfigured(t *testing.T) {
	server := busmetrics.NewServer(busmetrics.NewPipeline(storage.NewMemoryStorage()), "")

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, rollupRequest("2024-05-14", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServerDailyRollupInvalidDate(t *testing.T) {
	server := busmetrics.NewServer(busmetrics.NewPipeline(storage.NewMemoryStorage()), "s3cret")

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, rollupRequest("not-a-date", "s3cret"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid date"}`, w.Body.String())
}
