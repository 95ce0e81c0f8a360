package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/open-observatory/internal/adapter/httpadapter"
	"github.com/couchcryptid/open-observatory/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockLister struct {
	subs      []domain.Submission
	err       error
	lastLimit uint64
}

func (m *mockLister) Recent(_ context.Context, limit uint64) ([]domain.Submission, error) {
	m.lastLimit = limit
	return m.subs, m.err
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, slog.Default())
}

func serve(srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(fmt.Errorf("catalog not loaded yet")), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSubmissionsRouteAbsentWithoutLister(t *testing.T) {
	rec := serve(newTestServer(nil), "/submissions")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmissions(t *testing.T) {
	at := time.Date(2024, 4, 26, 21, 31, 0, 0, time.UTC)
	lister := &mockLister{subs: []domain.Submission{
		{ReportKey: "cam-1/0002", ObservationID: 102, Topic: "observation-reports", Offset: 1, SubmittedAt: at},
	}}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, lister, slog.Default())

	rec := serve(srv, "/submissions")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(20), lister.lastLimit)
	assert.JSONEq(t, `[{
		"reportKey": "cam-1/0002",
		"observationId": 102,
		"topic": "observation-reports",
		"offset": 1,
		"submittedAt": "2024-04-26T21:31:00Z"
	}]`, rec.Body.String())
}

func TestSubmissions_Limit(t *testing.T) {
	lister := &mockLister{}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, lister, slog.Default())

	rec := serve(srv, "/submissions?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(5), lister.lastLimit)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, bad := range []string{"0", "-1", "abc", "501"} {
		rec := serve(srv, "/submissions?limit="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestSubmissions_ListError(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, &mockLister{err: errors.New("disk I/O error")}, slog.Default())

	rec := serve(srv, "/submissions")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body["error"], "disk")
}

func TestChecks(t *testing.T) {
	ok := httpadapter.Checks{"relay": &mockReadiness{}, "submission_log": &mockReadiness{}}
	require.NoError(t, ok.CheckReadiness(context.Background()))

	failing := httpadapter.Checks{
		"relay":          &mockReadiness{err: errors.New("catalog not loaded yet")},
		"submission_log": &mockReadiness{},
	}
	err := failing.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay: catalog not loaded yet")
}
