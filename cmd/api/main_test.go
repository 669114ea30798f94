package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"focusmon/internal/attendance"
	"focusmon/internal/faults"
	"focusmon/internal/topics"
)

type fakeHealth struct {
	healthy bool
}

func (f fakeHealth) Healthy(context.Context) bool { return f.healthy }

type fakeAttendanceLister struct {
	records []attendance.Record
	err     error

	gotUsername string
	gotDate     string
	gotLimit    int
}

func (f *fakeAttendanceLister) ListByUser(_ context.Context, username, date string, limit int) ([]attendance.Record, error) {
	f.gotUsername, f.gotDate, f.gotLimit = username, date, limit
	return f.records, f.err
}

type fakeTopicLister struct {
	records []topics.Record
	err     error
}

func (f *fakeTopicLister) ListRecent(context.Context, int) ([]topics.Record, error) {
	return f.records, f.err
}

func serve(t *testing.T, r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthzReportsStoreProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		redis, db bool
		status    int
	}{
		{true, true, http.StatusOK},
		{false, true, http.StatusServiceUnavailable},
		{true, false, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/healthz", healthzHandler(fakeHealth{tc.redis}, fakeHealth{tc.db}))
		w := serve(t, r, http.MethodGet, "/healthz")
		require.Equal(t, tc.status, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, tc.redis, body["redis"])
		require.Equal(t, tc.db, body["db"])
	}
}

func TestListAttendanceRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	lister := &fakeAttendanceLister{records: []attendance.Record{
		{Username: "alice@school.edu", Date: "2026-04-21", Time: "09:15:30", FaceDetected: true},
	}}
	r := gin.New()
	r.GET("/v1/attendance", listAttendanceHandler(lister))

	w := serve(t, r, http.MethodGet, "/v1/attendance?username=alice%40school.edu&date=2026-04-21&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice@school.edu", lister.gotUsername)
	require.Equal(t, "2026-04-21", lister.gotDate)
	require.Equal(t, 5, lister.gotLimit)

	var body struct {
		Records []attendance.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Records, 1)
	require.True(t, body.Records[0].FaceDetected)
}

func TestListAttendanceRequiresUserAndDate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/v1/attendance", listAttendanceHandler(&fakeAttendanceLister{}))

	w := serve(t, r, http.MethodGet, "/v1/attendance?username=alice")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, r, http.MethodGet, "/v1/attendance?date=2026-04-21")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAttendanceStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	lister := &fakeAttendanceLister{err: faults.Dependency("attendance store", errors.New("db down"))}
	r := gin.New()
	r.GET("/v1/attendance", listAttendanceHandler(lister))

	w := serve(t, r, http.MethodGet, "/v1/attendance?username=alice&date=2026-04-21")
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListTopicsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	lister := &fakeTopicLister{records: []topics.Record{
		{TopicID: "abc123", Username: "carol", Date: "2026-04-21", Time: "09:20:00", Topic: "recursion"},
	}}
	r := gin.New()
	r.GET("/v1/topics", listTopicsHandler(lister))

	w := serve(t, r, http.MethodGet, "/v1/topics")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Topics []topics.Record `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Topics, 1)
	require.Equal(t, "recursion", body.Topics[0].Topic)
}

func TestListTopicsStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	lister := &fakeTopicLister{err: faults.Dependency("topic store", errors.New("db down"))}
	r := gin.New()
	r.GET("/v1/topics", listTopicsHandler(lister))

	w := serve(t, r, http.MethodGet, "/v1/topics")
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
