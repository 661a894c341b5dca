package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confide/internal/logger"
)

func newHandlerFixture(t *testing.T) (*gin.Engine, *Service, *fakeQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, queue := newTestService(t)
	handler := NewHandler(svc, logger.NopLogger())

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, svc, queue
}

func seedRecords(t *testing.T, svc *Service, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		job := exhaustedJob()
		job.ID = fmt.Sprintf("job-%d", i)
		require.NoError(t, svc.Quarantine(context.Background(), job, errors.New("downstream refused")))
	}
	records, _, err := svc.List(context.Background(), 0, n-1)
	require.NoError(t, err)
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids
}

func do(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestListEndpointDefaultsToFirstPage(t *testing.T) {
	router, svc, _ := newHandlerFixture(t)
	seedRecords(t, svc, 3)

	w := do(router, http.MethodGet, "/admin/dlq")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Total int `json:"total"`
		Jobs  []struct {
			ID           string `json:"id"`
			UserID       string `json:"userId"`
			Type         string `json:"type"`
			AttemptsMade int    `json:"attemptsMade"`
			LastError    string `json:"lastError"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Jobs, 3)
	assert.Equal(t, "user-1", body.Jobs[0].UserID)
	assert.Equal(t, "message", body.Jobs[0].Type)
	assert.Equal(t, 5, body.Jobs[0].AttemptsMade)
	assert.Equal(t, "downstream refused", body.Jobs[0].LastError)
}

func TestListEndpointHonorsRange(t *testing.T) {
	router, svc, _ := newHandlerFixture(t)
	seedRecords(t, svc, 5)

	w := do(router, http.MethodGet, "/admin/dlq?start=1&end=2")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Total int               `json:"total"`
		Jobs  []json.RawMessage `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Total)
	assert.Len(t, body.Jobs, 2)
}

func TestGetEndpoint(t *testing.T) {
	router, svc, _ := newHandlerFixture(t)
	ids := seedRecords(t, svc, 1)

	w := do(router, http.MethodGet, "/admin/dlq/"+ids[0])
	require.Equal(t, http.StatusOK, w.Code)

	var view View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, ids[0], view.ID)
	assert.Equal(t, "user-1", view.UserID)

	w = do(router, http.MethodGet, "/admin/dlq/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRetryEndpoint(t *testing.T) {
	router, svc, queue := newHandlerFixture(t)
	ids := seedRecords(t, svc, 1)

	w := do(router, http.MethodPost, "/admin/dlq/"+ids[0]+"/retry")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Message  string `json:"message"`
		NewJobID string `json:"newJobId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Re-enqueued for reprocessing", body.Message)
	assert.Equal(t, "fresh-id", body.NewJobID)
	assert.Len(t, queue.enqueued, 1)

	// Retried record is gone.
	w = do(router, http.MethodPost, "/admin/dlq/"+ids[0]+"/retry")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveEndpoint(t *testing.T) {
	router, svc, _ := newHandlerFixture(t)
	ids := seedRecords(t, svc, 1)

	w := do(router, http.MethodDelete, "/admin/dlq/"+ids[0])
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, fmt.Sprintf("DLQ job %s removed", ids[0]), body.Message)

	w = do(router, http.MethodDelete, "/admin/dlq/"+ids[0])
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDrainEndpoint(t *testing.T) {
	router, svc, _ := newHandlerFixture(t)
	seedRecords(t, svc, 4)

	w := do(router, http.MethodDelete, "/admin/dlq")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "DLQ drained", body.Message)

	// Listing after a drain reports an empty store.
	w = do(router, http.MethodGet, "/admin/dlq")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Total int               `json:"total"`
		Jobs  []json.RawMessage `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Zero(t, list.Total)
	assert.Empty(t, list.Jobs)
}
