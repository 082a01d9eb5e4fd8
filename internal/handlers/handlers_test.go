package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memedici/artfeed/internal/feed"
	"github.com/memedici/artfeed/internal/sessions"
	"github.com/memedici/artfeed/pkg/logging"
	"github.com/memedici/artfeed/pkg/middleware"
	"github.com/memedici/artfeed/pkg/models"
)

type scriptedBatcher struct {
	mu       sync.Mutex
	items    []models.ContentItem
	failures []models.FetchFailure
	err      error
}

func (b *scriptedBatcher) FetchBatch(ctx context.Context) ([]models.ContentItem, []models.FetchFailure, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items, b.failures, b.err
}

func testBatch(n int) []models.ContentItem {
	newest := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := make([]models.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.ContentItem{
			ID:        fmt.Sprintf("item-%03d", i),
			Kind:      models.KindImage,
			CreatedAt: newest.Add(-time.Duration(i) * time.Minute),
			LikeCount: 2,
		})
	}
	return items
}

func newTestRouter(t *testing.T, batcher feed.Batcher) (*gin.Engine, *sessions.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewLogger()
	mgr := sessions.NewManager(func(id string) *feed.Session {
		return feed.NewSession(id, batcher, feed.SessionConfig{PageSize: 20})
	}, sessions.Config{IdleTTL: time.Minute, Logger: logger})
	t.Cleanup(mgr.Close)

	Init(mgr, logger)

	router := gin.New()
	api := router.Group("/api/feed")
	{
		api.POST("/sessions", CreateSession)
		api.GET("/sessions/:id", GetSession)
		api.POST("/sessions/:id/more", LoadMore)
		api.POST("/sessions/:id/reset", ResetSession)
		api.POST("/sessions/:id/likes/:itemID", ToggleLike)
		api.DELETE("/sessions/:id", middleware.ServiceAuthMiddleware("test-token"), DeleteSession)
	}
	return router, mgr
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if out != nil && w.Code < 300 && w.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	var resp models.CreateSessionResponse
	w := doJSON(t, router, http.MethodPost, "/api/feed/sessions", &resp)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestCreateSessionServesFirstPage(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedBatcher{items: testBatch(30)})

	var resp models.CreateSessionResponse
	w := doJSON(t, router, http.MethodPost, "/api/feed/sessions", &resp)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, resp.Snapshot.Items, 20)
	assert.Equal(t, 20, resp.Snapshot.Cursor)
	assert.True(t, resp.Snapshot.HasMore)
	assert.False(t, resp.Snapshot.Degraded)
}

func TestLoadMoreAndGet(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedBatcher{items: testBatch(30)})
	id := createSession(t, router)

	// Creation already served the first 20; this pulls the remainder.
	var snap models.FeedSnapshot
	w := doJSON(t, router, http.MethodPost, "/api/feed/sessions/"+id+"/more", &snap)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, snap.Items, 30)
	assert.False(t, snap.HasMore)

	var again models.FeedSnapshot
	w = doJSON(t, router, http.MethodGet, "/api/feed/sessions/"+id, &again)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, snap.Cursor, again.Cursor)
	assert.Len(t, again.Items, 30)
}

func TestLoadMoreUpstreamFailureIsNot5xx(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedBatcher{err: errors.New("directory unreachable")})
	id := createSession(t, router)

	var snap models.FeedSnapshot
	w := doJSON(t, router, http.MethodPost, "/api/feed/sessions/"+id+"/more", &snap)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, snap.Degraded)
	require.NotEmpty(t, snap.Items)
	assert.True(t, snap.Items[0].Synthetic)
}

func TestUnknownSessionIs404(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedBatcher{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/feed/sessions/nope"},
		{http.MethodPost, "/api/feed/sessions/nope/more"},
		{http.MethodPost, "/api/feed/sessions/nope/reset"},
		{http.MethodPost, "/api/feed/sessions/nope/likes/item-000"},
	} {
		w := doJSON(t, router, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestToggleLike(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedBatcher{items: testBatch(5)})
	id := createSession(t, router)
	doJSON(t, router, http.MethodPost, "/api/feed/sessions/"+id+"/more", nil)

	var resp models.ToggleLikeResponse
	w := doJSON(t, router, http.MethodPost, "/api/feed/sessions/"+id+"/likes/item-002", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Liked)
	assert.Equal(t, int64(3), resp.LikeCount)

	w = doJSON(t, router, http.MethodPost, "/api/feed/sessions/"+id+"/likes/item-002", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, resp.Liked)
	assert.Equal(t, int64(2), resp.LikeCount)

	w = doJSON(t, router, http.MethodPost, "/api/feed/sessions/"+id+"/likes/no-such-item", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetSession(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedBatcher{items: testBatch(30)})
	id := createSession(t, router)
	doJSON(t, router, http.MethodPost, "/api/feed/sessions/"+id+"/more", nil)

	var snap models.FeedSnapshot
	w := doJSON(t, router, http.MethodPost, "/api/feed/sessions/"+id+"/reset", &snap)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, snap.Items)
	assert.Equal(t, 0, snap.Cursor)
	assert.True(t, snap.HasMore)
}

func TestDeleteSessionRequiresServiceToken(t *testing.T) {
	router, mgr := newTestRouter(t, &scriptedBatcher{})
	id := createSession(t, router)

	w := doJSON(t, router, http.MethodDelete, "/api/feed/sessions/"+id, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, mgr.Len())

	req := httptest.NewRequest(http.MethodDelete, "/api/feed/sessions/"+id, nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, mgr.Len())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/feed/sessions/"+id, nil)
	req.Header.Set("Authorization", "Bearer test-token")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
