package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ghichu/ghichu/internal/note"
	"github.com/ghichu/ghichu/internal/note/service"
	"github.com/ghichu/ghichu/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// asUser stands in for AuthMiddleware: the X-Test-User header is the subject.
func asUser(c *gin.Context) {
	c.Set(middleware.UIDKey, c.GetHeader("X-Test-User"))
	c.Next()
}

func newEngine(svc service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	api := g.Group("/api/v1", asUser)
	New(svc, WatchSettings{WriteTimeout: time.Second, PingTimeout: 50 * time.Millisecond}).Register(api)
	return g
}

func do(g *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-Test-User", user)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestNoteHandler_CRUD(t *testing.T) {
	g := newEngine(service.NewMemoryService(service.Options{}))

	w := do(g, http.MethodPost, "/api/v1/notes", "u1", `{"title":"Shopping","content":"milk"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var cr map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cr))
	id := cr["id"]
	require.NotEmpty(t, id)

	w = do(g, http.MethodGet, "/api/v1/notes/"+id, "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var created note.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "milk", created.Content)
	require.NotNil(t, created.CreatedAt)
	require.True(t, created.CreatedAt.Equal(*created.UpdatedAt))

	w = do(g, http.MethodPatch, "/api/v1/notes/"+id, "u1", `{"content":"milk, eggs"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(g, http.MethodGet, "/api/v1/notes/"+id, "u1", "")
	var updated note.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, "Shopping", updated.Title)
	require.Equal(t, "milk, eggs", updated.Content)
	require.True(t, updated.CreatedAt.Equal(*created.CreatedAt))
	require.True(t, updated.UpdatedAt.After(*created.UpdatedAt))

	// other users cannot see it
	w = do(g, http.MethodGet, "/api/v1/notes/"+id, "u2", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(g, http.MethodDelete, "/api/v1/notes/"+id, "u1", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(g, http.MethodDelete, "/api/v1/notes/"+id, "u1", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(g, http.MethodPatch, "/api/v1/notes/"+id, "u1", `{"content":"gone"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNoteHandler_ListSearch(t *testing.T) {
	g := newEngine(service.NewMemoryService(service.Options{}))
	require.Equal(t, http.StatusCreated, do(g, http.MethodPost, "/api/v1/notes", "u1", `{"title":"Shopping"}`).Code)
	require.Equal(t, http.StatusCreated, do(g, http.MethodPost, "/api/v1/notes", "u1", `{"title":"Work plan"}`).Code)

	var body struct {
		Notes []note.Note `json:"notes"`
	}
	w := do(g, http.MethodGet, "/api/v1/notes", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Notes, 2)
	require.Equal(t, "Work plan", body.Notes[0].Title, "newest first")

	w = do(g, http.MethodGet, "/api/v1/notes?q=wor", "u1", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Notes, 1)
	require.Equal(t, "Work plan", body.Notes[0].Title)
}

func TestNoteHandler_Validation(t *testing.T) {
	g := newEngine(service.NewMemoryService(service.Options{}))

	w := do(g, http.MethodPost, "/api/v1/notes", "u1", `{"title":"`+strings.Repeat("a", 101)+`"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodPost, "/api/v1/notes", "u1", `not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodPost, "/api/v1/notes", "", `{"title":"x"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func dial(t *testing.T, srv *httptest.Server, path, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	ws, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Test-User": []string{user}})
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestNoteHandler_WatchCollection(t *testing.T) {
	svc := service.NewMemoryService(service.Options{})
	srv := httptest.NewServer(newEngine(svc))
	defer srv.Close()

	ws := dial(t, srv, "/api/v1/notes/watch", "u1")
	var frame CollectionFrame
	require.NoError(t, ws.ReadJSON(&frame))
	require.Empty(t, frame.Notes)

	_, err := svc.Create(context.Background(), "u1", note.Fields{note.FieldTitle: "Shopping", note.FieldCreatedAt: note.ServerTimestamp})
	require.NoError(t, err)
	require.NoError(t, ws.ReadJSON(&frame))
	require.Len(t, frame.Notes, 1)
	require.Equal(t, "Shopping", frame.Notes[0].Title)
	require.Nil(t, frame.Notes[0].UpdatedAt)
}

func TestNoteHandler_WatchDocument(t *testing.T) {
	svc := service.NewMemoryService(service.Options{})
	srv := httptest.NewServer(newEngine(svc))
	defer srv.Close()

	id, err := svc.Create(context.Background(), "u1", note.Fields{note.FieldTitle: "Work plan", note.FieldContent: "draft"})
	require.NoError(t, err)

	ws := dial(t, srv, "/api/v1/notes/"+id+"/watch", "u1")
	var frame DocumentFrame
	require.NoError(t, ws.ReadJSON(&frame))
	require.True(t, frame.Exists)
	require.Equal(t, "draft", frame.Note.Content)

	require.NoError(t, svc.Delete(context.Background(), "u1", id))
	frame = DocumentFrame{}
	require.NoError(t, ws.ReadJSON(&frame))
	require.False(t, frame.Exists)
	require.Nil(t, frame.Note)
	require.Empty(t, frame.Error)
}

func TestNoteHandler_WatchRequiresOwner(t *testing.T) {
	srv := httptest.NewServer(newEngine(service.NewMemoryService(service.Options{})))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/notes/watch"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNoteHandler_CreateWithoutUpdatedAt(t *testing.T) {
	g := newEngine(service.NewMemoryService(service.Options{}))

	w := do(g, http.MethodPost, "/api/v1/notes", "u1", `{"title":"Chào mừng","serverTimestamps":["createdAt"]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var cr map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cr))

	w = do(g, http.MethodGet, "/api/v1/notes/"+cr["id"], "u1", "")
	var n note.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &n))
	require.NotNil(t, n.CreatedAt)
	require.Nil(t, n.UpdatedAt)
	require.NotContains(t, w.Body.String(), "updatedAt")

	w = do(g, http.MethodPost, "/api/v1/notes", "u1", `{"title":"x","serverTimestamps":["deletedAt"]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
