package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ghichu/ghichu/internal/note"
	"github.com/ghichu/ghichu/internal/note/service"
	"github.com/ghichu/ghichu/pkg/logger"
	"github.com/ghichu/ghichu/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// CollectionFrame is one message on a collection watch stream.
type CollectionFrame struct {
	Notes []note.Note `json:"notes"`
	Error string      `json:"error,omitempty"`
}

// DocumentFrame is one message on a document watch stream.
type DocumentFrame struct {
	Exists bool       `json:"exists"`
	Note   *note.Note `json:"note,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// CreateRequest is the body of POST /notes. ServerTimestamps names the
// timestamp fields stamped at commit; nil means both.
type CreateRequest struct {
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	ServerTimestamps []string `json:"serverTimestamps,omitempty"`
}

// UpdateRequest is the body of PATCH /notes/:id. updatedAt is always stamped.
type UpdateRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

type WatchSettings struct {
	WriteTimeout time.Duration
	PingTimeout  time.Duration
}

func DefaultWatchSettings() WatchSettings {
	return WatchSettings{WriteTimeout: 10 * time.Second, PingTimeout: 30 * time.Second}
}

type Handler struct {
	svc      service.Service
	settings WatchSettings
	upgrader websocket.Upgrader
	log      logger.Component
}

func New(svc service.Service, settings WatchSettings) *Handler {
	return &Handler{
		svc:      svc,
		settings: settings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.Named("watch"),
	}
}

// RegisterNoteRoutes mounts the note API on r. r must already run
// middleware.AuthMiddleware; the token subject owns every note touched.
func RegisterNoteRoutes(r gin.IRouter, svc service.Service) {
	New(svc, DefaultWatchSettings()).Register(r)
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/notes", h.list)
	r.POST("/notes", h.create)
	r.GET("/notes/watch", h.watchCollection)
	r.GET("/notes/:id", h.get)
	r.PATCH("/notes/:id", h.update)
	r.DELETE("/notes/:id", h.remove)
	r.GET("/notes/:id/watch", h.watchDocument)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, note.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, note.ErrNoOwner):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, note.ErrTitleTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) list(c *gin.Context) {
	notes, err := h.svc.List(c.Request.Context(), middleware.UID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": note.Filter(notes, c.Query("q"))})
}

func (h *Handler) create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stamps := req.ServerTimestamps
	if stamps == nil {
		stamps = []string{note.FieldCreatedAt, note.FieldUpdatedAt}
	}
	fields := note.Fields{note.FieldTitle: req.Title, note.FieldContent: req.Content}
	for _, k := range stamps {
		fields[k] = note.ServerTimestamp
	}
	if err := fields.Validate(true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.svc.Create(c.Request.Context(), middleware.UID(c), fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) get(c *gin.Context) {
	n, err := h.svc.Get(c.Request.Context(), middleware.UID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fields := note.Fields{note.FieldUpdatedAt: note.ServerTimestamp}
	if req.Title != nil {
		fields[note.FieldTitle] = *req.Title
	}
	if req.Content != nil {
		fields[note.FieldContent] = *req.Content
	}
	id := c.Param("id")
	if err := h.svc.Update(c.Request.Context(), middleware.UID(c), id, fields); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.UID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) watchCollection(c *gin.Context) {
	owner := middleware.UID(c)
	stream(c, h, func(ctx context.Context) (<-chan note.CollectionSnapshot, error) {
		return h.svc.WatchCollection(ctx, owner)
	}, func(s note.CollectionSnapshot) (any, bool) {
		if s.Err != nil {
			h.log.Errorf("collection %s: %v", owner, s.Err)
			return CollectionFrame{Notes: []note.Note{}, Error: "snapshot failed"}, true
		}
		return CollectionFrame{Notes: s.Notes}, false
	})
}

func (h *Handler) watchDocument(c *gin.Context) {
	owner, id := middleware.UID(c), c.Param("id")
	stream(c, h, func(ctx context.Context) (<-chan note.DocumentSnapshot, error) {
		return h.svc.WatchDocument(ctx, owner, id)
	}, func(s note.DocumentSnapshot) (any, bool) {
		if s.Err != nil {
			h.log.Errorf("document %s/%s: %v", owner, id, s.Err)
			return DocumentFrame{Error: "snapshot failed"}, true
		}
		if !s.Exists {
			return DocumentFrame{}, false
		}
		n := s.Note
		return DocumentFrame{Exists: true, Note: &n}, false
	})
}

// stream upgrades the request and writes one JSON frame per snapshot until the
// peer goes away or the store ends the stream. frame reports whether the
// frame is the last one.
func stream[S any](c *gin.Context, h *Handler, open func(context.Context) (<-chan S, error), frame func(S) (any, bool)) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	snapshots, err := open(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("upgrade: %v", err)
		return
	}
	defer ws.Close()

	// the client never sends data; a read error means it has gone
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	closeWith := func(code int) {
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(h.settings.WriteTimeout))
	}
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-snapshots:
			if !ok {
				closeWith(websocket.CloseNormalClosure)
				return
			}
			msg, last := frame(s)
			ws.SetWriteDeadline(time.Now().Add(h.settings.WriteTimeout))
			if err := ws.WriteJSON(msg); err != nil {
				h.log.Debugf("write: %v", err)
				return
			}
			if last {
				closeWith(websocket.CloseInternalServerErr)
				return
			}
		case <-time.After(h.settings.PingTimeout):
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.settings.WriteTimeout)); err != nil {
				return
			}
		}
	}
}
