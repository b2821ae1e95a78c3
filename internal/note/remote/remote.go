// Package remote implements the note store against a running sync service.
// The owner argument is informational: the service scopes every call to the
// subject of the bearer token.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ghichu/ghichu/internal/note"
	"github.com/ghichu/ghichu/internal/note/handler"
	"github.com/ghichu/ghichu/pkg/logger"
	"github.com/gorilla/websocket"
)

// TokenSource returns a current access token.
type TokenSource func(ctx context.Context) (string, error)

type Store struct {
	base   string
	token  TokenSource
	client *http.Client
	dialer *websocket.Dialer
	log    logger.Component
}

func New(baseURL string, token TokenSource, client *http.Client) *Store {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Store{
		base:   strings.TrimRight(baseURL, "/") + "/api/v1",
		token:  token,
		client: client,
		dialer: &websocket.Dialer{HandshakeTimeout: 15 * time.Second},
		log:    logger.Named("remote"),
	}
}

type apiError struct {
	Status  int
	Message string `json:"error"`
}

func (e *apiError) Error() string { return fmt.Sprintf("sync service: %d %s", e.Status, e.Message) }

func (e *apiError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return note.ErrNotFound
	case e.Status == http.StatusUnauthorized:
		return note.ErrNoOwner
	case e.Status == http.StatusBadRequest && strings.Contains(e.Message, note.ErrTitleTooLong.Error()):
		return note.ErrTitleTooLong
	}
	return nil
}

func (s *Store) authHeader(ctx context.Context) (http.Header, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return http.Header{"Authorization": []string{"Bearer " + tok}}, nil
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, rd)
	if err != nil {
		return err
	}
	hdr, err := s.authHeader(ctx)
	if err != nil {
		return err
	}
	req.Header = hdr
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		e := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(e)
		return e
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, owner string, fields note.Fields) (string, error) {
	if err := fields.Validate(true); err != nil {
		return "", err
	}
	req := handler.CreateRequest{Title: fields.Title(), ServerTimestamps: []string{}}
	req.Content, _ = fields[note.FieldContent].(string)
	for _, k := range []string{note.FieldCreatedAt, note.FieldUpdatedAt} {
		if _, ok := fields[k]; ok {
			req.ServerTimestamps = append(req.ServerTimestamps, k)
		}
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := s.do(ctx, http.MethodPost, "/notes", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (s *Store) Update(ctx context.Context, owner, id string, fields note.Fields) error {
	if err := fields.Validate(false); err != nil {
		return err
	}
	var req handler.UpdateRequest
	if v, ok := fields[note.FieldTitle].(string); ok {
		req.Title = &v
	}
	if v, ok := fields[note.FieldContent].(string); ok {
		req.Content = &v
	}
	return s.do(ctx, http.MethodPatch, "/notes/"+url.PathEscape(id), req, nil)
}

func (s *Store) Delete(ctx context.Context, owner, id string) error {
	return s.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), nil, nil)
}

func (s *Store) Get(ctx context.Context, owner, id string) (*note.Note, error) {
	var n note.Note
	if err := s.do(ctx, http.MethodGet, "/notes/"+url.PathEscape(id), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) List(ctx context.Context, owner string) ([]note.Note, error) {
	var out struct {
		Notes []note.Note `json:"notes"`
	}
	if err := s.do(ctx, http.MethodGet, "/notes", nil, &out); err != nil {
		return nil, err
	}
	return out.Notes, nil
}

func (s *Store) dial(ctx context.Context, path string) (*websocket.Conn, error) {
	hdr, err := s.authHeader(ctx)
	if err != nil {
		return nil, err
	}
	u := "ws" + strings.TrimPrefix(s.base, "http") + path
	ws, resp, err := s.dialer.DialContext(ctx, u, hdr)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			e := &apiError{Status: resp.StatusCode}
			_ = json.NewDecoder(resp.Body).Decode(e)
			return nil, e
		}
		return nil, err
	}
	return ws, nil
}

// readFrames decodes frames until the stream ends and then releases ws. A read
// error while ctx is still live is delivered as a failed snapshot. convert reports whether a
// frame ends the stream.
func readFrames[F any, S any](ctx context.Context, ws *websocket.Conn, out chan<- S, convert func(F) (S, bool), failed func(error) S, log logger.Component) {
	defer close(out)
	// the socket closes when the subscription is cancelled or the stream ends
	ended := make(chan struct{})
	defer close(ended)
	go func() {
		select {
		case <-ctx.Done():
		case <-ended:
		}
		ws.Close()
	}()
	for {
		var f F
		err := ws.ReadJSON(&f)
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			log.Errorf("stream: %v", err)
			select {
			case out <- failed(err):
			case <-ctx.Done():
			}
			return
		}
		s, last := convert(f)
		select {
		case out <- s:
		case <-ctx.Done():
			return
		}
		if last {
			return
		}
	}
}

var errSnapshot = errors.New("snapshot failed")

func (s *Store) WatchCollection(ctx context.Context, owner string) (<-chan note.CollectionSnapshot, error) {
	ws, err := s.dial(ctx, "/notes/watch")
	if err != nil {
		return nil, err
	}
	out := make(chan note.CollectionSnapshot)
	go readFrames(ctx, ws, out, func(f handler.CollectionFrame) (note.CollectionSnapshot, bool) {
		if f.Error != "" {
			return note.CollectionSnapshot{Err: fmt.Errorf("%w: %s", errSnapshot, f.Error)}, true
		}
		return note.CollectionSnapshot{Notes: f.Notes}, false
	}, func(err error) note.CollectionSnapshot {
		return note.CollectionSnapshot{Err: err}
	}, s.log)
	return out, nil
}

func (s *Store) WatchDocument(ctx context.Context, owner, id string) (<-chan note.DocumentSnapshot, error) {
	ws, err := s.dial(ctx, "/notes/"+url.PathEscape(id)+"/watch")
	if err != nil {
		return nil, err
	}
	out := make(chan note.DocumentSnapshot)
	go readFrames(ctx, ws, out, func(f handler.DocumentFrame) (note.DocumentSnapshot, bool) {
		switch {
		case f.Error != "":
			return note.DocumentSnapshot{Err: fmt.Errorf("%w: %s", errSnapshot, f.Error)}, true
		case !f.Exists || f.Note == nil:
			return note.DocumentSnapshot{Note: note.Note{ID: id}}, false
		}
		return note.DocumentSnapshot{Note: *f.Note, Exists: true}, false
	}, func(err error) note.DocumentSnapshot {
		return note.DocumentSnapshot{Err: err}
	}, s.log)
	return out, nil
}
