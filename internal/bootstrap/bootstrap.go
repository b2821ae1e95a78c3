// Package bootstrap assembles the backend graph from configuration. The
// sync service and notesctl share it.
package bootstrap

import (
	"context"
	"net/http"

	"github.com/ghichu/ghichu/internal/auth"
	"github.com/ghichu/ghichu/internal/config"
	"github.com/ghichu/ghichu/internal/database"
	"github.com/ghichu/ghichu/internal/note"
	"github.com/ghichu/ghichu/internal/note/remote"
	"github.com/ghichu/ghichu/internal/note/service"
	"github.com/ghichu/ghichu/internal/oidc"
	"github.com/ghichu/ghichu/internal/sessions"
	"github.com/ghichu/ghichu/internal/tokens"
	"github.com/ghichu/ghichu/internal/users"
	"github.com/ghichu/ghichu/pkg/logger"
	"github.com/ghichu/ghichu/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const mongoAttempts = 5

// Server is everything the sync service serves.
type Server struct {
	Config    *config.Config
	Notes     service.Service
	Users     *users.Service
	Sessions  *sessions.Service
	Blacklist *sessions.Blacklist
	Auth      *auth.Service
	Verifiers []middleware.Verifier
	Redis     *redis.Client
	Mongo     *mongo.Client

	oidcWanted bool
	oidcReady  bool
	notesStore string
	sessStore  string
}

// NewServer connects to the configured backends. Redis and MongoDB are
// optional: when unreachable the service logs a warning and keeps the
// affected data in memory.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log := logger.Named("bootstrap")
	s := &Server{Config: cfg}

	if addr := cfg.RedisAddr(); addr != "" {
		rc := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Warnf("redis %s unavailable: %v", addr, err)
			_ = rc.Close()
		} else {
			log.Infof("connected to redis %s", addr)
			s.Redis = rc
		}
	}

	if cfg.MongoDB.URI != "" {
		mc, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoAttempts)
		if err != nil {
			log.Warnf("%v", err)
		} else {
			s.Mongo = mc
		}
	}

	opts := service.Options{MaxTitleLength: cfg.Notes.TitleMaxLength}
	userRepo := users.UserRepository(users.NewMemoryUserRepository())
	var sessRepo sessions.Repository
	if s.Mongo != nil {
		db := s.Mongo.Database(cfg.MongoDB.Database)
		if cfg.Store.Backend == "mongo" {
			col := db.Collection("notes")
			if err := database.EnsureNoteIndexes(ctx, col); err != nil {
				log.Warnf("%v", err)
			}
			s.Notes = service.NewMongoService(col, opts)
			s.notesStore = "mongo"
		}
		userCol := db.Collection("users")
		if err := database.EnsureUserIndexes(ctx, userCol); err != nil {
			log.Warnf("%v", err)
		}
		userRepo = users.NewMongoUserRepository(userCol)
		sessCol := db.Collection("sessions")
		if err := database.EnsureSessionIndexes(ctx, sessCol); err != nil {
			log.Warnf("%v", err)
		}
		sessRepo = sessions.NewMongoRepository(sessCol)
		s.sessStore = "mongo"
	}
	if s.Notes == nil {
		s.Notes = service.NewMemoryService(opts)
		s.notesStore = "memory"
	}
	if s.Redis != nil {
		sessRepo = sessions.NewRedisRepository(s.Redis, "session:")
		s.sessStore = "redis"
	}
	if sessRepo == nil {
		sessRepo = sessions.NewMemoryRepository()
		s.sessStore = "memory"
	}

	var resets sessions.ResetStore = sessions.NewMemoryResetStore()
	if s.Redis != nil {
		resets = sessions.NewRedisResetStore(s.Redis)
	}

	s.Users = users.NewService(userRepo)
	s.Sessions = sessions.NewService(sessRepo)
	s.Blacklist = sessions.NewBlacklist(s.Redis)
	s.Auth = auth.NewService(cfg, s.Users, s.Sessions, s.Blacklist, resets, auth.LogMailer{})

	s.Verifiers = []middleware.Verifier{tokens.NewVerifier(cfg, s.Blacklist)}
	s.oidcWanted = cfg.Keycloak.URL != ""
	ov, err := oidc.FromConfig(ctx, cfg.Keycloak)
	if err != nil {
		log.Warnf("oidc verifier unavailable: %v", err)
	} else if ov != nil {
		s.Verifiers = append(s.Verifiers, ov)
		s.oidcReady = true
	}

	log.Infof("notes=%s sessions=%s redis=%v oidc=%v", s.notesStore, s.sessStore, s.Redis != nil, s.oidcReady)
	return s, nil
}

// Ready reports the state of each dependency and whether all required ones
// are up.
func (s *Server) Ready(ctx context.Context) (map[string]bool, bool) {
	deps := map[string]bool{"notes": s.Notes != nil, "auth": s.Auth != nil}
	if s.Config.MongoDB.URI != "" {
		deps["mongo"] = s.Mongo != nil && s.Mongo.Ping(ctx, nil) == nil
	}
	if s.Config.RedisAddr() != "" {
		deps["redis"] = s.Redis != nil && s.Redis.Ping(ctx).Err() == nil
	}
	if s.oidcWanted {
		deps["oidc"] = s.oidcReady
	}
	ready := true
	for _, ok := range deps {
		ready = ready && ok
	}
	return deps, ready
}

// Close disconnects from Redis and MongoDB.
func (s *Server) Close(ctx context.Context) {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Mongo != nil {
		_ = s.Mongo.Disconnect(ctx)
	}
}

// Client is what notesctl needs: an auth client and a note store.
type Client struct {
	Auth  *auth.Client
	Store note.Store
	// Server is set when the stores run in process.
	Server *Server
}

// NewClient talks to cfg.Client.ServerURL when set and otherwise runs the
// server graph in process.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if url := cfg.Client.ServerURL; url != "" {
		hc := &http.Client{Timeout: cfg.Client.Timeout}
		ac := auth.NewClient(auth.NewHTTPBackend(url, hc))
		return &Client{Auth: ac, Store: remote.New(url, ac.AccessToken, hc)}, nil
	}
	srv, err := NewServer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{Auth: auth.NewClient(srv.Auth), Store: srv.Notes, Server: srv}, nil
}

// Close releases in-process backends.
func (c *Client) Close(ctx context.Context) {
	if c.Server != nil {
		c.Server.Close(ctx)
	}
}
