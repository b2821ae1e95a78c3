package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ghichu/ghichu/internal/config"
	"github.com/ghichu/ghichu/internal/models"
	"github.com/ghichu/ghichu/internal/sessions"
	"github.com/ghichu/ghichu/internal/tokens"
	"github.com/ghichu/ghichu/internal/users"
	"github.com/ghichu/ghichu/pkg/logger"
	"github.com/ghichu/ghichu/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// Mailer delivers password reset codes.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes reset codes to the log instead of sending mail.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	logger.Named("mail").Infof("password reset for %s: code=%s", email, token)
	return nil
}

// Service manages accounts, refresh sessions and password resets.
type Service struct {
	cfg       *config.Config
	users     *users.Service
	sessions  *sessions.Service
	blacklist *sessions.Blacklist
	resets    sessions.ResetStore
	mailer    Mailer
	validate  *validator.Validate
	log       logger.Component
}

func NewService(cfg *config.Config, u *users.Service, s *sessions.Service, blacklist *sessions.Blacklist, resets sessions.ResetStore, mailer Mailer) *Service {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Service{
		cfg:       cfg,
		users:     u,
		sessions:  s,
		blacklist: blacklist,
		resets:    resets,
		mailer:    mailer,
		validate:  validator.New(),
		log:       logger.Named("auth"),
	}
}

func (s *Service) record(op string, err error) {
	metrics.AuthAttempts.WithLabelValues(op, metrics.Result(err)).Inc()
}

func (s *Service) checkEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", newError(CodeInvalidEmail, err)
	}
	return email, nil
}

func (s *Service) checkPassword(password string) error {
	if n := s.cfg.Auth.MinPasswordLength; len([]rune(password)) < n {
		return newError(CodeWeakPassword, nil, n)
	}
	return nil
}

// issue creates a refresh session and an access token for u.
func (s *Service) issue(ctx context.Context, u *models.User) (*Session, error) {
	refresh, err := s.sessions.Open(ctx, u.UID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, newError(CodeInternal, err)
	}
	return s.access(u, refresh)
}

func (s *Service) access(u *models.User, refresh string) (*Session, error) {
	ttl := s.cfg.JWT.AccessTokenTTL
	tok, err := tokens.GenerateAccessToken(s.cfg, u, ttl)
	if err != nil {
		return nil, newError(CodeInternal, err)
	}
	return &Session{
		Identity:     Identity{UID: u.UID, Email: u.Email},
		AccessToken:  tok,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(ttl),
	}, nil
}

func (s *Service) SignUp(ctx context.Context, email, password string) (sess *Session, err error) {
	defer func() { s.record("signup", err) }()
	email, err = s.checkEmail(email)
	if err != nil {
		return nil, err
	}
	if err := s.checkPassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, newError(CodeInternal, err)
	}
	u, err := s.users.Register(ctx, email, hash)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, newError(CodeEmailInUse, err)
		}
		return nil, newError(CodeInternal, err)
	}
	s.log.Infof("registered %s", u.UID)
	return s.issue(ctx, u)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (sess *Session, err error) {
	defer func() { s.record("signin", err) }()
	email, err = s.checkEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, newError(CodeInternal, err)
	}
	if u == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return nil, newError(CodeInvalidCredential, nil)
	}
	return s.issue(ctx, u)
}

// Refresh rotates a live refresh session and issues a new access token.
// The presented refresh token is spent.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (sess *Session, err error) {
	defer func() { s.record("refresh", err) }()
	rs, next, err := s.sessions.Rotate(ctx, refreshToken, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, newError(CodeInternal, err)
	}
	if rs == nil {
		return nil, newError(CodeSessionExpired, nil)
	}
	u, err := s.users.GetByUID(ctx, rs.UID)
	if err != nil {
		return nil, newError(CodeInternal, err)
	}
	if u == nil {
		_ = s.sessions.Close(ctx, next)
		return nil, newError(CodeSessionExpired, nil)
	}
	return s.access(u, next)
}

// SignOut ends the refresh session and revokes the access token until it
// would have expired anyway.
func (s *Service) SignOut(ctx context.Context, sess *Session) (err error) {
	defer func() { s.record("signout", err) }()
	if sess == nil {
		return nil
	}
	if sess.AccessToken != "" {
		if exp, err := tokens.ExpiresAt(sess.AccessToken); err == nil {
			if ttl := time.Until(exp); ttl > 0 {
				if err := s.blacklist.Revoke(ctx, sess.AccessToken, ttl); err != nil {
					return newError(CodeInternal, err)
				}
			}
		}
	}
	if sess.RefreshToken != "" {
		if err := s.sessions.Close(ctx, sess.RefreshToken); err != nil {
			return newError(CodeInternal, err)
		}
	}
	return nil
}

func (s *Service) SendPasswordReset(ctx context.Context, email string) (err error) {
	defer func() { s.record("password_reset", err) }()
	email, err = s.checkEmail(email)
	if err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return newError(CodeInternal, err)
	}
	if u == nil {
		return newError(CodeUserNotFound, nil)
	}
	tok, err := sessions.IssueResetToken(ctx, s.resets, u.UID, s.cfg.Auth.ResetTokenTTL)
	if err != nil {
		return newError(CodeInternal, err)
	}
	if err := s.mailer.SendPasswordReset(ctx, u.Email, tok); err != nil {
		return newError(CodeNetwork, err)
	}
	return nil
}

// ConfirmPasswordReset consumes a reset code, sets the new password and
// signs the account out everywhere.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, password string) (err error) {
	defer func() { s.record("password_reset_confirm", err) }()
	if err := s.checkPassword(password); err != nil {
		return err
	}
	uid, err := s.resets.Take(ctx, token)
	if err != nil {
		return newError(CodeInternal, err)
	}
	if uid == "" {
		return newError(CodeInvalidResetCode, nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return newError(CodeInternal, err)
	}
	if err := s.users.SetPassword(ctx, uid, hash); err != nil {
		return newError(CodeInternal, err)
	}
	n, err := s.sessions.CloseAll(ctx, uid)
	if err != nil {
		return newError(CodeInternal, err)
	}
	s.log.Infof("password reset for %s closed %d sessions", uid, n)
	return nil
}
