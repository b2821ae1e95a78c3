package app

import (
	"context"
	"strings"

	"github.com/ghichu/ghichu/internal/auth"
	"github.com/ghichu/ghichu/internal/note"
)

// Login signs in. Failures are alerted verbatim.
func (a *App) Login(ctx context.Context, email, password string) (auth.Identity, error) {
	id, err := a.auth.SignIn(ctx, email, password)
	if err != nil {
		a.alertError(err)
		return auth.Identity{}, err
	}
	return id, nil
}

// Register creates the account and its welcome note. The welcome note only
// carries createdAt, so its updatedAt stays absent until the first edit.
func (a *App) Register(ctx context.Context, email, password, confirm string) (auth.Identity, error) {
	if password != confirm {
		a.alerts.Alert(TitleError, MsgPasswordMismatch)
		return auth.Identity{}, ErrPasswordMismatch
	}
	id, err := a.auth.SignUp(ctx, email, password)
	if err != nil {
		a.alertError(err)
		return auth.Identity{}, err
	}
	_, err = a.gateway.create(ctx, id.UID, note.Fields{
		note.FieldTitle:     WelcomeTitle,
		note.FieldContent:   WelcomeContent,
		note.FieldCreatedAt: note.ServerTimestamp,
	})
	if err != nil {
		a.alertError(err)
		return id, err
	}
	return id, nil
}

// ForgotPassword sends a reset email and reports the outcome.
func (a *App) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		a.alerts.Alert(TitleError, MsgEmailRequired)
		return ErrEmailRequired
	}
	if err := a.auth.SendPasswordReset(ctx, email); err != nil {
		a.alertError(err)
		return err
	}
	a.alerts.Alert(TitleSuccess, MsgResetEmailSent)
	return nil
}
