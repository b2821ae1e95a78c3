package app

import (
	"context"

	"github.com/ghichu/ghichu/internal/theme"
)

// Settings is the settings panel: font choice and sign-out.
type Settings struct {
	app *App
}

func (a *App) Settings() *Settings { return &Settings{app: a} }

func (s *Settings) FontOptions() []theme.Option { return theme.Options() }

func (s *Settings) Font() theme.Font { return s.app.theme.Font() }

func (s *Settings) SetFont(f theme.Font) error { return s.app.theme.SetFont(f) }

// FontFamily is the family every screen renders with.
func (s *Settings) FontFamily() string { return s.app.theme.Family() }

// SignOut ends the session. Failures are alerted verbatim.
func (s *Settings) SignOut(ctx context.Context) error {
	if err := s.app.auth.SignOut(ctx); err != nil {
		s.app.alertError(err)
		return err
	}
	return nil
}
