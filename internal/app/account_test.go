package app

import (
	"context"
	"testing"

	"github.com/ghichu/ghichu/internal/auth"
	"github.com/ghichu/ghichu/internal/theme"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesWelcomeNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.app.Register(ctx, "a@x.com", "pass1234", "pass1234")
	require.NoError(t, err)
	require.Equal(t, "a@x.com", id.Email)
	_, err = f.app.Session().WaitFor(ctx, func(cur *auth.Identity) bool { return cur != nil })
	require.NoError(t, err)

	h := f.app.OpenHome(ctx)
	defer h.Close()
	require.Eventually(t, func() bool { return len(h.Notes()) == 1 }, wait, tick)
	n := h.Notes()[0]
	require.Equal(t, WelcomeTitle, n.Title)
	require.Equal(t, WelcomeContent, n.Content)
	require.NotNil(t, n.CreatedAt)
	require.Nil(t, n.UpdatedAt)
	require.Empty(t, h.Rows()[0].UpdatedAt)
	require.Empty(t, f.alerts.all())
}

func TestRegisterPasswordMismatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.app.Register(context.Background(), "a@x.com", "pass1234", "pass4321")
	require.ErrorIs(t, err, ErrPasswordMismatch)
	require.Equal(t, []alert{{TitleError, MsgPasswordMismatch}}, f.alerts.all())

	_, err = f.accounts.SignIn(context.Background(), "a@x.com", "pass1234")
	require.Error(t, err)
}

func TestRegisterEmailTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.SignUp(ctx, "a@x.com", "pass1234")
	require.NoError(t, err)

	_, err = f.app.Register(ctx, "a@x.com", "pass1234", "pass1234")
	require.ErrorIs(t, err, auth.ErrCode(auth.CodeEmailInUse))
	require.Equal(t, []alert{{TitleError, "The email address is already in use by another account."}}, f.alerts.all())
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.SignUp(ctx, "a@x.com", "pass1234")
	require.NoError(t, err)

	_, err = f.app.Login(ctx, "a@x.com", "nope")
	require.ErrorIs(t, err, auth.ErrCode(auth.CodeInvalidCredential))
	require.Equal(t, []alert{{TitleError, "The email or password is incorrect."}}, f.alerts.all())
	require.Nil(t, f.app.Session().Current())
}

func TestForgotPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.SignUp(ctx, "a@x.com", "pass1234")
	require.NoError(t, err)

	require.ErrorIs(t, f.app.ForgotPassword(ctx, "  "), ErrEmailRequired)
	require.Error(t, f.app.ForgotPassword(ctx, "b@x.com"))
	require.NoError(t, f.app.ForgotPassword(ctx, "a@x.com"))

	require.Equal(t, []alert{
		{TitleError, MsgEmailRequired},
		{TitleError, "There is no user record corresponding to this email."},
		{TitleSuccess, MsgResetEmailSent},
	}, f.alerts.all())
}

func TestSettingsFont(t *testing.T) {
	f := newFixture(t)
	s := f.app.Settings()

	require.Len(t, s.FontOptions(), 3)
	require.Equal(t, theme.System, s.Font())
	require.NoError(t, s.SetFont(theme.Monospace))
	require.Equal(t, theme.Monospace, f.app.Theme().Font())
	require.Equal(t, "monospace", s.FontFamily())
	require.Error(t, s.SetFont("Papyrus"))
}

func TestSettingsSignOut(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "a@x.com")
	ctx := context.Background()

	require.NoError(t, f.app.Settings().SignOut(ctx))
	_, err := f.app.Session().WaitFor(ctx, func(cur *auth.Identity) bool { return cur == nil })
	require.NoError(t, err)
	require.Equal(t, []Route{RouteLogin, RouteRegister}, f.app.Routes())
}

func TestSettingsSignOutFailure(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "a@x.com")
	f.accounts.signOut = errBoom

	err := f.app.Settings().SignOut(context.Background())
	require.Error(t, err)
	require.Equal(t, []alert{{TitleError, "An internal error has occurred."}}, f.alerts.all())
}
