package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ghichu/ghichu/internal/bootstrap"
	"github.com/ghichu/ghichu/internal/config"
	"github.com/ghichu/ghichu/internal/note"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *bootstrap.Client {
	t.Helper()
	t.Setenv("GHICHU_SERVER", "")
	cfg := &config.Config{
		Store: config.StoreConfig{Backend: "memory"},
		JWT: config.JWTConfig{
			Secret:          "testsecret123456789012345678901234",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: time.Hour,
		},
		Auth:  config.AuthConfig{MinPasswordLength: 6, ResetTokenTTL: time.Hour},
		Notes: config.NotesConfig{TitleMaxLength: 100},
	}
	shared, err := bootstrap.NewClient(context.Background(), cfg)
	require.NoError(t, err)
	prev := connect
	connect = func(context.Context, *config.Config) (*bootstrap.Client, error) { return shared, nil }
	t.Cleanup(func() { connect = prev })
	return shared
}

// resetFlags puts every flag back to its default between runs.
func resetFlags() {
	names := []string{"confirm", "title", "content", "search", "watch", "yes", "set", "email", "password", "timeout", "verbose"}
	cmds := []*cobra.Command{rootCmd}
	cmds = append(cmds, rootCmd.Commands()...)
	for _, c := range cmds {
		for _, name := range names {
			if f := c.Flags().Lookup(name); f != nil {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			}
			if f := c.PersistentFlags().Lookup(name); f != nil {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			}
		}
	}
}

func runFor(t *testing.T, d time.Duration, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var out, errb bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	rootCmd.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), errb.String(), err
}

func run(t *testing.T, args ...string) (string, string, error) {
	return runFor(t, 5*time.Second, args...)
}

var creds = []string{"--email", "a@x.com", "--password", "pass1234"}

func with(args ...string) []string {
	return append(args, creds...)
}

func TestNoteLifecycle(t *testing.T) {
	shared := setup(t)

	out, _, err := run(t, with("signup")...)
	require.NoError(t, err)
	require.Contains(t, out, "signed up as a@x.com")

	out, _, err = run(t, with("list")...)
	require.NoError(t, err)
	require.Contains(t, out, "Chào mừng")

	_, _, err = run(t, with("new", "--title", "Work plan", "--content", "standup")...)
	require.NoError(t, err)
	_, _, err = run(t, with("new", "--title", "Shopping", "--content", "milk")...)
	require.NoError(t, err)

	out, _, err = run(t, with("list", "--search", "wor")...)
	require.NoError(t, err)
	require.Contains(t, out, "Work plan")
	require.NotContains(t, out, "Shopping")

	uid := shared.Auth.Current().UID
	notes, err := shared.Store.List(context.Background(), uid)
	require.NoError(t, err)
	var id string
	for _, n := range notes {
		if n.Title == "Work plan" {
			id = n.ID
		}
	}
	require.NotEmpty(t, id)

	out, _, err = run(t, with("edit", id, "--content", "done")...)
	require.NoError(t, err)
	require.Contains(t, out, "saved")
	out, _, err = run(t, with("show", id)...)
	require.NoError(t, err)
	require.Contains(t, out, "Work plan\ndone\n")

	out, errOut, err := run(t, with("rm", id)...)
	require.NoError(t, err)
	require.NotContains(t, out, "deleted")
	require.Contains(t, errOut, "Xác nhận")

	out, _, err = run(t, with("rm", id, "--yes")...)
	require.NoError(t, err)
	require.Contains(t, out, "deleted")
	_, err = shared.Store.Get(context.Background(), uid, id)
	require.ErrorIs(t, err, note.ErrNotFound)

	out, _, err = run(t, with("show", id)...)
	require.NoError(t, err)
	require.Contains(t, out, "not found")
}

func TestSignupPasswordMismatch(t *testing.T) {
	setup(t)
	_, errOut, err := run(t, with("signup", "--confirm", "other")...)
	require.Error(t, err)
	require.Contains(t, errOut, "Lỗi: Mật khẩu xác nhận không khớp")
}

func TestCredentialsRequired(t *testing.T) {
	setup(t)
	t.Setenv("GHICHU_EMAIL", "")
	_, _, err := run(t, "list")
	require.ErrorContains(t, err, "credentials required")
}

func TestLoginWrongPassword(t *testing.T) {
	setup(t)
	_, _, err := run(t, with("signup")...)
	require.NoError(t, err)

	_, errOut, err := run(t, "login", "--email", "a@x.com", "--password", "wrong-password")
	require.Error(t, err)
	require.Contains(t, errOut, "Lỗi: ")

	out, _, err := run(t, with("login")...)
	require.NoError(t, err)
	require.Contains(t, out, "signed in as a@x.com")
}

func TestResetPassword(t *testing.T) {
	setup(t)
	_, _, err := run(t, with("signup")...)
	require.NoError(t, err)

	_, errOut, err := run(t, "reset-password", "a@x.com")
	require.NoError(t, err)
	require.Contains(t, errOut, "Thành công: Đã gửi email đặt lại mật khẩu!")

	_, errOut, err = run(t, "reset-password")
	require.Error(t, err)
	require.Contains(t, errOut, "Vui lòng nhập email!")
}

func TestFonts(t *testing.T) {
	setup(t)
	out, _, err := run(t, "fonts", "--set", "monospace")
	require.NoError(t, err)
	require.Contains(t, out, "* Monospace")
	require.Contains(t, out, "Mặc định")
	require.Contains(t, out, "family: monospace")

	_, _, err = run(t, "fonts", "--set", "papyrus")
	require.Error(t, err)
}

func TestWatchPrintsSnapshots(t *testing.T) {
	setup(t)
	_, _, err := run(t, with("signup")...)
	require.NoError(t, err)

	out, _, err := runFor(t, 500*time.Millisecond, with("watch")...)
	require.NoError(t, err)
	require.Contains(t, out, "---")
	require.Contains(t, out, "Chào mừng")
}
