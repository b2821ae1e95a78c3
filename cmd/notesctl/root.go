package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ghichu/ghichu/internal/app"
	"github.com/ghichu/ghichu/internal/auth"
	"github.com/ghichu/ghichu/internal/bootstrap"
	"github.com/ghichu/ghichu/internal/config"
	"github.com/ghichu/ghichu/internal/theme"
	"github.com/ghichu/ghichu/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	verbose  bool
	email    string
	password string
	yes      bool
	timeout  time.Duration
)

// connect builds the backend graph; tests swap it for a shared one.
var connect = bootstrap.NewClient

var rootCmd = &cobra.Command{
	Use:   "notesctl",
	Short: "Personal notes, synchronized",
	Long: `notesctl talks to a ghichu sync service (GHICHU_SERVER) or, when none is
configured, runs the note and account stores in process.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := os.Getenv("LOG_LEVEL")
		if level == "" {
			level = "warn"
		}
		if verbose {
			level = "debug"
		}
		logger.Init(level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&email, "email", os.Getenv("GHICHU_EMAIL"), "Account email (GHICHU_EMAIL)")
	rootCmd.PersistentFlags().StringVar(&password, "password", os.Getenv("GHICHU_PASSWORD"), "Account password (GHICHU_PASSWORD)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Time limit for one request")
}

// terminal shows alerts on stderr and answers confirmations with --yes.
type terminal struct {
	w io.Writer
}

func (t terminal) Alert(title, message string) {
	fmt.Fprintf(t.w, "%s: %s\n", title, message)
}

func (t terminal) Confirm(title, message, cancel, confirm string) bool {
	if !yes {
		fmt.Fprintf(t.w, "%s: %s [%s/%s] (pass --yes to %s)\n", title, message, cancel, confirm, confirm)
	}
	return yes
}

type session struct {
	*app.App
	client *bootstrap.Client
	id     *auth.Identity
}

func (s *session) Close() {
	s.App.Close()
	s.client.Close(context.Background())
}

// open starts a client. With signIn it logs in with the configured
// credentials and waits until the session is established.
func open(cmd *cobra.Command, signIn bool) (*session, error) {
	ctx := cmd.Context()
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	client, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	term := terminal{w: cmd.ErrOrStderr()}
	a := app.New(app.Options{
		Auth:           client.Auth,
		Store:          client.Store,
		Alerts:         term,
		Confirm:        term,
		Theme:          theme.NewContext(theme.Font(cfg.Theme.Font), cfg.Theme.Platform),
		MaxTitleLength: cfg.Notes.TitleMaxLength,
	})
	s := &session{App: a, client: client}
	if !signIn {
		return s, nil
	}
	if email == "" || password == "" {
		s.Close()
		return nil, errors.New("credentials required: --email/--password or GHICHU_EMAIL/GHICHU_PASSWORD")
	}
	if _, err := s.Login(ctx, email, password); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.awaitIdentity(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) awaitIdentity(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	id, err := s.Session().WaitFor(ctx, func(id *auth.Identity) bool { return id != nil })
	if err != nil {
		return fmt.Errorf("waiting for session: %w", err)
	}
	s.id = id
	return nil
}

// await blocks for one signal on ch, bounded by --timeout.
func await(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return errors.New("timed out waiting for the store")
	}
}
