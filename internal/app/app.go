// Package app is the client core: it keeps screen state in step with the
// note store through live subscriptions and routes every failure to an
// Alerter. It has no rendering of its own; cmd/notesctl drives it from a
// terminal.
package app

import (
	"errors"
	"sync"

	"github.com/ghichu/ghichu/internal/auth"
	"github.com/ghichu/ghichu/internal/note"
	"github.com/ghichu/ghichu/internal/theme"
)

// Alert titles and messages shown to the user.
const (
	TitleError   = "Lỗi"
	TitleSuccess = "Thành công"
	TitleConfirm = "Xác nhận"

	MsgListLoadFailed   = "Không thể tải danh sách ghi chú"
	MsgNoteLoadFailed   = "Không thể tải ghi chú"
	MsgSaveFailed       = "Không thể lưu ghi chú"
	MsgDeleteFailed     = "Không thể xóa ghi chú"
	MsgSignInToSave     = "Vui lòng đăng nhập để lưu ghi chú"
	MsgSignInToDelete   = "Vui lòng đăng nhập để xóa ghi chú"
	MsgEmailRequired    = "Vui lòng nhập email!"
	MsgPasswordMismatch = "Mật khẩu xác nhận không khớp"
	MsgResetEmailSent   = "Đã gửi email đặt lại mật khẩu!"
	MsgConfirmDelete    = "Bạn có chắc chắn muốn xóa ghi chú này?"
	ButtonCancel        = "Hủy"
	ButtonDelete        = "Xóa"

	WelcomeTitle   = "Chào mừng"
	WelcomeContent = "Đây là ghi chú đầu tiên của bạn"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrSaveInFlight     = errors.New("a save is already in progress")
	ErrTitleTooLong     = note.ErrTitleTooLong
	ErrEmailRequired    = errors.New("email required")
	ErrPasswordMismatch = errors.New("password confirmation does not match")
)

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(title, message string)
}

// Confirmer asks the user to pick between cancel and confirm.
type Confirmer interface {
	Confirm(title, message, cancel, confirm string) bool
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(title, message string)

func (f AlertFunc) Alert(title, message string) { f(title, message) }

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(title, message, cancel, confirm string) bool

func (f ConfirmFunc) Confirm(title, message, cancel, confirm string) bool {
	return f(title, message, cancel, confirm)
}

// Options are the collaborators of an App.
type Options struct {
	Auth    auth.Provider
	Store   note.Store
	Alerts  Alerter
	Confirm Confirmer
	Theme   *theme.Context
	// MaxTitleLength is counted in runes; zero means 100.
	MaxTitleLength int
}

// App ties the session, the store and the screens of one client together.
type App struct {
	auth    auth.Provider
	store   note.Store
	alerts  Alerter
	confirm Confirmer
	theme   *theme.Context
	session *SessionObserver
	gateway *Gateway

	closeOnce sync.Once
}

func New(opts Options) *App {
	if opts.Alerts == nil {
		opts.Alerts = AlertFunc(func(string, string) {})
	}
	if opts.Confirm == nil {
		opts.Confirm = ConfirmFunc(func(string, string, string, string) bool { return false })
	}
	if opts.Theme == nil {
		opts.Theme = theme.NewContext(theme.System, "")
	}
	a := &App{
		auth:    opts.Auth,
		store:   opts.Store,
		alerts:  opts.Alerts,
		confirm: opts.Confirm,
		theme:   opts.Theme,
	}
	a.session = ObserveSession(opts.Auth)
	a.gateway = NewGateway(opts.Store, a.session.Current, opts.MaxTitleLength)
	return a
}

func (a *App) Session() *SessionObserver { return a.session }

func (a *App) Gateway() *Gateway { return a.gateway }

func (a *App) Theme() *theme.Context { return a.theme }

// Close stops observing the session. Screens opened from the App must be
// closed by their owners.
func (a *App) Close() {
	a.closeOnce.Do(a.session.Close)
}

// alertError shows err verbatim under the error title.
func (a *App) alertError(err error) {
	a.alerts.Alert(TitleError, err.Error())
}
