package app

// Route names a screen.
type Route string

const (
	RouteLogin    Route = "Login"
	RouteRegister Route = "Register"
	RouteHome     Route = "Home"
	RouteNote     Route = "Note"
	RouteSettings Route = "Settings"
)

var (
	signedOutRoutes = []Route{RouteLogin, RouteRegister}
	signedInRoutes  = []Route{RouteHome, RouteNote, RouteSettings}
)

// Routes lists the screens reachable now, first one initial. It is empty
// while the session is resolving.
func (a *App) Routes() []Route {
	if a.session.Resolving() {
		return nil
	}
	if a.session.Current() == nil {
		return append([]Route(nil), signedOutRoutes...)
	}
	return append([]Route(nil), signedInRoutes...)
}

// CanShow reports whether r is reachable now.
func (a *App) CanShow(r Route) bool {
	for _, x := range a.Routes() {
		if x == r {
			return true
		}
	}
	return false
}
