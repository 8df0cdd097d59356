package session

import (
	"context"
	"log/slog"
)

// Navigator is the presentation hook invoked after sign-out. The console
// prints a prompt; a richer shell could switch screens.
type Navigator interface {
	ToLogin()
}

// NavigatorFunc adapts a plain function to the Navigator interface.
type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

type noopNavigator struct{}

func (noopNavigator) ToLogin() {}

// Facade is the public session surface screens talk to: the state machine's
// transitions under their caller-facing names, plus read-only selectors and
// permission predicates. Every selector returns a safe zero value when no
// user is present.
type Facade struct {
	manager *Manager
	nav     Navigator
	logger  *slog.Logger
}

func NewFacade(manager *Manager, nav Navigator, logger *slog.Logger) *Facade {
	if nav == nil {
		nav = noopNavigator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{manager: manager, nav: nav, logger: logger}
}

func (f *Facade) Signin(ctx context.Context, email, password string) error {
	return f.manager.Login(ctx, email, password)
}

func (f *Facade) Signup(ctx context.Context, params RegisterParams) error {
	return f.manager.Register(ctx, params)
}

// Signout clears the session and then redirects to the login entry point.
// The redirect happens regardless of whether the remote logout call
// succeeded; callers rely on that coupling.
func (f *Facade) Signout(ctx context.Context) {
	f.manager.Logout(ctx)
	f.nav.ToLogin()
}

func (f *Facade) VerifyAuth(ctx context.Context) error {
	return f.manager.CheckAuth(ctx)
}

func (f *Facade) RefreshToken(ctx context.Context) error {
	return f.manager.RefreshToken(ctx)
}

func (f *Facade) UpdateCurrentUser(ctx context.Context, patch UserPatch) {
	f.manager.UpdateUser(ctx, patch)
}

// Restore runs the one-time startup restore from the persisted store.
func (f *Facade) Restore(ctx context.Context) {
	f.manager.LoadFromStorage(ctx)
}

func (f *Facade) ClearError() {
	f.manager.ClearError()
}

func (f *Facade) Snapshot() Snapshot {
	return f.manager.Snapshot()
}

func (f *Facade) CurrentUser() *User {
	return f.manager.CurrentUser()
}

func (f *Facade) IsAuthenticated() bool {
	return f.manager.Snapshot().IsAuthenticated
}

func (f *Facade) HasPermission(permission string) bool {
	return f.manager.CurrentUser().HasPermission(permission)
}

func (f *Facade) HasRole(role string) bool {
	return f.manager.CurrentUser().HasRole(role)
}

func (f *Facade) IsUserType(userType string) bool {
	return f.manager.CurrentUser().IsUserType(userType)
}

func (f *Facade) FullName() string {
	return f.manager.CurrentUser().FullName()
}
