package navigation

import (
	"context"
	"errors"
	"fmt"
)

// ErrSignOut wraps failures of the remote sign-out call
var ErrSignOut = errors.New("remote sign-out failed")

// HomePath is where the bar redirects after leaving a session
const HomePath = "/"

// SessionStore holds the client side copy of the session
type SessionStore interface {
	Session() Session
	Clear()
}

// SignOuter ends the session on the server
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// Router exposes the current route and imperative navigation
type Router interface {
	CurrentPath() string
	Navigate(path string)
}

// SignOutTask is a remote sign-out running in the background
type SignOutTask struct {
	done chan struct{}
	err  error
}

// StartSignOut calls s in a new goroutine and returns immediately
func StartSignOut(ctx context.Context, s SignOuter) *SignOutTask {
	t := &SignOutTask{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		if err := s.SignOut(ctx); err != nil {
			t.err = fmt.Errorf("%w: %v", ErrSignOut, err)
		}
	}()
	return t
}

// Done is closed once the remote call has returned
func (t *SignOutTask) Done() <-chan struct{} { return t.done }

// Err is the outcome of the remote call. Only meaningful after Done
func (t *SignOutTask) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the remote call returns or ctx ends
func (t *SignOutTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SessionExit is the logout action of the bar
type SessionExit struct {
	Remote SignOuter
	Store  SessionStore
	Router Router
	Menu   *Menu
}

// Run starts the remote sign-out, then clears the local session, redirects
// home and closes the menu without waiting for the remote result. The local
// steps run whether or not the remote call succeeds; callers observe the
// returned task to report a failed sign-out
func (e SessionExit) Run(ctx context.Context) *SignOutTask {
	task := StartSignOut(ctx, e.Remote)
	e.Store.Clear()
	e.Router.Navigate(HomePath)
	if e.Menu != nil {
		e.Menu.Close()
	}
	return task
}
