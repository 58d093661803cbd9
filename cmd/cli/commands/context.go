package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/internal/config"
	"github.com/cticu/cticu-schedule/pkg/apierr"
	"github.com/cticu/cticu-schedule/pkg/cache"
	"github.com/cticu/cticu-schedule/pkg/clients/apiclient"
	"github.com/cticu/cticu-schedule/pkg/core/session"
)

// ErrLoginRequired is returned by commands that need a signed-in user
var ErrLoginRequired = errors.New("not logged in (run 'cticu login <username>')")

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg     *config.Config
	Env     string
	Client  *apiclient.Client
	Fetcher *cache.Fetcher
	Session *session.Session
	Logger  *zap.Logger
	Ctx     context.Context
	Now     func() time.Time
}

// RequireSession returns the current session, starting one from the stored
// credentials if needed.
func (app *AppContext) RequireSession() (*session.Session, error) {
	if app.Session != nil && !app.Session.Ended() {
		return app.Session, nil
	}
	sess, err := session.Start(app.Client, app.Logger)
	if errors.Is(err, session.ErrNoSession) {
		return nil, ErrLoginRequired
	}
	if err != nil {
		return nil, err
	}
	app.Session = sess
	return sess, nil
}

// EndSession resets badge state and removes stored credentials
func (app *AppContext) EndSession() error {
	if app.Session != nil {
		err := app.Session.End()
		app.Session.Wait()
		app.Session = nil
		return err
	}
	return app.Client.Logout()
}

// Today returns the current time from the injectable clock
func (app *AppContext) Today() time.Time {
	if app.Now != nil {
		return app.Now()
	}
	return time.Now()
}

// explain turns the error kinds into the messages the user should see
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case apierr.IsSessionExpired(err):
		return fmt.Errorf("your session has expired, please log in again: %w", err)
	case apierr.Is(err, apierr.KindNetwork):
		return fmt.Errorf("cannot reach the server: %w", err)
	default:
		return err
	}
}
