// Package session ties a signed-in user to the state that must not outlive them.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/core/badges"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

// ErrNoSession is returned by Start when nobody is signed in
var ErrNoSession = errors.New("not logged in")

// Client is the part of the API client a session needs
type Client interface {
	badges.RequestLister
	User() (*model.User, error)
	HasStoredToken() bool
	Logout() error
	OnSessionExpired(fn func())
}

type Session struct {
	ID     string
	User   model.User
	Badges *badges.Engine

	client Client
	logger *zap.Logger

	mu    sync.Mutex
	ended bool
	done  chan struct{}
	wg    sync.WaitGroup
}

// Start builds a session for the stored user. The badge engine is reset as soon
// as the client reports the token was rejected.
func Start(client Client, logger *zap.Logger) (*Session, error) {
	if !client.HasStoredToken() {
		return nil, ErrNoSession
	}
	user, err := client.User()
	if err != nil {
		return nil, fmt.Errorf("failed to load signed-in user: %w", err)
	}
	if user == nil {
		return nil, ErrNoSession
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("session_id", id), zap.String("username", user.Username))

	s := &Session{
		ID:     id,
		User:   *user,
		Badges: badges.NewEngine(client, logger),
		client: client,
		logger: logger,
		done:   make(chan struct{}),
	}
	client.OnSessionExpired(s.onExpired)

	logger.Debug("Session started")
	return s, nil
}

func (s *Session) Identity() badges.Identity {
	return badges.IdentityFromUser(s.User)
}

// RefreshBadges fetches the request list and recomputes the badge. No-op once ended.
func (s *Session) RefreshBadges(ctx context.Context) {
	if s.Ended() {
		return
	}
	s.Badges.FetchAndUpdateBadges(ctx, s.Identity())
}

// RefreshBadgesAsync is the fire-and-forget form used after mutations
func (s *Session) RefreshBadgesAsync(ctx context.Context) {
	if s.Ended() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RefreshBadges(context.WithoutCancel(ctx))
	}()
}

// Wait blocks until background refreshes have finished
func (s *Session) Wait() {
	s.wg.Wait()
}

// End resets the badge state before the credentials are removed, so a refresh that
// completes afterwards cannot show this user's badge to the next one.
func (s *Session) End() error {
	s.markEnded()
	s.Badges.ResetStore()
	if err := s.client.Logout(); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	s.logger.Info("Session ended")
	return nil
}

func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Done is closed once the session has ended or expired
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) markEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		close(s.done)
	}
}

func (s *Session) onExpired() {
	s.markEnded()
	s.Badges.ResetStore()
	s.logger.Warn("Session expired")
}
