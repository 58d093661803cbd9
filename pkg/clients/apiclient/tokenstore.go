package apiclient

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/cticu/cticu-schedule/internal/config"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

const (
	tokenFileName  = "token.json"
	userFileName   = "user.json"
	tokenFilePerms = 0600 // Read/write for owner only
	tokenDirPerms  = 0700 // Read/write/execute for owner only
)

// TokenStore persists the session token and the signed-in user under a directory
type TokenStore struct {
	dir string
}

func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{dir: dir}
}

// DefaultTokenStore stores credentials in ~/.cticu/<env>
func DefaultTokenStore(env string) (*TokenStore, error) {
	dir, err := config.StateDir(env)
	if err != nil {
		return nil, err
	}
	return NewTokenStore(dir), nil
}

// LoadToken returns nil if no token has been saved yet
func (s *TokenStore) LoadToken() (*oauth2.Token, error) {
	var token oauth2.Token
	found, err := s.readJSON(tokenFileName, &token)
	if err != nil || !found {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, nil
	}
	return &token, nil
}

func (s *TokenStore) SaveToken(token *oauth2.Token) error {
	return s.writeJSON(tokenFileName, token)
}

// LoadUser returns nil if no user has been saved yet
func (s *TokenStore) LoadUser() (*model.User, error) {
	var user model.User
	found, err := s.readJSON(userFileName, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (s *TokenStore) SaveUser(user *model.User) error {
	return s.writeJSON(userFileName, user)
}

// Clear deletes both the token and the user file
func (s *TokenStore) Clear() error {
	for _, name := range []string{tokenFileName, userFileName} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}
	return nil
}

func (s *TokenStore) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return true, nil
}

func (s *TokenStore) writeJSON(name string, v any) error {
	if err := os.MkdirAll(s.dir, tokenDirPerms); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), data, tokenFilePerms); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
