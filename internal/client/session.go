package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"sparklab/internal/domain"
)

// ErrNotLoggedIn is returned when no user is stored in the session.
var ErrNotLoggedIn = errors.New("not logged in")

// SessionUser is the part of the account kept on disk.
type SessionUser struct {
	ID       string      `json:"id"`
	UserID   string      `json:"userId"`
	Email    string      `json:"email"`
	UserName string      `json:"userName"`
	Role     domain.Role `json:"role"`
	Photo    string      `json:"photo,omitempty"`
}

type sessionFile struct {
	Token string       `json:"token"`
	User  *SessionUser `json:"user"`
}

// Session keeps the signed-in user in a JSON file.
type Session struct {
	path string

	mu    sync.RWMutex
	state sessionFile
}

// DefaultSessionPath is ~/.sparklab/session.json.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".sparklab", "session.json")
	}
	return filepath.Join(home, ".sparklab", "session.json")
}

// OpenSession loads the file at path; a missing file is an empty session.
func OpenSession(path string) (*Session, error) {
	if path == "" {
		path = DefaultSessionPath()
	}
	s := &Session{path: path}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(raw, &s.state); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// CurrentUser returns the stored user, if any.
func (s *Session) CurrentUser() (SessionUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return SessionUser{}, false
	}
	return *s.state.User, true
}

// UserID returns the stored user's ID or ErrNotLoggedIn.
func (s *Session) UserID() (string, error) {
	u, ok := s.CurrentUser()
	if !ok || u.UserID == "" {
		return "", ErrNotLoggedIn
	}
	return u.UserID, nil
}

// UserIDOr returns the stored user's ID, or fallback when nobody is signed in.
func (s *Session) UserIDOr(fallback string) string {
	if id, err := s.UserID(); err == nil {
		return id
	}
	return fallback
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Login authenticates with c and stores the result.
func (s *Session) Login(ctx context.Context, c *Client, id, password string) (SessionUser, error) {
	res, err := c.Login(ctx, id, password)
	if err != nil {
		return SessionUser{}, err
	}
	u := SessionUser{
		ID:       res.User.ID,
		UserID:   res.User.UserID,
		Email:    res.User.Email,
		UserName: res.User.UserName,
		Role:     res.User.Role,
		Photo:    res.User.Photo,
	}
	if err := s.save(sessionFile{Token: res.Token, User: &u}); err != nil {
		return SessionUser{}, err
	}
	return u, nil
}

// Logout forgets the user and removes the file.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = sessionFile{}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *Session) save(state sessionFile) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.state = state
	return nil
}
