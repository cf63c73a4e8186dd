// Package session keeps the single persisted login slot and answers role
// questions about it.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/storage"
)

// DefaultTTL matches the lifetime of the session cookie
const DefaultTTL = 7 * 24 * time.Hour

// ErrMalformedRecord is returned by Decode for records that must be discarded
var ErrMalformedRecord = errors.New("malformed session record")

// Config holds configuration for the session manager
type Config struct {
	TTL time.Duration
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{TTL: DefaultTTL}
}

// Session is a freshly started login
type Session struct {
	Token string
	Role  model.Role
	User  model.User
}

// Manager reads and writes session slots
type Manager struct {
	storage storage.Storage
	logger  *slog.Logger
	ttl     time.Duration
}

// NewManager creates a session manager
func NewManager(storage storage.Storage, logger *slog.Logger, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Manager{
		storage: storage,
		logger:  logger.With("component", "session"),
		ttl:     cfg.TTL,
	}
}

// TTL returns how long a session slot lives
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Load builds a guard for the token. It never fails: anything that cannot be
// read as a valid record yields an anonymous guard, marked Discarded when the
// slot is gone rather than unreadable.
func (m *Manager) Load(ctx context.Context, token string) *Guard {
	g := &Guard{manager: m}
	if token == "" {
		return g
	}

	data, err := m.storage.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			g.discarded = true
		} else {
			m.logger.Error("failed to read session", "error", err)
		}
		return g
	}

	role, user, err := Decode(data)
	if err != nil {
		m.logger.Warn("discarding malformed session", "error", err)
		if err := m.storage.DeleteSession(ctx, token); err != nil {
			m.logger.Error("failed to delete malformed session", "error", err)
		}
		g.discarded = true
		return g
	}

	g.token = token
	g.role = role
	g.user = user
	return g
}

// Start writes a new slot for user and returns its token
func (m *Manager) Start(ctx context.Context, user *model.User) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	if err := m.write(ctx, token, user); err != nil {
		return nil, err
	}
	return &Session{Token: token, Role: user.Role(), User: *user}, nil
}

// Refresh rewrites the slot after the user's profile changed
func (m *Manager) Refresh(ctx context.Context, token string, user *model.User) error {
	if token == "" {
		return model.ErrSessionNotFound
	}
	return m.write(ctx, token, user)
}

// End deletes the slot
func (m *Manager) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.storage.DeleteSession(ctx, token)
}

func (m *Manager) write(ctx context.Context, token string, user *model.User) error {
	data, err := Encode(user)
	if err != nil {
		return err
	}
	if err := m.storage.SaveSession(ctx, token, data, m.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

type record struct {
	Role string          `json:"role"`
	User json.RawMessage `json:"user"`
}

// Encode serialises the slot for user
func Encode(user *model.User) ([]byte, error) {
	if user == nil {
		return nil, errors.New("cannot encode session without a user")
	}
	u, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}
	return json.Marshal(record{Role: string(user.Role()), User: u})
}

// Decode parses a slot, rejecting records whose role and is_admin disagree
func Decode(data []byte) (model.Role, *model.User, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.RoleAnonymous, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	role, ok := model.ParseRole(rec.Role)
	if !ok {
		return model.RoleAnonymous, nil, fmt.Errorf("%w: unknown role %q", ErrMalformedRecord, rec.Role)
	}
	if len(rec.User) == 0 || string(rec.User) == "null" {
		return model.RoleAnonymous, nil, fmt.Errorf("%w: no user", ErrMalformedRecord)
	}

	var flag struct {
		IsAdmin *bool `json:"is_admin"`
	}
	if err := json.Unmarshal(rec.User, &flag); err != nil {
		return model.RoleAnonymous, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if flag.IsAdmin == nil {
		return model.RoleAnonymous, nil, fmt.Errorf("%w: user has no is_admin", ErrMalformedRecord)
	}

	var user model.User
	if err := json.Unmarshal(rec.User, &user); err != nil {
		return model.RoleAnonymous, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if user.ID == "" {
		return model.RoleAnonymous, nil, fmt.Errorf("%w: user has no id", ErrMalformedRecord)
	}
	if user.Role() != role {
		return model.RoleAnonymous, nil, fmt.Errorf("%w: role %s disagrees with is_admin", ErrMalformedRecord, role)
	}
	return role, &user, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
