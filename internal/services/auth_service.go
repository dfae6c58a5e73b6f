package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"smartledger/internal/core"
	"smartledger/internal/log"
	"smartledger/internal/password"
	"smartledger/internal/session"
	"smartledger/internal/storage"
)

var (
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")

	ErrInvalidUsername = errors.New("username must be 3-32 ASCII characters")
	ErrInvalidPassword = errors.New("password must be 8-128 characters")
	ErrInvalidName     = errors.New("name must be 1-50 characters")
)

// Registration is the input of AuthService.Register.
type Registration struct {
	Username string
	Password string
	Name     string
}

func (r Registration) Validate() error {
	u := strings.TrimSpace(r.Username)
	if len(u) < 3 || len(u) > 32 || !isASCII(u) {
		return ErrInvalidUsername
	}
	if n := utf8.RuneCountInString(r.Password); n < 8 || n > 128 {
		return ErrInvalidPassword
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(r.Name)); n < 1 || n > 50 {
		return ErrInvalidName
	}
	return nil
}

// AuthService checks credentials and issues session tokens.
type AuthService struct {
	storage    *storage.SQLiteRepository
	sessions   *session.Service
	iterations int
	verify     func(plain, stored string) bool

	// dummyHash is checked on unknown usernames so that they cost the same
	// key derivation as a wrong password.
	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(storage *storage.SQLiteRepository, sessions *session.Service, iterations int) *AuthService {
	return &AuthService{
		storage:    storage,
		sessions:   sessions,
		iterations: iterations,
		verify:     password.Verify,
	}
}

func (s *AuthService) Register(ctx context.Context, r Registration) (core.User, error) {
	if err := r.Validate(); err != nil {
		return core.User{}, err
	}
	username := strings.TrimSpace(r.Username)

	_, err := s.storage.UserByUsername(ctx, username)
	if err == nil {
		return core.User{}, ErrUsernameTaken
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return core.User{}, fmt.Errorf("check username: %w", err)
	}

	hash, err := password.Hash(r.Password, s.iterations)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.storage.CreateUser(ctx, username, hash, strings.TrimSpace(r.Name))
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return s.storage.UserByID(ctx, id)
}

// Login verifies the credentials and issues a session token for the user.
func (s *AuthService) Login(ctx context.Context, username, plain string) (core.User, session.Token, error) {
	u, err := s.storage.UserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		s.verify(plain, s.missingUserHash())
		logLogin(ctx, "Login failed", 0, username)
		return core.User{}, session.Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, session.Token{}, fmt.Errorf("load user: %w", err)
	}
	if !s.verify(plain, u.PasswordHash) {
		logLogin(ctx, "Login failed", u.ID, username)
		return core.User{}, session.Token{}, ErrInvalidCredentials
	}

	tok, err := s.sessions.IssueForUser(u.ID)
	if err != nil {
		return core.User{}, session.Token{}, fmt.Errorf("issue session: %w", err)
	}
	logLogin(ctx, "Login succeeded", u.ID, username)
	return u, tok, nil
}

func (s *AuthService) missingUserHash() string {
	s.dummyOnce.Do(func() {
		h, err := password.Hash("smartledger-missing-user", s.iterations)
		if err != nil {
			// Still runs the configured key derivation.
			h = fmt.Sprintf("%s$%d$00$00", password.Algorithm, s.effectiveIterations())
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *AuthService) effectiveIterations() int {
	if s.iterations <= 0 {
		return password.DefaultIterations
	}
	return s.iterations
}

// VerifyUser resolves a session token to a user id.
func (s *AuthService) VerifyUser(token string) (int64, bool) {
	return s.sessions.VerifyUser(token)
}

// SessionTTL is the lifetime of tokens issued by Login.
func (s *AuthService) SessionTTL() int {
	return int(s.sessions.TTL().Seconds())
}

func logLogin(ctx context.Context, msg string, userID int64, username string) {
	fields := log.NewFields().WithOperation(log.OpLogin).WithUser(userID)
	fields["username"] = username
	log.FromContext(ctx).WithComponent(log.ComponentAuth).LogFields(ctx, slog.LevelInfo, msg, fields)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
