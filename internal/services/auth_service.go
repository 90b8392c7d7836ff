package services

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/bcrypt"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/storage"
)

// AuthService guards the local user data. Data endpoints stay locked until
// a user logs in, and stored credentials stay sealed under a key derived
// from the user password.
type AuthService struct {
	repo   *storage.SQLiteRepository
	logger *log.Logger
	now    func() time.Time

	mu       sync.RWMutex
	username string
	// previous is the login before the current one.
	previous *time.Time
}

func NewAuthService(repo *storage.SQLiteRepository, logger *log.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		logger: logger.WithComponent(log.ComponentAuth),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Signup creates the single local user and unlocks the data.
func (s *AuthService) Signup(ctx context.Context, req core.AuthRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return errors.Wrap(core.ErrUserExists, "a user is already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	salt, err := storage.NewKeySalt()
	if err != nil {
		return err
	}
	if err := s.repo.CreateUser(ctx, req.Username, string(hash), salt); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User registered", "username", req.Username)
	user, err := s.repo.GetUser(ctx, req.Username)
	if err != nil {
		return err
	}
	return s.unlock(ctx, user, req.Password)
}

func (s *AuthService) Login(ctx context.Context, req core.AuthRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	user, err := s.check(ctx, req.Username, req.Password)
	if err != nil {
		s.logger.WarnContext(ctx, "Login rejected", "username", req.Username, log.FieldError, err)
		return err
	}
	return s.unlock(ctx, user, req.Password)
}

// LoginOrSignup logs the preconfigured user in, registering it first on an
// empty database.
func (s *AuthService) LoginOrSignup(ctx context.Context, req core.AuthRequest) error {
	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.Signup(ctx, req)
	}
	return s.Login(ctx, req)
}

// Logout forgets the sealing key along with the session.
func (s *AuthService) Logout(ctx context.Context) {
	s.mu.Lock()
	user := s.username
	s.username = ""
	s.previous = nil
	s.mu.Unlock()
	s.repo.Lock()
	if user != "" {
		s.logger.InfoContext(ctx, "User logged out", "username", user)
	}
}

// Unlocked reports whether a user is logged in.
func (s *AuthService) Unlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username != ""
}

// Status reports the lock state and, when unlocked, the time of the login
// before the current one.
func (s *AuthService) Status(ctx context.Context) (core.LoginStatusResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.username == "" {
		return core.LoginStatusResponse{Status: core.Locked}, nil
	}
	return core.LoginStatusResponse{Status: core.Unlocked, LastLogged: s.previous}, nil
}

// ChangePassword rehashes the password and reseals every stored credential
// and session under a key derived from the new one.
func (s *AuthService) ChangePassword(ctx context.Context, req core.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	user, err := s.check(ctx, req.Username, req.OldPassword)
	if err != nil {
		return err
	}
	if !s.repo.Unlocked() {
		key, err := s.keyFor(ctx, user, req.OldPassword)
		if err != nil {
			return err
		}
		if err := s.repo.Unlock(key); err != nil {
			return err
		}
		// The data stays locked for callers until a real login.
		if !s.Unlocked() {
			defer s.repo.Lock()
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	salt, err := storage.NewKeySalt()
	if err != nil {
		return err
	}
	if err := s.repo.ChangeUserKey(ctx, req.Username, string(hash), salt, storage.DeriveKey(req.NewPassword, salt)); err != nil {
		return errors.Wrap(err, "reseal credentials")
	}
	s.logger.InfoContext(ctx, "Password changed", "username", req.Username)
	return nil
}

func (s *AuthService) check(ctx context.Context, username, password string) (storage.User, error) {
	u, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return storage.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return storage.User{}, errors.Wrap(core.ErrInvalidPassword, username)
	}
	return u, nil
}

// keyFor derives the sealing key of user, giving a salt to users registered
// before credentials were sealed.
func (s *AuthService) keyFor(ctx context.Context, user storage.User, password string) ([]byte, error) {
	if len(user.KeySalt) == 0 {
		salt, err := storage.NewKeySalt()
		if err != nil {
			return nil, err
		}
		if err := s.repo.SetKeySalt(ctx, user.Username, salt); err != nil {
			return nil, err
		}
		user.KeySalt = salt
	}
	return storage.DeriveKey(password, user.KeySalt), nil
}

func (s *AuthService) unlock(ctx context.Context, user storage.User, password string) error {
	key, err := s.keyFor(ctx, user, password)
	if err != nil {
		return err
	}
	if err := s.repo.Unlock(key); err != nil {
		return err
	}
	if err := s.repo.TouchLastLogged(ctx, user.Username, s.now()); err != nil {
		s.repo.Lock()
		return err
	}
	s.mu.Lock()
	s.username = user.Username
	s.previous = user.LastLogged
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "User data unlocked", "username", user.Username)
	return nil
}
