package users

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/docgate/docgate/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service is the local identity provider: email/password accounts, stable
// uid issuance and auth-state change notification.
type Service struct {
	repo UserRepository

	mu          sync.Mutex
	subscribers []func(*models.Identity)
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// SignUp registers a new account and notifies subscribers of the signed-in
// identity. The uid is generated once and never changes.
func (s *Service) SignUp(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{UID: uuid.NewString(), Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	ident := &models.Identity{UID: u.UID, Email: u.Email}
	s.notify(ident)
	return ident, nil
}

// SignIn verifies the password and notifies subscribers. The error for a
// missing account and for a wrong password is the same on purpose.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	ident := &models.Identity{UID: u.UID, Email: u.Email}
	s.notify(ident)
	return ident, nil
}

// SignOut notifies subscribers with a nil identity.
func (s *Service) SignOut() {
	s.notify(nil)
}

// Current resolves a uid back to its identity; (nil, nil) for an unknown uid.
func (s *Service) Current(ctx context.Context, uid string) (*models.Identity, error) {
	if uid == "" {
		return nil, nil
	}
	u, err := s.repo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	return &models.Identity{UID: u.UID, Email: u.Email}, nil
}

// Subscribe registers a callback fired on every sign-in and sign-out, with
// the new identity or nil. Callbacks run synchronously in registration
// order.
func (s *Service) Subscribe(fn func(*models.Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Service) notify(ident *models.Identity) {
	s.mu.Lock()
	subs := make([]func(*models.Identity), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ident)
	}
}
