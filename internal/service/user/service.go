package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"marketplace-api/internal/domain"
	tokenrepo "marketplace-api/internal/repository/token"
	userrepo "marketplace-api/internal/repository/user"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when login/password do not match.
	ErrInvalidCredentials = fmt.Errorf("invalid login or password: %w", domain.ErrUnauthenticated)
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthenticated)
)

const (
	maxLoginLen = 50
	passwordMin = 6
)

// Service handles registration, login and bearer token resolution.
type Service struct {
	repo      userrepo.Repository
	tokens    *tokenManager
	accessTTL time.Duration
}

// New creates a Service. A non-positive accessTTL falls back to 30 days.
func New(repo userrepo.Repository, tokens tokenrepo.Repository, accessTTL time.Duration) *Service {
	if accessTTL <= 0 {
		accessTTL = 30 * 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		tokens:    newTokenManager(tokens),
		accessTTL: accessTTL,
	}
}

// RegisterInput captures fields expected by the register endpoint.
type RegisterInput struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is a user together with a freshly issued access token.
type Session struct {
	User  *domain.User
	Token string
}

// Register creates a buyer account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	return s.register(ctx, in, domain.RoleBuyer)
}

// CreateWithRole creates an account with an explicit role. Used by seeding.
func (s *Service) CreateWithRole(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, domain.Invalid("role", "unknown role "+string(role))
	}
	u, hashed, err := s.prepare(in)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hashed
	u.Role = role
	return s.repo.Create(ctx, u)
}

func (s *Service) register(ctx context.Context, in RegisterInput, role domain.Role) (*Session, error) {
	u, err := s.CreateWithRole(ctx, in, role)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(ctx, u.ID, kindAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}

func (s *Service) prepare(in RegisterInput) (domain.User, string, error) {
	login := strings.TrimSpace(in.Login)
	if err := validateLogin(login); err != nil {
		return domain.User{}, "", err
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if err := validateEmail(email); err != nil {
		return domain.User{}, "", err
	}
	hashed, err := hashPassword(in.Password)
	if err != nil {
		return domain.User{}, "", err
	}
	return domain.User{Login: login, Email: email}, hashed, nil
}

// Login validates credentials and issues an access token.
func (s *Service) Login(ctx context.Context, login, password string) (*Session, error) {
	u, err := s.repo.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(ctx, u.ID, kindAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}

// Logout revokes token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// LookupByToken resolves a bearer token to the caller's identity.
func (s *Service) LookupByToken(ctx context.Context, token string) (domain.Identity, error) {
	userID, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return domain.Identity{}, ErrInvalidToken
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Identity{}, ErrInvalidToken
		}
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: u.ID, Role: u.Role}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfileInput carries optional replacements; empty fields are kept.
type UpdateProfileInput struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if login := strings.TrimSpace(in.Login); login != "" {
		if err := validateLogin(login); err != nil {
			return nil, err
		}
		u.Login = login
	}
	if email := strings.TrimSpace(strings.ToLower(in.Email)); email != "" {
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		u.Email = email
	}
	if in.Password != "" {
		hashed, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hashed
	}
	return s.repo.Update(ctx, *u)
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

func validateLogin(login string) error {
	switch {
	case login == "":
		return domain.Invalid("login", "required")
	case len(login) > maxLoginLen:
		return domain.Invalid("login", fmt.Sprintf("must not exceed %d characters", maxLoginLen))
	case strings.ContainsAny(login, " \t\n"):
		return domain.Invalid("login", "must not contain whitespace")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("email", "required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.Invalid("email", "malformed address")
	}
	return nil
}

func hashPassword(p string) (string, error) {
	if err := validatePassword(p, passwordMin); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func validatePassword(p string, min int) error {
	if len(strings.TrimSpace(p)) < min {
		return domain.Invalid("password", fmt.Sprintf("must be at least %d characters", min))
	}
	hasLetter := false
	hasDigit := false
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return domain.Invalid("password", "must contain at least 1 letter and 1 number")
	}
	return nil
}
