package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/store"
)

func newTestService() *Service {
	repos := store.NewMemory().Repos()
	return New(repos.Users, repos.Tokens, time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	sess, err := svc.Register(ctx, RegisterInput{Login: "alice", Email: "Alice@Example.com", Password: "secret12"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.Token == "" {
		t.Fatalf("expected token on register")
	}
	if sess.User.Role != domain.RoleBuyer {
		t.Fatalf("expected buyer role, got %s", sess.User.Role)
	}
	if sess.User.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", sess.User.Email)
	}
	if sess.User.PasswordHash == "secret12" {
		t.Fatalf("password stored in clear")
	}

	login, err := svc.Login(ctx, "alice", "secret12")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, err := svc.LookupByToken(ctx, login.Token)
	if err != nil {
		t.Fatalf("LookupByToken: %v", err)
	}
	if id.UserID != sess.User.ID || id.Role != domain.RoleBuyer {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	if _, err := svc.Register(ctx, RegisterInput{Login: "bob", Email: "bob@example.com", Password: "secret12"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterInput{Login: "BOB", Email: "other@example.com", Password: "secret12"})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	cases := map[string]RegisterInput{
		"login":    {Login: "", Email: "a@example.com", Password: "secret12"},
		"email":    {Login: "a", Email: "not-an-email", Password: "secret12"},
		"password": {Login: "a", Email: "a@example.com", Password: "short"},
	}
	for field, in := range cases {
		_, err := svc.Register(ctx, in)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) || verr.Field != field {
			t.Fatalf("%s: expected validation error, got %v", field, err)
		}
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	if _, err := svc.Register(ctx, RegisterInput{Login: "carol", Email: "carol@example.com", Password: "secret12"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := svc.Login(ctx, "carol", "wrong123")
	if !errors.Is(err, ErrInvalidCredentials) || !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	_, err = svc.Login(ctx, "nobody", "secret12")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown login, got %v", err)
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	sess, err := svc.Register(ctx, RegisterInput{Login: "dave", Email: "dave@example.com", Password: "secret12"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	svc.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.LookupByToken(ctx, sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	sess, err := svc.Register(ctx, RegisterInput{Login: "erin", Email: "erin@example.com", Password: "secret12"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.LookupByToken(ctx, sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to be invalid, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	sess, err := svc.Register(ctx, RegisterInput{Login: "frank", Email: "frank@example.com", Password: "secret12"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, sess.User.ID, UpdateProfileInput{Email: "FRANK@new.example.com", Password: "newpass99"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Login != "frank" || updated.Email != "frank@new.example.com" {
		t.Fatalf("unexpected profile %+v", updated)
	}
	if _, err := svc.Login(ctx, "frank", "newpass99"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
}
