package authpw

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"verjson/api/internal/store"

	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	users map[string]store.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]store.User{}}
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.users[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, user store.User) error {
	f.users[user.Email] = user
	return nil
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "ada@example.com",
		Password:    "correct horse",
		DisplayName: "Ada",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if !strings.HasPrefix(user.ID, "usr_") {
		t.Errorf("user ID = %s, want usr_ prefix", user.ID)
	}
	if user.PasswordHash == "correct horse" {
		t.Error("password must not be stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	signedIn, err := svc.SignIn(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if signedIn.ID != user.ID {
		t.Errorf("signed-in user = %s, want %s", signedIn.ID, user.ID)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	req := SignUpRequest{Email: "dup@example.com", Password: "long enough", DisplayName: "Dup"}
	if _, err := svc.SignUp(ctx, req); err != nil {
		t.Fatalf("first SignUp: %v", err)
	}
	if _, err := svc.SignUp(ctx, req); !errors.Is(err, ErrEmailExists) {
		t.Errorf("err = %v, want ErrEmailExists", err)
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	_, err := svc.SignUp(context.Background(), SignUpRequest{
		Email: "a@example.com", Password: "short", DisplayName: "A",
	})
	if err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "b@example.com", Password: "long enough", DisplayName: "B"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := svc.SignIn(ctx, "b@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	svc := NewService(newFakeUserStore())
	if _, err := svc.SignIn(context.Background(), "ghost@example.com", "whatever pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}
