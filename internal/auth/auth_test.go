package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/memdb"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "my-secret-key"

func newTestService() *AuthService {
	return NewAuthService(memdb.New(), testSecret, time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		email       string
		password    string
		expectError error
	}{
		{
			name:     "Success",
			username: "alice",
			email:    "alice@example.com",
			password: "password123",
		},
		{
			name:        "EmptyUsername",
			username:    "",
			email:       "alice@example.com",
			password:    "password123",
			expectError: ErrInvalidInput,
		},
		{
			name:        "EmptyPassword",
			username:    "bob",
			email:       "bob@example.com",
			password:    "",
			expectError: ErrInvalidInput,
		},
		{
			name:        "ShortUsername",
			username:    "al",
			email:       "al@example.com",
			password:    "password123",
			expectError: ErrInvalidInput,
		},
		{
			name:        "LongUsername",
			username:    strings.Repeat("a", 51),
			email:       "long@example.com",
			password:    "password123",
			expectError: ErrInvalidInput,
		},
		{
			name:        "BadEmail",
			username:    "carol",
			email:       "not-an-email",
			password:    "password123",
			expectError: ErrInvalidInput,
		},
		{
			name:        "ShortPassword",
			username:    "dave",
			email:       "dave@example.com",
			password:    "12345",
			expectError: ErrInvalidInput,
		},
		{
			name:        "LongPassword",
			username:    "erin",
			email:       "erin@example.com",
			password:    strings.Repeat("p", 73),
			expectError: ErrInvalidInput,
		},
		{
			name:        "DuplicateUsername",
			username:    "taken",
			email:       "new@example.com",
			password:    "password123",
			expectError: biddingerrors.ErrUserExists,
		},
		{
			name:        "DuplicateEmail",
			username:    "fresh",
			email:       "taken@example.com",
			password:    "password123",
			expectError: biddingerrors.ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestService()
			if _, err := s.Register(ctx, "taken", "taken@example.com", "password123"); err != nil {
				t.Fatalf("Failed to create existing user: %v", err)
			}

			user, err := s.Register(ctx, tt.username, tt.email, tt.password)
			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Username != tt.username {
				t.Errorf("expected username %q, got %q", tt.username, user.Username)
			}
			if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.password)); err != nil {
				t.Errorf("password hash mismatch")
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	s := newTestService()
	if _, err := s.Register(context.Background(), "alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name        string
		email       string
		password    string
		expectError bool
	}{
		{
			name:     "Success",
			email:    "alice@example.com",
			password: "password123",
		},
		{
			name:     "SurroundingSpaces",
			email:    "  alice@example.com ",
			password: "password123",
		},
		{
			name:        "WrongPassword",
			email:       "alice@example.com",
			password:    "wrongpass",
			expectError: true,
		},
		{
			name:        "NonExistentUser",
			email:       "bob@example.com",
			password:    "password123",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, token, err := s.Login(context.Background(), tt.email, tt.password)
			if tt.expectError {
				if !errors.Is(err, biddingerrors.ErrInvalidCredentials) {
					t.Errorf("expected invalid credentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Username != "alice" {
				t.Errorf("expected alice, got %q", user.Username)
			}
			parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
				return []byte(testSecret), nil
			})
			if err != nil {
				t.Fatalf("invalid token: %v", err)
			}
			claims, ok := parsed.Claims.(jwt.MapClaims)
			if !ok || claims["username"] != "alice" {
				t.Errorf("invalid token claims")
			}
		})
	}
}

func TestAuthService_GetUserFromToken(t *testing.T) {
	s := newTestService()
	s.Register(context.Background(), "alice", "alice@example.com", "password123")
	_, token, err := s.Login(context.Background(), "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  float64(1),
		"username": "alice",
		"exp":      time.Now().Add(-time.Hour).Unix(),
	})
	expiredTokenStr, _ := expiredToken.SignedString([]byte(testSecret))
	invalidToken, _ := expiredToken.SignedString([]byte("wrong-key"))

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noUserStr, _ := noUser.SignedString([]byte(testSecret))

	tests := []struct {
		name         string
		token        string
		expectUserID int
		expectError  bool
	}{
		{
			name:         "Success",
			token:        token,
			expectUserID: 1,
		},
		{
			name:        "ExpiredToken",
			token:       expiredTokenStr,
			expectError: true,
		},
		{
			name:        "InvalidSignature",
			token:       invalidToken,
			expectError: true,
		},
		{
			name:        "NoUserClaim",
			token:       noUserStr,
			expectError: true,
		},
		{
			name:        "EmptyToken",
			token:       "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := s.GetUserFromToken(tt.token)
			if tt.expectError {
				if !errors.Is(err, biddingerrors.ErrUnauthorized) {
					t.Errorf("expected unauthorized, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if userID != tt.expectUserID {
				t.Errorf("expected user ID %d, got %d", tt.expectUserID, userID)
			}
		})
	}
}

func TestAuthService_TokenExpiry(t *testing.T) {
	s := newTestService()
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	user, err := s.Register(context.Background(), "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token, err := s.IssueToken(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock = clock.Add(59 * time.Minute)
	if _, err := s.GetUserFromToken(token); err != nil {
		t.Errorf("token should still be valid: %v", err)
	}

	clock = clock.Add(2 * time.Minute)
	if _, err := s.GetUserFromToken(token); !errors.Is(err, biddingerrors.ErrUnauthorized) {
		t.Errorf("expected expired token to be rejected, got %v", err)
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	user, err := s.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _ := s.IssueToken(user)

	got, err := s.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID || got.Email != "alice@example.com" {
		t.Errorf("unexpected user %+v", got)
	}

	// valid signature for a user that does not exist
	other := newTestService()
	ghost, _ := other.Register(ctx, "ghost", "ghost@example.com", "password123")
	ghost.ID = 77
	ghostToken, _ := s.IssueToken(ghost)
	if _, err := s.Authenticate(ctx, ghostToken); !errors.Is(err, biddingerrors.ErrUnauthorized) {
		t.Errorf("expected unauthorized for unknown user, got %v", err)
	}
}
