package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/postpay/internal/model"
	"github.com/hitoshi/postpay/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) List(_ context.Context, _ int) ([]*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)

var testSecret = []byte("test-jwt-secret-32bytes-long!!!!")

func newTestService(repo repository.UserRepository) *Service {
	return NewService(repo, ServiceConfig{
		JWTSecret:  testSecret,
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

// --- Register ---

func TestRegister_CreatesUserWithHashedPassword(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), " Alice ", "Alice@Example.COM", "secret123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected user to be created")
	}
	if user.FullName != "Alice" {
		t.Errorf("FullName = %q, want %q", user.FullName, "Alice")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "alice@example.com")
	}
	if user.ID == "" {
		t.Error("expected ID to be generated")
	}
	if user.PasswordHash == "secret123" {
		t.Fatal("password must not be stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		email    string
		password string
	}{
		{"empty name", "", "a@example.com", "secret123"},
		{"email without at", "Alice", "alice.example.com", "secret123"},
		{"empty email", "Alice", "", "secret123"},
		{"short password", "Alice", "a@example.com", "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepo{
				createFn: func(_ context.Context, _ *model.User) error {
					t.Fatal("Create must not be called")
					return nil
				},
			}
			svc := newTestService(repo)

			_, err := svc.Register(context.Background(), tt.fullName, tt.email, tt.password)
			assertAPIErrorCode(t, err, model.ErrCodeInvalidRequest)
		})
	}
}

func TestRegister_DuplicateEmail_ReturnsEmailTaken(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing", Email: email}, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret123")
	assertAPIErrorCode(t, err, model.ErrCodeEmailTaken)
}

func TestRegister_DuplicateOnInsert_ReturnsEmailTaken(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return repository.ErrDuplicate
		},
	}
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret123")
	assertAPIErrorCode(t, err, model.ErrCodeEmailTaken)
}

func TestRegister_RepoError_IsWrapped(t *testing.T) {
	dbErr := errors.New("connection refused")
	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return dbErr
		},
	}
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret123")
	if !errors.Is(err, dbErr) {
		t.Errorf("expected wrapped db error, got %v", err)
	}
}

// --- Login ---

func TestLogin_ValidCredentials_ReturnsVerifiableToken(t *testing.T) {
	stored := &model.User{
		ID:           "user-1",
		FullName:     "Alice",
		Email:        "alice@example.com",
		PasswordHash: hashPassword(t, "secret123"),
	}
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			if email != "alice@example.com" {
				t.Errorf("FindByEmail called with %q, want normalized email", email)
			}
			return stored, nil
		},
	}
	svc := newTestService(repo)

	token, user, err := svc.Login(context.Background(), "ALICE@example.com", "secret123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	userID, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("VerifyToken() = %q, want %q", userID, "user-1")
	}
}

func TestLogin_WrongPassword_ReturnsInvalidCredentials(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-1", PasswordHash: hashPassword(t, "secret123")}, nil
		},
	}
	svc := newTestService(repo)

	_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong-password")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

func TestLogin_UnknownEmail_ReturnsInvalidCredentials(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "secret123")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

// --- VerifyToken ---

func TestVerifyToken_Expired_ReturnsError(t *testing.T) {
	svc := newTestService(&mockUserRepo{})
	issuedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.issueToken("user-1")
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyToken_WrongSecret_ReturnsError(t *testing.T) {
	other := NewService(&mockUserRepo{}, ServiceConfig{JWTSecret: []byte("another-secret")})
	token, err := other.issueToken("user-1")
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}

	svc := newTestService(&mockUserRepo{})
	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyToken_WrongAlgorithm_ReturnsError(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	svc := newTestService(&mockUserRepo{})
	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyToken_MissingExpiry_ReturnsError(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "user-1"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	svc := newTestService(&mockUserRepo{})
	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyToken_Garbage_ReturnsError(t *testing.T) {
	svc := newTestService(&mockUserRepo{})
	if _, err := svc.VerifyToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

// --- Authenticate ---

func TestAuthenticate_ExistingUser_ReturnsUserID(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	svc := newTestService(repo)
	token, err := svc.issueToken("user-1")
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}

	userID, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}
}

func TestAuthenticate_WithdrawnUser_ReturnsUnauthorized(t *testing.T) {
	var lookups int
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			lookups++
			return nil, nil
		},
	}
	svc := newTestService(repo)
	token, err := svc.issueToken("user-gone")
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}

	_, err = svc.Authenticate(context.Background(), token)
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorized)
	if lookups != 1 {
		t.Errorf("FindByID calls = %d, want 1", lookups)
	}
}

func TestAuthenticate_InvalidToken_SkipsLookup(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			t.Fatal("FindByID should not be called")
			return nil, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Authenticate(context.Background(), "not-a-jwt")
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorized)
}

func TestAuthenticate_RepoError_IsNotUnauthorized(t *testing.T) {
	dbErr := errors.New("connection refused")
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return nil, dbErr
		},
	}
	svc := newTestService(repo)
	token, err := svc.issueToken("user-1")
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}

	_, err = svc.Authenticate(context.Background(), token)
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("repo failure should not be an APIError, got %v", apiErr)
	}
}

// --- GetCurrentUser ---

func TestGetCurrentUser_NotFound_ReturnsUserNotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.GetCurrentUser(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

func TestGetCurrentUser_Found(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, FullName: "Alice"}, nil
		},
	}
	svc := newTestService(repo)

	user, err := svc.GetCurrentUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("ID = %q, want %q", user.ID, "user-1")
	}
}
