package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/example/taskflow/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestService creates an AuthService on an in-memory SQLite database.
func setupTestService(t *testing.T) *AuthService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := DefaultJWTConfig()
	cfg.SecretKey = "test-secret"
	// MinCost keeps the hashing in tests fast.
	return NewAuthService(NewUserRepository(db), NewPasswordHasher(bcrypt.MinCost), NewJWTManager(cfg))
}

func TestAuthService_Register(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", "alice@example.com", "password123", "alice-channel")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.UserID == 0 {
		t.Error("expected an assigned user id")
	}
	if user.PasswordHash == "password123" {
		t.Error("password must be stored hashed")
	}
	if user.NotifyChannel != "alice-channel" {
		t.Errorf("notify channel = %q", user.NotifyChannel)
	}

	// Duplicate email is rejected.
	if _, err := svc.Register(ctx, "Other", "alice@example.com", "password456", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate register error = %v, want ErrUserExists", err)
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		wantErr  error
	}{
		{"empty name", "", "a@example.com", "password123", ErrNameRequired},
		{"bad email", "A", "not-an-email", "password123", ErrInvalidEmail},
		{"short password", "A", "a@example.com", "1234567", ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.userName, tt.email, tt.password, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "Bob", "bob@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	pair, err := svc.Login(ctx, "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("token type = %q, want Bearer", pair.TokenType)
	}

	claims, err := svc.ValidateToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != registered.UserID || claims.Email != "bob@example.com" {
		t.Errorf("claims = %+v", claims)
	}

	// Wrong password and unknown email get the same error.
	if _, err := svc.Login(ctx, "bob@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v", err)
	}
}

func TestAuthService_RefreshTokens(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Cara", "cara@example.com", "password123", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	pair, err := svc.Login(ctx, "cara@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	refreshed, err := svc.RefreshTokens(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens() error = %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("expected a fresh access token")
	}

	// An access token is not accepted where a refresh token is expected.
	if _, err := svc.RefreshTokens(ctx, pair.AccessToken); err == nil {
		t.Error("access token must not pass refresh validation")
	}
}

func TestAuthService_ListNotifiable(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Quiet", "quiet@example.com", "password123", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, "Loud", "loud@example.com", "password123", "loud-channel"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	users, err := svc.ListNotifiable(ctx)
	if err != nil {
		t.Fatalf("ListNotifiable() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d notifiable users, want 1", len(users))
	}
	if users[0].Email != "loud@example.com" {
		t.Errorf("notifiable user = %q", users[0].Email)
	}
}

func TestJWTManager_TokenTypes(t *testing.T) {
	cfg := DefaultJWTConfig()
	cfg.SecretKey = "test-secret"
	mgr := NewJWTManager(cfg)

	access, err := mgr.GenerateAccessToken(42, "t@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	refresh, err := mgr.GenerateRefreshToken(42, "t@example.com")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	if _, err := mgr.ValidateAccessToken(access); err != nil {
		t.Errorf("access token should validate as access: %v", err)
	}
	if _, err := mgr.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token must fail access validation, got %v", err)
	}
	if _, err := mgr.ValidateRefreshToken(refresh); err != nil {
		t.Errorf("refresh token should validate as refresh: %v", err)
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	cfg := DefaultJWTConfig()
	cfg.SecretKey = "test-secret"
	cfg.AccessTokenDuration = -time.Minute
	mgr := NewJWTManager(cfg)

	token, err := mgr.GenerateAccessToken(1, "t@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := mgr.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	cfg := DefaultJWTConfig()
	cfg.SecretKey = "secret-a"
	token, err := NewJWTManager(cfg).GenerateAccessToken(1, "t@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	cfg.SecretKey = "secret-b"
	if _, err := NewJWTManager(cfg).ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must differ from the plaintext")
	}

	if !hasher.Verify("correct horse battery staple", hash) {
		t.Error("correct password should verify")
	}
	if hasher.Verify("wrong password", hash) {
		t.Error("wrong password must not verify")
	}
}

func TestPasswordHasherCostFallback(t *testing.T) {
	for _, cost := range []int{-1, 0, bcrypt.MaxCost + 1} {
		hasher := NewPasswordHasher(cost)
		if hasher.cost != DefaultBcryptCost {
			t.Errorf("NewPasswordHasher(%d) cost = %d, want %d", cost, hasher.cost, DefaultBcryptCost)
		}
	}

	if hasher := NewPasswordHasher(bcrypt.MinCost); hasher.cost != bcrypt.MinCost {
		t.Errorf("legal cost should be kept, got %d", hasher.cost)
	}
}
