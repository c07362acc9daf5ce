// Package auth verifies admin credentials and issues and checks the signed
// bearer tokens that guard the admin API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/intake/internal/apperr"
	"github.com/garnizeh/intake/pkg/models"
	"github.com/garnizeh/intake/pkg/repository"
)

// Claims is the token payload. Only the admin id is carried; the admin's
// current state is looked up on every request.
type Claims struct {
	AdminID string `json:"id"`
	jwt.RegisteredClaims
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string              `json:"token"`
	Admin models.AdminProfile `json:"admin"`
}

type Gate struct {
	admins repository.AdminRepo
	secret []byte
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewGate(admins repository.AdminRepo, secret string, ttl time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		admins: admins,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// dummyHash is compared against when the email is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("intake-placeholder-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("generate placeholder hash: %v", err))
	}
	return h
})

// Login checks email and password. Unknown email and wrong password fail
// with the same apperr.ErrInvalidCredentials. The active flag is not
// consulted here; an inactive admin's token is rejected by Authenticate.
func (g *Gate) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		ve := &apperr.ValidationError{}
		if email == "" {
			ve.Add("email", "Email is required")
		}
		if password == "" {
			ve.Add("password", "Password is required")
		}
		return nil, ve
	}

	admin, err := g.admins.GetAdminCredentials(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load admin credentials: %w", err)
	}
	if admin == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, apperr.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		g.logger.Warn("admin login failed", slog.String("admin_id", admin.ID))
		return nil, apperr.ErrInvalidCredentials
	}

	if err := g.admins.UpdateLastLogin(ctx, admin.ID, g.now().UTC()); err != nil {
		return nil, fmt.Errorf("record last login: %w", err)
	}

	token, err := g.IssueToken(admin.ID)
	if err != nil {
		return nil, err
	}
	g.logger.Info("admin logged in", slog.String("admin_id", admin.ID))

	return &LoginResult{Token: token, Admin: admin.Profile()}, nil
}

// IssueToken signs an HS256 token for adminID that expires after the
// configured lifetime.
func (g *Gate) IssueToken(adminID string) (string, error) {
	now := g.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	})
	s, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Authenticate resolves a bearer token to the admin it was issued for. Every
// failure, including an admin that no longer exists or is inactive, is
// apperr.ErrUnauthorized. The returned admin never carries a password hash.
func (g *Gate) Authenticate(ctx context.Context, token string) (*models.Admin, error) {
	if token == "" {
		return nil, apperr.ErrUnauthorized
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		g.logger.Debug("token rejected", slog.Any("err", err))
		return nil, apperr.ErrUnauthorized
	}
	if claims.AdminID == "" {
		return nil, apperr.ErrUnauthorized
	}

	admin, err := g.admins.GetAdminByID(ctx, claims.AdminID)
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if admin == nil || !admin.IsActive {
		return nil, apperr.ErrUnauthorized
	}
	admin.PasswordHash = ""

	return admin, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", apperr.ErrUnauthorized
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.ErrUnauthorized
	}
	return token, nil
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, apperr.ErrUnauthorized) || errors.Is(err, apperr.ErrInvalidCredentials)
}

// MinPasswordLength is enforced when admin accounts are created.
const MinPasswordLength = 8

// HashPassword returns the bcrypt hash stored for an admin password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperr.NewValidationError("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
