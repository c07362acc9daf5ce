package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/intake/internal/apperr"
	"github.com/garnizeh/intake/pkg/models"
	"github.com/garnizeh/intake/pkg/repository/mock"
)

const testSecret = "test-secret"

func seedAdmin(t *testing.T, repo *mock.AdminRepo, id, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	a := &models.Admin{ID: id, Email: email, PasswordHash: string(hash), Name: "Staff " + id, Role: models.RoleAdmin, IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateAdmin(context.Background(), a); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
}

func newGate(t *testing.T) (*Gate, *mock.AdminRepo) {
	t.Helper()
	repo := mock.NewAdminRepo()
	seedAdmin(t, repo, "a1", "staff@example.com", "s3cret-pass")
	return NewGate(repo, testSecret, time.Hour, nil), repo
}

func TestLogin_Success(t *testing.T) {
	g, repo := newGate(t)
	ctx := context.Background()

	res, err := g.Login(ctx, "  Staff@Example.com ", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token")
	}
	if res.Admin != (models.AdminProfile{ID: "a1", Name: "Staff a1", Email: "staff@example.com", Role: models.RoleAdmin}) {
		t.Fatalf("unexpected profile %+v", res.Admin)
	}

	stored, _ := repo.GetAdminByID(ctx, "a1")
	if stored.LastLogin == nil {
		t.Fatalf("expected lastLogin to be recorded")
	}

	admin, err := g.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if admin.ID != "a1" || admin.PasswordHash != "" {
		t.Fatalf("unexpected admin %#v", admin)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	g, repo := newGate(t)
	ctx := context.Background()

	_, errUnknown := g.Login(ctx, "nobody@example.com", "s3cret-pass")
	_, errWrong := g.Login(ctx, "staff@example.com", "wrong-pass")
	if !errors.Is(errUnknown, apperr.ErrInvalidCredentials) || !errors.Is(errWrong, apperr.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v and %v", errUnknown, errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("failure messages differ: %q vs %q", errUnknown, errWrong)
	}

	stored, _ := repo.GetAdminByID(ctx, "a1")
	if stored.LastLogin != nil {
		t.Fatalf("failed login must not touch lastLogin")
	}
}

func TestLogin_MissingFields(t *testing.T) {
	g, _ := newGate(t)
	_, err := g.Login(context.Background(), " ", "")
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError got %v", err)
	}
	if len(ve.Fields) != 2 {
		t.Fatalf("expected 2 field errors got %+v", ve.Fields)
	}
}

func TestLogin_InactiveAdminGetsTokenButCannotUseIt(t *testing.T) {
	g, repo := newGate(t)
	ctx := context.Background()
	repo.SetActive("a1", false)

	res, err := g.Login(ctx, "staff@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := g.Authenticate(ctx, res.Token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for inactive admin got %v", err)
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	g, repo := newGate(t)
	ctx := context.Background()

	valid, err := g.IssueToken("a1")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	foreign := NewGate(repo, "another-secret", time.Hour, nil)
	foreignTok, _ := foreign.IssueToken("a1")

	past := NewGate(repo, testSecret, time.Hour, nil)
	past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredTok, _ := past.IssueToken("a1")

	ghostTok, _ := g.IssueToken("ghost")

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{AdminID: "a1"})
	noExpTok, _ := noExp.SignedString([]byte(testSecret))

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{AdminID: "a1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}})
	hs512Tok, _ := hs512.SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"foreign secret", foreignTok},
		{"expired", expiredTok},
		{"unknown admin", ghostTok},
		{"no expiry", noExpTok},
		{"other algorithm", hs512Tok},
		{"tampered", valid + "x"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := g.Authenticate(ctx, tc.token); !errors.Is(err, apperr.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized got %v", err)
			}
		})
	}

	if _, err := g.Authenticate(ctx, valid); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}

	repo.Remove("a1")
	if _, err := g.Authenticate(ctx, valid); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("token of a deleted admin should be rejected, got %v", err)
	}
}

func TestAuthenticate_RepoError(t *testing.T) {
	g, repo := newGate(t)
	tok, _ := g.IssueToken("a1")
	repo.Err = errors.New("db down")
	_, err := g.Authenticate(context.Background(), tok)
	if err == nil || errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("storage failures should not be reported as unauthorized: %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, err := BearerToken(tc.header)
		if tc.ok != (err == nil) || got != tc.want {
			t.Fatalf("BearerToken(%q) = %q, %v", tc.header, got, err)
		}
	}
}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("short"); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError for short password got %v", err)
	}
	h, err := HashPassword("long-enough")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(h), []byte("long-enough")) != nil {
		t.Fatalf("hash does not match password")
	}
}
