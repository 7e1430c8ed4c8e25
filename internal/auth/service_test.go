package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/pkg/config"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"github.com/vocalize-ai/vocalize-backend/pkg/security"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*models.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func testConfigs() (config.JWTConfig, config.PasswordConfig) {
	jwtCfg := config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "vocalize",
		ExpirationMinutes: 60,
	}
	pwCfg := config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
	return jwtCfg, pwCfg
}

func newTestService(t *testing.T, repo userRepository) Service {
	t.Helper()
	jwtCfg, pwCfg := testConfigs()
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: jwtCfg, PasswordConfig: pwCfg})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, password string) *models.User {
	t.Helper()
	_, pwCfg := testConfigs()
	hash, err := security.HashPassword(password, pwCfg)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		UserType:     models.UserTypeUser,
	}
	repo.byEmail[email] = user
	return user
}

func TestLoginSuccess(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "sarah@example.com", "correct horse battery")

	svc := newTestService(t, repo)
	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "sarah@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("no access token minted")
	}
	if resp.User.Email != "sarah@example.com" {
		t.Fatalf("user email = %q", resp.User.Email)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "sarah@example.com", "correct horse battery")

	svc := newTestService(t, repo)
	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "sarah@example.com",
		Password: "wrong",
	})
	if err == nil {
		t.Fatal("expected refusal")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("code = %v, want unauthorized", pkgerrors.As(err).Code())
	}
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "sarah@example.com", "correct horse battery")
	svc := newTestService(t, repo)

	_, errUnknown := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "x"})
	_, errWrongPw := svc.Login(context.Background(), LoginRequest{Email: "sarah@example.com", Password: "x"})
	if errUnknown == nil || errWrongPw == nil {
		t.Fatal("expected both logins to fail")
	}
	if pkgerrors.As(errUnknown).Message() != pkgerrors.As(errWrongPw).Message() {
		t.Fatal("credential failures must be indistinguishable")
	}
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "new@example.com",
		Password: "longenough",
		Name:     "New User",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("no access token minted")
	}

	if _, err := svc.Login(context.Background(), LoginRequest{
		Email:    "new@example.com",
		Password: "longenough",
	}); err != nil {
		t.Fatalf("Login after register: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "sarah@example.com", "correct horse battery")
	svc := newTestService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "sarah@example.com",
		Password: "longenough",
	})
	if err == nil {
		t.Fatal("expected conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("code = %v, want conflict", pkgerrors.As(err).Code())
	}
}

func TestRegisterShortPassword(t *testing.T) {
	svc := newTestService(t, newFakeUserRepo())
	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "new@example.com",
		Password: "short",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("code = %v, want validation", pkgerrors.As(err).Code())
	}
}
