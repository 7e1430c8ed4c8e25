package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vocalize-ai/vocalize-backend/internal/admin"
	authsvc "github.com/vocalize-ai/vocalize-backend/internal/auth"
	"github.com/vocalize-ai/vocalize-backend/internal/dashboard"
	"github.com/vocalize-ai/vocalize-backend/internal/gate"
	"github.com/vocalize-ai/vocalize-backend/internal/ledger"
	"github.com/vocalize-ai/vocalize-backend/internal/plans"
	"github.com/vocalize-ai/vocalize-backend/internal/platform"
	"github.com/vocalize-ai/vocalize-backend/internal/voice"
	pkgAuth "github.com/vocalize-ai/vocalize-backend/pkg/auth"
	"github.com/vocalize-ai/vocalize-backend/pkg/config"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	"github.com/vocalize-ai/vocalize-backend/pkg/kvstore"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	return &authsvc.LoginResponse{AccessToken: "stub"}, nil
}

func (stubAuthService) Register(ctx context.Context, req authsvc.RegisterRequest) (*authsvc.LoginResponse, error) {
	return &authsvc.LoginResponse{AccessToken: "stub"}, nil
}

type stubPlansService struct{}

func (stubPlansService) ListPlans(ctx context.Context) ([]plans.PlanView, error) {
	return []plans.PlanView{{ID: uuid.New(), Name: "starter", CharacterLimit: 10000, Price: "9.99"}}, nil
}

func (stubPlansService) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	return &models.Plan{ID: id, Name: "starter"}, nil
}

type stubDashboardService struct{}

func (stubDashboardService) Overview(ctx context.Context, userID uuid.UUID) (*dashboard.View, error) {
	return &dashboard.View{
		User:  dashboard.UserView{ID: userID, Email: "dora@example.com", HasSubscription: true},
		Usage: dashboard.UsageView{TotalCharacters: 10000, CharactersRemaining: 9000, CharactersUsed: 1000},
	}, nil
}

type stubSubscriptionsService struct{}

func (stubSubscriptionsService) Subscribe(ctx context.Context, userID, planID uuid.UUID) (*models.Subscription, error) {
	return &models.Subscription{ID: uuid.New(), UserID: userID, PlanID: planID}, nil
}

func (stubSubscriptionsService) ActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

func (stubSubscriptionsService) Cancel(ctx context.Context, userID uuid.UUID) error {
	return nil
}

type stubUsageService struct{}

func (stubUsageService) Balance(ctx context.Context, userID uuid.UUID) (*models.Usage, error) {
	return &models.Usage{UserID: userID, CharactersUsed: 1000, CharactersRemaining: 9000}, nil
}

func (stubUsageService) Consume(ctx context.Context, userID uuid.UUID, count int64) (*models.Usage, error) {
	return &models.Usage{UserID: userID, CharactersUsed: count}, nil
}

func (stubUsageService) Refund(ctx context.Context, userID uuid.UUID, count int64) error {
	return nil
}

func (stubUsageService) ResetAllowance(ctx context.Context, userID uuid.UUID, limit int64) error {
	return nil
}

type stubVoiceService struct{}

func (stubVoiceService) Generate(ctx context.Context, userID uuid.UUID, input voice.GenerateInput) (*voice.GenerateOutput, error) {
	return &voice.GenerateOutput{AudioID: uuid.New(), FilePath: "/audio/stub.mp3"}, nil
}

func (stubVoiceService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.AudioFile, error) {
	return nil, nil
}

func (stubVoiceService) Clone(ctx context.Context, userID uuid.UUID, input voice.CloneInput) (*models.ClonedVoice, error) {
	return &models.ClonedVoice{ID: uuid.New(), UserID: userID, Name: input.Name, SpeakerID: "user-123-2026"}, nil
}

func (stubVoiceService) ListClones(ctx context.Context, userID uuid.UUID, search string) ([]models.ClonedVoice, error) {
	return []models.ClonedVoice{{ID: uuid.New(), UserID: userID, Name: "Morning Narrator", SpeakerID: "user-123-2026"}}, nil
}

func (stubVoiceService) DeleteClone(ctx context.Context, userID, cloneID uuid.UUID) error {
	return nil
}

type stubAdminService struct{}

func (stubAdminService) Overview(ctx context.Context) (*admin.Stats, error) {
	return &admin.Stats{TotalUsers: 3, TotalAdmins: 1, ActiveUsers: 2}, nil
}

func (stubAdminService) AssignPlan(ctx context.Context, email string, planID uuid.UUID) (*models.Subscription, error) {
	return &models.Subscription{ID: uuid.New(), PlanID: planID}, nil
}

type stubDashboardProvider struct {
	remaining int64
}

func (p stubDashboardProvider) FetchDashboard(ctx context.Context, bearerToken string) (*platform.DashboardData, error) {
	return &platform.DashboardData{
		User:  platform.DashboardUser{Email: "dora@example.com", HasSubscription: true},
		Usage: platform.DashboardUsage{TotalCharacters: 10000, CharactersRemaining: p.remaining, CharactersUsed: 10000 - p.remaining},
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	led, err := ledger.New(context.Background(), ledger.Options{
		Store:  kvstore.NewMemory(),
		Logger: logg,
		Seeds: []ledger.Record{
			{ID: 1, Email: "seed@example.com", Plan: "starter", Tokens: 100, StartDate: "2026-01-01", ExpiryDate: "2099-01-01", Status: ledger.StatusActive},
		},
	})
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	gateRegistry, err := gate.NewRegistry(gate.Params{
		Provider: stubDashboardProvider{remaining: 9000},
		Store:    kvstore.NewMemory(),
		Logger:   logg,
	})
	if err != nil {
		t.Fatalf("gate.NewRegistry: %v", err)
	}
	return NewRouter(Deps{
		Config:        cfg,
		Logger:        logg,
		Auth:          stubAuthService{},
		Plans:         stubPlansService{},
		Dashboard:     stubDashboardService{},
		Subscriptions: stubSubscriptionsService{},
		Usage:         stubUsageService{},
		Voice:         stubVoiceService{},
		Ledger:        led,
		Gate:          gateRegistry,
		Admin:         stubAdminService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	return buildTypedToken(t, cfg, userID, models.UserTypeUser)
}

func buildTypedToken(t *testing.T, cfg *config.Config, userID uuid.UUID, userType models.UserType) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   userID,
		Email:    "dora@example.com",
		UserType: userType,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Vocalize-Env"); got != "test" {
		t.Fatalf("expected env header test got %q", got)
	}
}

func TestPublicPlansSkipsAuth(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/public/plans", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public plans got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "starter") {
		t.Fatalf("expected plan list in body got %s", resp.Body.String())
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())
	for _, path := range []string{
		"/api/v1/user/dashboard",
		"/api/v1/usage/",
		"/api/v1/tokens/info",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without token on %s got %d", path, resp.Code)
		}
	}
}

func TestDashboardWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, userID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for dashboard got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data dashboard.View `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode dashboard body: %v", err)
	}
	if envelope.Data.User.ID != userID {
		t.Fatalf("expected dashboard for caller %s got %s", userID, envelope.Data.User.ID)
	}
	if envelope.Data.Usage.CharactersRemaining != 9000 {
		t.Fatalf("expected remaining 9000 got %d", envelope.Data.Usage.CharactersRemaining)
	}
}

func TestLoginRejectsBadJSON(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestTokensInfoServesSeedRecord(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tokens/info?email=seed@example.com", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for seeded email got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "starter") {
		t.Fatalf("expected seed plan in body got %s", resp.Body.String())
	}
}

func TestGateCheckApprovesWithinQuota(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gate/check?length=1200", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for gate check got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			Allowed                 bool   `json:"allowed"`
			Remaining               int64  `json:"remaining"`
			Severity                string `json:"severity"`
			NeedsSubscriptionPrompt bool   `json:"needs_subscription_prompt"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode gate body: %v", err)
	}
	if !envelope.Data.Allowed {
		t.Fatal("expected request within quota to be allowed")
	}
	if envelope.Data.Remaining != 9000 {
		t.Fatalf("expected remaining 9000 got %d", envelope.Data.Remaining)
	}
	if envelope.Data.Severity != gate.SeverityNormal {
		t.Fatalf("expected normal severity got %q", envelope.Data.Severity)
	}
	if envelope.Data.NeedsSubscriptionPrompt {
		t.Fatal("subscriber should not be prompted to subscribe")
	}
}

func TestGateCheckRequiresLength(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gate/check", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without length got %d", resp.Code)
	}
}

func TestAdminGroupRejectsRegularUser(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}
}

func TestAdminStatsServesCounters(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+buildTypedToken(t, cfg, uuid.New(), models.UserTypeAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin stats got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data admin.Stats `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode stats body: %v", err)
	}
	if envelope.Data.TotalUsers != 3 {
		t.Fatalf("total users = %d, want 3", envelope.Data.TotalUsers)
	}
}

func TestVoiceClonesListServesLibrary(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/voice/clones/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for clone list got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "Morning Narrator") {
		t.Fatalf("expected clone library in body got %s", resp.Body.String())
	}
}

func TestMetricsEndpointRegistered(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}
