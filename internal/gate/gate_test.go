package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/vocalize-ai/vocalize-backend/internal/platform"
	"github.com/vocalize-ai/vocalize-backend/pkg/kvstore"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

type fakeProvider struct {
	data *platform.DashboardData
	err  error
}

func (f *fakeProvider) FetchDashboard(ctx context.Context, _ string) (*platform.DashboardData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func dashboard(hasSub bool, total, remaining int64) *platform.DashboardData {
	d := &platform.DashboardData{}
	d.User.HasSubscription = hasSub
	d.Usage.TotalCharacters = total
	d.Usage.CharactersRemaining = remaining
	d.Usage.CharactersUsed = total - remaining
	return d
}

func newTestGate(t *testing.T, provider DashboardProvider, store kvstore.Store) *Gate {
	t.Helper()
	if store == nil {
		store = kvstore.NewMemory()
	}
	g, err := New(Params{
		Provider: provider,
		Store:    store,
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNoSubscriptionRejectsAnyLength(t *testing.T) {
	g := newTestGate(t, &fakeProvider{data: dashboard(false, 0, 0)}, nil)
	if _, err := g.Refresh(context.Background(), "tok"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	for _, length := range []int64{0, 1, 10000} {
		decision := g.CanGenerate(length)
		if decision.Allowed {
			t.Fatalf("length %d was allowed without a subscription", length)
		}
		if decision.Reason != ReasonNoActiveSubscription {
			t.Fatalf("unexpected reason %q", decision.Reason)
		}
		if !decision.RedirectToPricing {
			t.Fatal("expected redirect to pricing")
		}
	}
}

func TestNoSubscriptionZeroesStaleUsage(t *testing.T) {
	// A usage row can linger after cancellation; the snapshot must still be
	// all zeros when the user has no plan.
	g := newTestGate(t, &fakeProvider{data: dashboard(false, 10000, 4000)}, nil)
	snap, err := g.Refresh(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.MaxCharacters != 0 || snap.CharactersRemaining != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}

func TestSubscriptionPromptTracksRefreshes(t *testing.T) {
	provider := &fakeProvider{data: dashboard(false, 0, 0)}
	g := newTestGate(t, provider, nil)

	if _, err := g.Refresh(context.Background(), "tok"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !g.NeedsSubscriptionPrompt() {
		t.Fatal("expected prompt after no-subscription refresh")
	}
	// Repeat refreshes keep the flag level, not stacked.
	if _, err := g.Refresh(context.Background(), "tok"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !g.NeedsSubscriptionPrompt() {
		t.Fatal("prompt flag lost on repeat refresh")
	}

	provider.data = dashboard(true, 10000, 10000)
	if _, err := g.Refresh(context.Background(), "tok"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if g.NeedsSubscriptionPrompt() {
		t.Fatal("prompt should clear once a plan exists")
	}
}

func TestExhaustedQuota(t *testing.T) {
	g := newTestGate(t, &fakeProvider{data: dashboard(true, 10000, 0)}, nil)
	if _, err := g.Refresh(context.Background(), "tok"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	decision := g.CanGenerate(5)
	if decision.Allowed {
		t.Fatal("exhausted quota was allowed")
	}
	if decision.Reason != ReasonQuotaExhausted {
		t.Fatalf("unexpected reason %q", decision.Reason)
	}
	if decision.RedirectToPricing {
		t.Fatal("exhausted quota should not redirect; the plan is active")
	}
}

func TestRequestLargerThanRemaining(t *testing.T) {
	g := newTestGate(t, &fakeProvider{data: dashboard(true, 10000, 500)}, nil)
	if _, err := g.Refresh(context.Background(), "tok"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	decision := g.CanGenerate(600)
	if decision.Allowed {
		t.Fatal("oversized request was allowed")
	}
	want := "text is 600 characters but only 500 remain in your quota"
	if decision.Reason != want {
		t.Fatalf("reason = %q, want %q", decision.Reason, want)
	}
	if decision.Requested != 600 || decision.Remaining != 500 {
		t.Fatalf("decision carried %d/%d, want 600/500", decision.Requested, decision.Remaining)
	}
}

func TestRequestWithinRemaining(t *testing.T) {
	g := newTestGate(t, &fakeProvider{data: dashboard(true, 10000, 500)}, nil)
	if _, err := g.Refresh(context.Background(), "tok"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	decision := g.CanGenerate(500)
	if !decision.Allowed {
		t.Fatalf("exact-fit request rejected: %q", decision.Reason)
	}
}

func TestCanGenerateDoesNotMutateSnapshot(t *testing.T) {
	g := newTestGate(t, &fakeProvider{data: dashboard(true, 10000, 500)}, nil)
	if _, err := g.Refresh(context.Background(), "tok"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	g.CanGenerate(100)
	g.CanGenerate(100)
	if got := g.Current().CharactersRemaining; got != 500 {
		t.Fatalf("snapshot mutated, remaining = %d", got)
	}
}

func TestSeverityBands(t *testing.T) {
	cases := []struct {
		remaining int64
		want      string
	}{
		{999, SeverityCritical},
		{1000, SeverityWarning},
		{4999, SeverityWarning},
		{5000, SeverityNormal},
	}
	for _, tc := range cases {
		g := newTestGate(t, &fakeProvider{data: dashboard(true, 100000, tc.remaining)}, nil)
		if _, err := g.Refresh(context.Background(), "tok"); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
		if got := g.Severity(); got != tc.want {
			t.Fatalf("remaining %d: severity = %q, want %q", tc.remaining, got, tc.want)
		}
	}
}

func TestSeverityWithoutSubscription(t *testing.T) {
	g := newTestGate(t, &fakeProvider{data: dashboard(false, 0, 0)}, nil)
	if _, err := g.Refresh(context.Background(), "tok"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := g.Severity(); got != SeverityCritical {
		t.Fatalf("severity = %q, want critical", got)
	}
}

func TestRefreshFallsBackToMirror(t *testing.T) {
	store := kvstore.NewMemory()
	provider := &fakeProvider{data: dashboard(true, 10000, 4000)}
	g := newTestGate(t, provider, store)

	if _, err := g.Refresh(context.Background(), "tok"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Simulate a restart with the upstream down: a new gate over the same
	// store must recover the mirrored snapshot.
	provider.err = errors.New("connection refused")
	g2 := newTestGate(t, provider, store)
	snap, err := g2.Refresh(context.Background(), "tok")
	if err == nil {
		t.Fatal("expected transport error to be surfaced")
	}
	if snap.MaxCharacters != 10000 || snap.CharactersRemaining != 4000 {
		t.Fatalf("mirror snapshot = %+v, want 10000/4000", snap)
	}
	if decision := g2.CanGenerate(100); !decision.Allowed {
		t.Fatalf("mirror-backed decision rejected: %q", decision.Reason)
	}
}

func TestRefreshWithoutMirrorKeepsZeroSnapshot(t *testing.T) {
	g := newTestGate(t, &fakeProvider{err: errors.New("connection refused")}, nil)
	snap, err := g.Refresh(context.Background(), "tok")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if snap.HasSubscription() {
		t.Fatalf("snapshot should be empty, got %+v", snap)
	}
	if decision := g.CanGenerate(10); decision.Allowed {
		t.Fatal("empty snapshot should reject")
	}
}

func TestMirrorIgnoresMalformedValues(t *testing.T) {
	store := kvstore.NewMemory()
	_ = store.Set(context.Background(), mirrorUsedKey, "not-a-number")
	_ = store.Set(context.Background(), mirrorLimitKey, "10000")

	g := newTestGate(t, &fakeProvider{err: errors.New("connection refused")}, store)
	snap, err := g.Refresh(context.Background(), "tok")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if snap.HasSubscription() {
		t.Fatalf("malformed mirror produced snapshot %+v", snap)
	}
}
