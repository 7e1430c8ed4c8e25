// Package gate enforces character-quota limits on generation requests using
// the latest server-issued usage snapshot. The gate never accounts locally:
// it refreshes from the dashboard payload and answers yes/no questions
// against that snapshot until the next refresh.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/vocalize-ai/vocalize-backend/internal/platform"
	"github.com/vocalize-ai/vocalize-backend/pkg/kvstore"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

// Severity levels for the remaining-balance display.
const (
	SeverityNormal   = "normal"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Thresholds for the severity bands, in characters remaining.
const (
	criticalBelow = 1000
	warningBelow  = 5000
)

// Mirror keys for the fallback snapshot.
const (
	mirrorUsedKey  = "usage:characters_used"
	mirrorLimitKey = "usage:character_limit"
)

// Refusal reasons surfaced to callers.
const (
	ReasonNoActiveSubscription = "no active subscription"
	ReasonQuotaExhausted       = "character quota exhausted"
)

// DashboardProvider supplies the authoritative usage snapshot.
type DashboardProvider interface {
	FetchDashboard(ctx context.Context, bearerToken string) (*platform.DashboardData, error)
}

// Snapshot is the quota state the gate decides against.
type Snapshot struct {
	MaxCharacters       int64 `json:"max_characters"`
	CharactersRemaining int64 `json:"characters_remaining"`
}

// HasSubscription reports whether the snapshot reflects an active plan.
// A zero maximum means no plan regardless of the remaining figure.
func (s Snapshot) HasSubscription() bool {
	return s.MaxCharacters > 0
}

// Decision is the gate's answer for a single generation request.
type Decision struct {
	Allowed           bool   `json:"allowed"`
	Reason            string `json:"reason,omitempty"`
	RedirectToPricing bool   `json:"redirect_to_pricing,omitempty"`
	Requested         int64  `json:"requested,omitempty"`
	Remaining         int64  `json:"remaining"`
}

// Gate holds the current snapshot and mirrors it to the KV store so a
// transport failure on refresh degrades to the last known state instead of
// locking the user out.
type Gate struct {
	mu       sync.Mutex
	provider DashboardProvider
	store    kvstore.Store
	logg     *logger.Logger
	snapshot Snapshot
	loaded   bool
	// needsCTA flips on when a refresh finds no subscription and off when
	// one appears. The flag is level-triggered so repeated refreshes do not
	// stack duplicate prompts.
	needsCTA bool
}

// Params collects the gate's dependencies.
type Params struct {
	Provider DashboardProvider
	Store    kvstore.Store
	Logger   *logger.Logger
}

// New builds a gate. The snapshot starts empty; callers refresh before the
// first decision or accept the reject-everything default.
func New(params Params) (*Gate, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("gate: provider is required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("gate: store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("gate: logger is required")
	}
	return &Gate{
		provider: params.Provider,
		store:    params.Store,
		logg:     params.Logger,
	}, nil
}

// Refresh pulls a fresh dashboard snapshot. Users without a subscription get
// an all-zero snapshot. On transport failure the gate falls back to the KV
// mirror; if the mirror is also absent the previous in-memory snapshot (or
// the zero value) stands, and the transport error is returned so callers can
// surface it.
func (g *Gate) Refresh(ctx context.Context, bearerToken string) (Snapshot, error) {
	data, err := g.provider.FetchDashboard(ctx, bearerToken)
	if err != nil {
		g.logg.Error(ctx, "dashboard refresh failed, using mirrored usage", err)
		if snap, ok := g.loadMirror(ctx); ok {
			g.mu.Lock()
			g.snapshot = snap
			g.loaded = true
			g.needsCTA = !snap.HasSubscription()
			g.mu.Unlock()
			return snap, err
		}
		g.mu.Lock()
		snap := g.snapshot
		g.mu.Unlock()
		return snap, err
	}

	snap := snapshotFromDashboard(data)

	g.mu.Lock()
	g.snapshot = snap
	g.loaded = true
	g.needsCTA = !snap.HasSubscription()
	g.mu.Unlock()

	g.writeMirror(ctx, snap)
	return snap, nil
}

// NeedsSubscriptionPrompt reports whether the last refresh found no plan and
// the UI should show the subscribe call to action.
func (g *Gate) NeedsSubscriptionPrompt() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.needsCTA
}

// snapshotFromDashboard derives the quota snapshot from the dashboard
// payload. No subscription collapses everything to zero even if the usage
// row carries stale figures.
func snapshotFromDashboard(data *platform.DashboardData) Snapshot {
	if !data.User.HasSubscription {
		return Snapshot{}
	}
	return Snapshot{
		MaxCharacters:       data.Usage.TotalCharacters,
		CharactersRemaining: data.Usage.CharactersRemaining,
	}
}

// Current returns the snapshot decisions are made against.
func (g *Gate) Current() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot
}

// CanGenerate decides whether a request of the given length fits the current
// snapshot. It never mutates state: the authoritative deduction happens
// server-side and lands in the next refresh.
func (g *Gate) CanGenerate(requestedLength int64) Decision {
	g.mu.Lock()
	snap := g.snapshot
	g.mu.Unlock()

	switch {
	case !snap.HasSubscription():
		return Decision{
			Reason:            ReasonNoActiveSubscription,
			RedirectToPricing: true,
			Requested:         requestedLength,
			Remaining:         0,
		}
	case snap.CharactersRemaining <= 0:
		return Decision{
			Reason:    ReasonQuotaExhausted,
			Requested: requestedLength,
			Remaining: 0,
		}
	case requestedLength > snap.CharactersRemaining:
		return Decision{
			Reason: fmt.Sprintf("text is %d characters but only %d remain in your quota",
				requestedLength, snap.CharactersRemaining),
			Requested: requestedLength,
			Remaining: snap.CharactersRemaining,
		}
	default:
		return Decision{
			Allowed:   true,
			Requested: requestedLength,
			Remaining: snap.CharactersRemaining,
		}
	}
}

// Severity classifies the remaining balance for display. Users without a
// subscription are critical by definition.
func (g *Gate) Severity() string {
	g.mu.Lock()
	snap := g.snapshot
	g.mu.Unlock()

	switch {
	case !snap.HasSubscription():
		return SeverityCritical
	case snap.CharactersRemaining < criticalBelow:
		return SeverityCritical
	case snap.CharactersRemaining < warningBelow:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}

// writeMirror persists used/limit to the KV store. Mirror failures are
// logged and swallowed: the mirror is best-effort.
func (g *Gate) writeMirror(ctx context.Context, snap Snapshot) {
	used := snap.MaxCharacters - snap.CharactersRemaining
	if used < 0 {
		used = 0
	}
	if err := g.store.Set(ctx, mirrorUsedKey, strconv.FormatInt(used, 10)); err != nil {
		g.logg.Error(ctx, "persist usage mirror (used)", err)
		return
	}
	if err := g.store.Set(ctx, mirrorLimitKey, strconv.FormatInt(snap.MaxCharacters, 10)); err != nil {
		g.logg.Error(ctx, "persist usage mirror (limit)", err)
	}
}

// loadMirror reads the fallback snapshot. Absent or malformed values mean no
// mirror.
func (g *Gate) loadMirror(ctx context.Context) (Snapshot, bool) {
	usedRaw, err := g.store.Get(ctx, mirrorUsedKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			g.logg.Error(ctx, "read usage mirror (used)", err)
		}
		return Snapshot{}, false
	}
	limitRaw, err := g.store.Get(ctx, mirrorLimitKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			g.logg.Error(ctx, "read usage mirror (limit)", err)
		}
		return Snapshot{}, false
	}

	used, err := strconv.ParseInt(usedRaw, 10, 64)
	if err != nil {
		return Snapshot{}, false
	}
	limit, err := strconv.ParseInt(limitRaw, 10, 64)
	if err != nil {
		return Snapshot{}, false
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Snapshot{MaxCharacters: limit, CharactersRemaining: remaining}, true
}
