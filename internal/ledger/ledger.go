package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocalize-ai/vocalize-backend/pkg/kvstore"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

// DefaultStorageKey is the key the user record subset is persisted under.
const DefaultStorageKey = "ledger:subscriptions"

// Consume/eligibility reason strings surfaced directly to the UI.
const (
	ReasonNoActiveSubscription = "no active subscription found"
	ReasonNoSubscription       = "no subscription found"
	ReasonNotActive            = "subscription not active"
	ReasonNoTokens             = "no tokens remaining"
	ReasonExpired              = "subscription expired"
)

// ConsumeResult is the structured outcome of a token consumption attempt.
// Business refusals are results, not errors.
type ConsumeResult struct {
	OK              bool   `json:"ok"`
	Reason          string `json:"reason,omitempty"`
	TokensRemaining int    `json:"tokens_remaining"`
	Status          Status `json:"status,omitempty"`
}

// Eligibility is the outcome of a service eligibility check.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
	Tokens   int    `json:"tokens"`
}

// CreateRecordInput captures a runtime-created subscription record.
type CreateRecordInput struct {
	Email      string
	Plan       string
	Tokens     int
	StartDate  string
	ExpiryDate string
}

// Options configure a Ledger instance.
type Options struct {
	Store      kvstore.Store
	Logger     *logger.Logger
	StorageKey string
	Seeds      []Record
	Now        func() time.Time
}

// Ledger is the in-memory registry of subscription records, persisted to a
// flat key-value store. One instance owns the record list; every
// read-modify-write runs under the mutex so a consume call and the sweep
// cannot interleave.
type Ledger struct {
	mu         sync.Mutex
	store      kvstore.Store
	logg       *logger.Logger
	storageKey string
	now        func() time.Time
	records    []*Record
	nextID     int
}

// New builds a ledger, rehydrating persisted user records and prepending the
// seed set. A storage read or parse failure yields an empty persisted set
// rather than an error.
func New(ctx context.Context, opts Options) (*Ledger, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	key := opts.StorageKey
	if key == "" {
		key = DefaultStorageKey
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	l := &Ledger{
		store:      opts.Store,
		logg:       opts.Logger,
		storageKey: key,
		now:        now,
		nextID:     1,
	}

	for _, seed := range opts.Seeds {
		record := seed
		record.Source = SourceSeed
		l.records = append(l.records, &record)
		if record.ID >= l.nextID {
			l.nextID = record.ID + 1
		}
	}

	for _, stored := range l.loadPersisted(ctx) {
		record := stored
		record.Source = SourceUser
		l.records = append(l.records, &record)
		if record.ID >= l.nextID {
			l.nextID = record.ID + 1
		}
	}

	return l, nil
}

func (l *Ledger) loadPersisted(ctx context.Context) []Record {
	raw, err := l.store.Get(ctx, l.storageKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			l.logg.Warn(ctx, "ledger storage read failed, starting from seeds only")
		}
		return nil
	}
	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		l.logg.Warn(ctx, "ledger storage value malformed, treating as absent")
		return nil
	}
	return records
}

// persist writes the user record subset under the storage key. Seed records
// are never persisted.
func (l *Ledger) persist(ctx context.Context) error {
	userRecords := make([]Record, 0, len(l.records))
	for _, record := range l.records {
		if record.Source == SourceUser {
			userRecords = append(userRecords, *record)
		}
	}
	payload, err := json.Marshal(userRecords)
	if err != nil {
		return fmt.Errorf("marshal ledger records: %w", err)
	}
	if err := l.store.Set(ctx, l.storageKey, string(payload)); err != nil {
		return fmt.Errorf("persist ledger records: %w", err)
	}
	return nil
}

// Consume decrements one token from the first Active record matching email.
// Reaching zero flips the record to Expired in the same operation. The
// returned error is reserved for storage failures; refusals come back in the
// result.
func (l *Ledger) Consume(ctx context.Context, email string) (ConsumeResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var match *Record
	for _, record := range l.records {
		if record.Email == email && record.Status == StatusActive {
			match = record
			break
		}
	}
	if match == nil {
		return ConsumeResult{OK: false, Reason: ReasonNoActiveSubscription}, nil
	}

	if match.Tokens <= 0 {
		// Defensive path; callers are expected to check eligibility first.
		prevStatus := match.Status
		match.Status = StatusExpired
		if err := l.persist(ctx); err != nil {
			match.Status = prevStatus
			return ConsumeResult{}, err
		}
		return ConsumeResult{OK: false, Reason: ReasonNoTokens, Status: StatusExpired}, nil
	}

	prevTokens, prevStatus := match.Tokens, match.Status
	match.Tokens--
	if match.Tokens == 0 {
		match.Status = StatusExpired
	}
	if err := l.persist(ctx); err != nil {
		match.Tokens, match.Status = prevTokens, prevStatus
		return ConsumeResult{}, err
	}

	return ConsumeResult{
		OK:              true,
		TokensRemaining: match.Tokens,
		Status:          match.Status,
	}, nil
}

// Info returns the first record matching email, without side effects.
func (l *Ledger) Info(email string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, record := range l.records {
		if record.Email == email {
			return *record, true
		}
	}
	return Record{}, false
}

// Eligibility is the pure, read-only service eligibility check. It reports a
// past-expiry record as ineligible but does not flip its status; use
// EvaluateEligibility for the mutating variant.
func (l *Ledger) Eligibility(email string) Eligibility {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, verdict := l.evaluate(email)
	return verdict
}

// EvaluateEligibility performs the eligibility check and, when the record is
// past its expiry date, flips it to Expired and persists the change.
func (l *Ledger) EvaluateEligibility(ctx context.Context, email string) (Eligibility, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, verdict := l.evaluate(email)
	if record != nil && verdict.Reason == ReasonExpired && record.Status != StatusExpired {
		prevStatus := record.Status
		record.Status = StatusExpired
		if err := l.persist(ctx); err != nil {
			record.Status = prevStatus
			return Eligibility{}, err
		}
	}
	return verdict, nil
}

// evaluate applies the eligibility rules against the injected clock. Caller
// holds the mutex.
func (l *Ledger) evaluate(email string) (*Record, Eligibility) {
	var match *Record
	for _, record := range l.records {
		if record.Email == email {
			match = record
			break
		}
	}
	if match == nil {
		return nil, Eligibility{Eligible: false, Reason: ReasonNoSubscription}
	}
	if match.Status != StatusActive {
		return match, Eligibility{Eligible: false, Reason: ReasonNotActive}
	}
	if match.Tokens <= 0 {
		return match, Eligibility{Eligible: false, Reason: ReasonNoTokens}
	}
	if match.expiredAt(l.now()) {
		return match, Eligibility{Eligible: false, Reason: ReasonExpired}
	}
	return match, Eligibility{Eligible: true, Tokens: match.Tokens}
}

// Create registers a runtime subscription record. Duplicate emails are not
// rejected; lookups always take the first match.
func (l *Ledger) Create(ctx context.Context, input CreateRecordInput) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if input.Email == "" {
		return Record{}, fmt.Errorf("email is required")
	}
	if input.Tokens < 0 {
		return Record{}, fmt.Errorf("tokens must be non-negative")
	}

	createdAt := l.now()
	record := &Record{
		ID:         l.nextID,
		Email:      input.Email,
		Plan:       input.Plan,
		Tokens:     input.Tokens,
		StartDate:  input.StartDate,
		ExpiryDate: input.ExpiryDate,
		Status:     StatusActive,
		Source:     SourceUser,
		CreatedAt:  &createdAt,
	}
	l.nextID++
	l.records = append(l.records, record)

	if err := l.persist(ctx); err != nil {
		l.records = l.records[:len(l.records)-1]
		l.nextID--
		return Record{}, err
	}
	return *record, nil
}

// Sweep flips every Active record past its expiry date to Expired and
// persists the user subset once, whether or not anything changed. It returns
// the number of records expired.
func (l *Ledger) Sweep(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var flipped []*Record
	for _, record := range l.records {
		if record.Status == StatusActive && record.expiredAt(now) {
			record.Status = StatusExpired
			flipped = append(flipped, record)
		}
	}
	if err := l.persist(ctx); err != nil {
		for _, record := range flipped {
			record.Status = StatusActive
		}
		return 0, err
	}
	return len(flipped), nil
}

// Records returns a copy of every record currently in the ledger.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, 0, len(l.records))
	for _, record := range l.records {
		out = append(out, *record)
	}
	return out
}
