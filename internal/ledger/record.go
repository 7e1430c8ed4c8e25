package ledger

import "time"

// Status is the lifecycle state of a subscription record. Once Expired a
// record never returns to Active here; renewal happens upstream.
type Status string

const (
	StatusActive  Status = "Active"
	StatusExpired Status = "Expired"
)

// Source distinguishes the fixed demo records from ones created at runtime.
// Only user records are persisted; seed records reappear identically on every
// fresh load.
type Source string

const (
	SourceSeed Source = "seed"
	SourceUser Source = "user"
)

// DateLayout is the calendar-date format used for start and expiry dates.
const DateLayout = "2006-01-02"

// Record is a per-user token subscription tracked by the ledger.
type Record struct {
	ID         int        `json:"id"`
	Email      string     `json:"email"`
	Plan       string     `json:"plan"`
	Tokens     int        `json:"tokens"`
	StartDate  string     `json:"start_date"`
	ExpiryDate string     `json:"expiry_date"`
	Status     Status     `json:"status"`
	Source     Source     `json:"source"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// expiredAt reports whether the record's expiry date has passed at the given
// instant. An unparsable date never expires, matching the observed behavior
// of the legacy simulator.
func (r Record) expiredAt(now time.Time) bool {
	expiry, err := time.Parse(DateLayout, r.ExpiryDate)
	if err != nil {
		return false
	}
	return now.After(expiry)
}

// DefaultSeeds returns the fixed demo records merged in when the persisted
// set is empty or on every load alongside user records.
func DefaultSeeds() []Record {
	return []Record{
		{
			ID:         1,
			Email:      "john@example.com",
			Plan:       "Middle Plan",
			Tokens:     450,
			StartDate:  "2025-01-01",
			ExpiryDate: "2025-02-01",
			Status:     StatusActive,
			Source:     SourceSeed,
		},
		{
			ID:         2,
			Email:      "sarah@example.com",
			Plan:       "High Plan",
			Tokens:     800,
			StartDate:  "2025-01-05",
			ExpiryDate: "2025-02-05",
			Status:     StatusActive,
			Source:     SourceSeed,
		},
	}
}
