package domain

import (
	"encoding/json"
	"time"
)

// IdempotencyState marks whether the guarded operation has finished.
type IdempotencyState string

const (
	IdempotencyInProgress IdempotencyState = "IN_PROGRESS"
	IdempotencyCompleted  IdempotencyState = "COMPLETED"
)

// IdempotencyRecord remembers the first request seen for a (Scope, Key) pair and,
// once it has finished, the outcome every replay must receive.
type IdempotencyRecord struct {
	Scope              string           `json:"scope"` // userID + ":" + endpoint
	Key                string           `json:"key"`
	RequestFingerprint string           `json:"requestFingerprint"`
	State              IdempotencyState `json:"state"`
	ResultSnapshot     json.RawMessage  `json:"resultSnapshot,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	ExpiresAt          time.Time        `json:"expiresAt"`
	LockedUntil        time.Time        `json:"lockedUntil"`
}

// IsStale reports whether an in-progress record has outlived its lock and may be reclaimed.
func (r IdempotencyRecord) IsStale(now time.Time) bool {
	return r.State == IdempotencyInProgress && now.After(r.LockedUntil)
}

// ResultSnapshot is the stored outcome of a guarded operation: either a result or a
// terminal typed error, never both.
type ResultSnapshot struct {
	Transaction  *Transaction       `json:"transaction,omitempty"`
	LoanPayment  *LoanPaymentResult `json:"loanPayment,omitempty"`
	ErrorCode    string             `json:"errorCode,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
}

// IsError reports whether the snapshot records a failure.
func (s ResultSnapshot) IsError() bool {
	return s.ErrorCode != ""
}

// IdempotencyOutcome is returned by Begin. When Fresh is true the caller owns the key and
// must call Complete or Release; otherwise Snapshot holds the stored outcome.
type IdempotencyOutcome struct {
	Fresh    bool
	Snapshot *ResultSnapshot
}
