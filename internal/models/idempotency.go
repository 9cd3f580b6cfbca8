package models

import "time"

// IdempotencyKey is the row shape of the idempotency_keys table.
type IdempotencyKey struct {
	Scope              string    `db:"scope"`
	IdemKey            string    `db:"idem_key"`
	RequestFingerprint string    `db:"request_fingerprint"`
	State              string    `db:"state"`
	ResultSnapshot     []byte    `db:"result_snapshot"`
	CreatedAt          time.Time `db:"created_at"`
	ExpiresAt          time.Time `db:"expires_at"`
	LockedUntil        time.Time `db:"locked_until"`
}
