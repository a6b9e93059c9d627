package models

import (
	"time"
)

const (
	VerificationStatusSuccess = "success"
	VerificationStatusNoMatch = "no_match"
	VerificationStatusFailed  = "failed"
)

// VerificationStatus is the single authoritative "current status" row per
// user. The store never enforces ExpiresAt; readers compare it against the
// clock.
type VerificationStatus struct {
	UserID            string     `db:"user_id"`
	Verified          bool       `db:"verified"`
	RequestID         string     `db:"request_id"`
	FullName          string     `db:"full_name"`
	DateOfBirth       string     `db:"dob"`
	OverallSimilarity float64    `db:"overall_similarity"`
	VerifiedAt        *time.Time `db:"verified_at"`
	ExpiresAt         *time.Time `db:"expires_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// VerificationAttempt is one append-only audit row, written for every
// completed attempt including failures.
type VerificationAttempt struct {
	ID                     string    `db:"id"`
	RequestID              string    `db:"request_id"`
	UserID                 string    `db:"user_id"`
	Status                 string    `db:"status"`
	FaceResults            []byte    `db:"face_results"`
	ExtractedName          string    `db:"extracted_name"`
	ExtractedDOB           string    `db:"extracted_dob"`
	SecondaryExtractedName string    `db:"secondary_extracted_name"`
	NameCrossMatch         bool      `db:"name_cross_match"`
	OverallSimilarity      float64   `db:"overall_similarity"`
	ErrorDetail            string    `db:"error_detail"`
	SelfieURL              string    `db:"selfie_url"`
	PrimaryURL             string    `db:"primary_url"`
	SecondaryURL           string    `db:"secondary_url"`
	CreatedAt              time.Time `db:"created_at"`
}
