// Package verify implements the identity verification pipeline: concurrent
// face comparisons and OCR extraction, one decision, one durable outcome.
package verify

import (
	"time"

	"github.com/prelink-app/identity/internal/docparse"
	"github.com/prelink-app/identity/internal/face"
	"github.com/prelink-app/identity/internal/image"
)

// Topics published by the engine and consumed by the notification workers.
const (
	VerificationSuccessTopic = "identity.verification.success"
	VerificationFailedTopic  = "identity.verification.failed"
)

type Document struct {
	Image image.Ref
	Type  docparse.DocumentType
}

// Request is one verification attempt as submitted by the client. UserID,
// Selfie and Primary are always required; ClaimedName and ClaimedDOB are
// required unless ExtractOnly is set, in which case the engine adopts the
// fields it parses from the primary document.
type Request struct {
	UserID      string
	NotifyEmail string
	Selfie      image.Ref
	Primary     Document
	Secondary   *image.Ref
	ClaimedName string
	ClaimedDOB  string
	ExtractOnly bool
}

// Outcome is the single, immutable result of one attempt. The engine is the
// only component that constructs it.
type Outcome struct {
	UserID                 string
	RequestID              string
	Timestamp              time.Time
	Status                 string
	FaceResults            []face.Result
	ExtractedName          string
	ExtractedDOB           string
	SecondaryExtractedName string
	NameCrossMatch         bool
	OverallSimilarity      float64
	ErrorDetail            string
	ErrorCode              string
	ExpiresAt              *time.Time
}

// Event is the message published to Kafka after an outcome is recorded.
type Event struct {
	UserID            string     `json:"user_id"`
	RequestID         string     `json:"request_id"`
	Status            string     `json:"status"`
	Email             string     `json:"email,omitempty"`
	Name              string     `json:"name,omitempty"`
	Verified          bool       `json:"verified"`
	OverallSimilarity float64    `json:"overall_similarity"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	ErrorDetail       string     `json:"error_detail,omitempty"`
}

// Thresholds carries the similarity floors. Default applies to every pair;
// a non-zero per-pair value overrides it. The floors are deployment
// configuration, never per-call parameters.
type Thresholds struct {
	Default          float64
	SelfiePrimary    float64
	SelfieSecondary  float64
	PrimarySecondary float64
}

func (t Thresholds) For(pair face.Pair) float64 {
	var override float64

	switch pair {
	case face.PairSelfiePrimary:
		override = t.SelfiePrimary
	case face.PairSelfieSecondary:
		override = t.SelfieSecondary
	case face.PairPrimarySecondary:
		override = t.PrimarySecondary
	}

	if override > 0 {
		return override
	}
	return t.Default
}
