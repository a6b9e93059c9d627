package verify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prelink-app/identity/internal/docparse"
	"github.com/prelink-app/identity/internal/face"
	"github.com/prelink-app/identity/internal/fault"
	"github.com/prelink-app/identity/internal/image"
	"github.com/prelink-app/identity/internal/mocks"
	"github.com/prelink-app/identity/internal/models"
)

var (
	selfieBytes    = []byte("selfie-image")
	primaryBytes   = []byte("primary-document-image")
	secondaryBytes = []byte("secondary-document-image")
)

func inlineRef(data []byte) image.Ref {
	return image.Ref{Base64: base64.StdEncoding.EncodeToString(data)}
}

const passportText = "PASSPORT\nP<GBRDOE<<JANE<ELIZABETH<<<<<<<<<<<<<<<<<<<<\nDate of birth 02/05/1999\n"

func newTestEngine(comparer *mocks.MockComparer, extractor *mocks.MockExtractor, store *mocks.MockVerificationRepo, producer *mocks.MockProducer) *Engine {
	return New(&Engine{
		Comparer:   comparer,
		Extractor:  extractor,
		Store:      store,
		Producer:   producer,
		Thresholds: Thresholds{Default: 93},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func baseRequest() *Request {
	return &Request{
		UserID:      "user-1",
		NotifyEmail: "jane@example.org",
		Selfie:      inlineRef(selfieBytes),
		Primary: Document{
			Image: inlineRef(primaryBytes),
			Type:  docparse.DocumentPassport,
		},
		ClaimedName: "Jane Elizabeth Doe",
		ClaimedDOB:  "1999-05-02",
	}
}

func TestVerifySuccessSingleDocument(t *testing.T) {
	comparer := new(mocks.MockComparer)
	extractor := new(mocks.MockExtractor)
	store := new(mocks.MockVerificationRepo)
	producer := new(mocks.MockProducer)

	comparer.On("Compare", mock.Anything, selfieBytes, primaryBytes, 93.0).Return(95.5, nil)
	extractor.On("ExtractText", mock.Anything, primaryBytes).Return(passportText, nil)
	store.On("AppendHistory", mock.Anything).Return(&models.VerificationAttempt{}, nil)
	store.On("UpsertCurrent", mock.Anything).Return(nil)
	producer.On("ProduceMessage", VerificationSuccessTopic, mock.Anything).Return(nil)

	engine := newTestEngine(comparer, extractor, store, producer)

	outcome, err := engine.Verify(context.Background(), baseRequest())
	require.NoError(t, err)

	require.Equal(t, models.VerificationStatusSuccess, outcome.Status)
	require.NotEmpty(t, outcome.RequestID)
	require.Len(t, outcome.FaceResults, 1)
	comparer.AssertNumberOfCalls(t, "Compare", 1)
	require.Equal(t, face.PairSelfiePrimary, outcome.FaceResults[0].Pair)
	require.True(t, outcome.FaceResults[0].Passed)
	require.Equal(t, 95.5, outcome.OverallSimilarity)
	require.Equal(t, "JANE ELIZABETH DOE", outcome.ExtractedName)
	require.Equal(t, "1999-05-02", outcome.ExtractedDOB)

	require.NotNil(t, outcome.ExpiresAt)
	require.WithinDuration(t, time.Now().UTC().Add(365*24*time.Hour), *outcome.ExpiresAt, time.Minute)

	store.AssertCalled(t, "UpsertCurrent", mock.MatchedBy(func(status *models.VerificationStatus) bool {
		return status.UserID == "user-1" &&
			status.Verified &&
			status.FullName == "Jane Elizabeth Doe" &&
			status.DateOfBirth == "1999-05-02" &&
			status.VerifiedAt != nil &&
			status.ExpiresAt != nil
	}))
	producer.AssertExpectations(t)
}

func TestVerifyThreeComparisonsOverallIsMinimum(t *testing.T) {
	comparer := new(mocks.MockComparer)
	extractor := new(mocks.MockExtractor)
	store := new(mocks.MockVerificationRepo)
	producer := new(mocks.MockProducer)

	comparer.On("Compare", mock.Anything, selfieBytes, primaryBytes, 93.0).Return(97.2, nil)
	comparer.On("Compare", mock.Anything, selfieBytes, secondaryBytes, 93.0).Return(95.1, nil)
	// The threshold is inclusive; an exact hit still passes.
	comparer.On("Compare", mock.Anything, primaryBytes, secondaryBytes, 93.0).Return(93.0, nil)

	extractor.On("ExtractText", mock.Anything, primaryBytes).Return(passportText, nil)
	extractor.On("ExtractText", mock.Anything, secondaryBytes).Return("EXAMPLE UNIVERSITY\nJane Doe\nStudent\n", nil)

	store.On("AppendHistory", mock.Anything).Return(&models.VerificationAttempt{}, nil)
	store.On("UpsertCurrent", mock.Anything).Return(nil)
	producer.On("ProduceMessage", VerificationSuccessTopic, mock.Anything).Return(nil)

	engine := newTestEngine(comparer, extractor, store, producer)

	req := baseRequest()
	secondary := inlineRef(secondaryBytes)
	req.Secondary = &secondary

	outcome, err := engine.Verify(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, models.VerificationStatusSuccess, outcome.Status)
	require.Len(t, outcome.FaceResults, 3)
	require.Equal(t, 93.0, outcome.OverallSimilarity)
	require.True(t, outcome.NameCrossMatch)
	require.Equal(t, "Jane Doe", outcome.SecondaryExtractedName)
	comparer.AssertNumberOfCalls(t, "Compare", 3)
}

func TestVerifyBelowThresholdIsNoMatch(t *testing.T) {
	comparer := new(mocks.MockComparer)
	extractor := new(mocks.MockExtractor)
	store := new(mocks.MockVerificationRepo)
	producer := new(mocks.MockProducer)

	comparer.On("Compare", mock.Anything, selfieBytes, primaryBytes, 93.0).Return(92.9, nil)
	extractor.On("ExtractText", mock.Anything, primaryBytes).Return(passportText, nil)
	store.On("AppendHistory", mock.Anything).Return(&models.VerificationAttempt{}, nil)
	store.On("UpsertCurrent", mock.Anything).Return(nil)

	engine := newTestEngine(comparer, extractor, store, producer)

	outcome, err := engine.Verify(context.Background(), baseRequest())
	require.NoError(t, err)

	require.Equal(t, models.VerificationStatusNoMatch, outcome.Status)
	require.False(t, outcome.FaceResults[0].Passed)
	require.Nil(t, outcome.ExpiresAt)

	store.AssertCalled(t, "UpsertCurrent", mock.MatchedBy(func(status *models.VerificationStatus) bool {
		return !status.Verified && status.VerifiedAt == nil && status.FullName == ""
	}))
	// Definitive negatives are not published anywhere.
	producer.AssertNotCalled(t, "ProduceMessage", mock.Anything, mock.Anything)
}

func TestVerifyEmptyExtractionIsNoMatch(t *testing.T) {
	comparer := new(mocks.MockComparer)
	extractor := new(mocks.MockExtractor)
	store := new(mocks.MockVerificationRepo)
	producer := new(mocks.MockProducer)

	comparer.On("Compare", mock.Anything, selfieBytes, primaryBytes, 93.0).Return(99.0, nil)
	extractor.On("ExtractText", mock.Anything, primaryBytes).Return("", nil)
	store.On("AppendHistory", mock.Anything).Return(&models.VerificationAttempt{}, nil)
	store.On("UpsertCurrent", mock.Anything).Return(nil)

	engine := newTestEngine(comparer, extractor, store, producer)

	outcome, err := engine.Verify(context.Background(), baseRequest())
	require.NoError(t, err)

	require.Equal(t, models.VerificationStatusNoMatch, outcome.Status)
	require.Empty(t, outcome.ExtractedName)
	require.True(t, outcome.FaceResults[0].Passed)
}

func TestVerifyInputFaultDegradesPair(t *testing.T) {
	comparer := new(mocks.MockComparer)
	extractor := new(mocks.MockExtractor)
	store := new(mocks.MockVerificationRepo)
	producer := new(mocks.MockProducer)

	comparer.On("Compare", mock.Anything, selfieBytes, primaryBytes, 93.0).
		Return(float64(0), fault.Input("rekognition.compare_faces", errors.New("no face detected in source image")))
	extractor.On("ExtractText", mock.Anything, primaryBytes).Return(passportText, nil)
	store.On("AppendHistory", mock.Anything).Return(&models.VerificationAttempt{}, nil)
	store.On("UpsertCurrent", mock.Anything).Return(nil)

	engine := newTestEngine(comparer, extractor, store, producer)

	outcome, err := engine.Verify(context.Background(), baseRequest())
	require.NoError(t, err)

	require.Equal(t, models.VerificationStatusNoMatch, outcome.Status)
	require.Len(t, outcome.FaceResults, 1)
	require.False(t, outcome.FaceResults[0].Passed)
	require.Zero(t, outcome.FaceResults[0].Similarity)
	require.Contains(t, outcome.FaceResults[0].Note, "no face detected")
}

func TestVerifyTransientFailureIsRecordedNotReturned(t *testing.T) {
	comparer := new(mocks.MockComparer)
	extractor := new(mocks.MockExtractor)
	store := new(mocks.MockVerificationRepo)
	producer := new(mocks.MockProducer)

	comparer.On("Compare", mock.Anything, selfieBytes, primaryBytes, 93.0).
		Return(float64(0), fault.Transient("rekognition.compare_faces", errors.New("service unavailable")))
	extractor.On("ExtractText", mock.Anything, primaryBytes).Return(passportText, nil).Maybe()
	store.On("AppendHistory", mock.Anything).Return(&models.VerificationAttempt{}, nil)
	producer.On("ProduceMessage", VerificationFailedTopic, mock.Anything).Return(nil)

	engine := newTestEngine(comparer, extractor, store, producer)

	outcome, err := engine.Verify(context.Background(), baseRequest())
	require.NoError(t, err)

	require.Equal(t, models.VerificationStatusFailed, outcome.Status)
	require.Equal(t, fault.CodeTransient, outcome.ErrorCode)
	require.Contains(t, outcome.ErrorDetail, "service unavailable")

	// A failed attempt is audit-only; the current status row is untouched.
	store.AssertCalled(t, "AppendHistory", mock.Anything)
	store.AssertNotCalled(t, "UpsertCurrent", mock.Anything)
	producer.AssertExpectations(t)
}

func TestVerifyTimeoutCode(t *testing.T) {
	comparer := new(mocks.MockComparer)
	extractor := new(mocks.MockExtractor)
	store := new(mocks.MockVerificationRepo)
	producer := new(mocks.MockProducer)

	comparer.On("Compare", mock.Anything, selfieBytes, primaryBytes, 93.0).
		Return(float64(0), fault.Transient("rekognition.compare_faces", context.DeadlineExceeded))
	extractor.On("ExtractText", mock.Anything, primaryBytes).Return(passportText, nil).Maybe()
	store.On("AppendHistory", mock.Anything).Return(&models.VerificationAttempt{}, nil)
	producer.On("ProduceMessage", VerificationFailedTopic, mock.Anything).Return(nil)

	engine := newTestEngine(comparer, extractor, store, producer)

	outcome, err := engine.Verify(context.Background(), baseRequest())
	require.NoError(t, err)

	require.Equal(t, models.VerificationStatusFailed, outcome.Status)
	require.Equal(t, fault.CodeTimeout, outcome.ErrorCode)
}

func TestVerifyValidationRejectsBeforeAnyCall(t *testing.T) {
	comparer := new(mocks.MockComparer)
	extractor := new(mocks.MockExtractor)
	store := new(mocks.MockVerificationRepo)
	producer := new(mocks.MockProducer)

	engine := newTestEngine(comparer, extractor, store, producer)

	req := baseRequest()
	req.Selfie = image.Ref{}
	req.ClaimedDOB = ""

	outcome, err := engine.Verify(context.Background(), req)
	require.Nil(t, outcome)
	require.True(t, fault.IsValidation(err))

	var validationErr *fault.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Fields, 2)

	comparer.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "AppendHistory", mock.Anything)
}

func TestVerifyExtractOnlyAdoptsParsedFields(t *testing.T) {
	comparer := new(mocks.MockComparer)
	extractor := new(mocks.MockExtractor)
	store := new(mocks.MockVerificationRepo)
	producer := new(mocks.MockProducer)

	comparer.On("Compare", mock.Anything, selfieBytes, primaryBytes, 93.0).Return(96.0, nil)
	extractor.On("ExtractText", mock.Anything, primaryBytes).Return(passportText, nil)
	store.On("AppendHistory", mock.Anything).Return(&models.VerificationAttempt{}, nil)
	store.On("UpsertCurrent", mock.Anything).Return(nil)
	producer.On("ProduceMessage", VerificationSuccessTopic, mock.Anything).Return(nil)

	engine := newTestEngine(comparer, extractor, store, producer)

	req := baseRequest()
	req.ClaimedName = ""
	req.ClaimedDOB = ""
	req.ExtractOnly = true

	outcome, err := engine.Verify(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, models.VerificationStatusSuccess, outcome.Status)

	store.AssertCalled(t, "UpsertCurrent", mock.MatchedBy(func(status *models.VerificationStatus) bool {
		return status.FullName == "JANE ELIZABETH DOE" && status.DateOfBirth == "1999-05-02"
	}))
}

func TestVerifySuccessEventPayload(t *testing.T) {
	comparer := new(mocks.MockComparer)
	extractor := new(mocks.MockExtractor)
	store := new(mocks.MockVerificationRepo)
	producer := new(mocks.MockProducer)

	comparer.On("Compare", mock.Anything, selfieBytes, primaryBytes, 93.0).Return(95.5, nil)
	extractor.On("ExtractText", mock.Anything, primaryBytes).Return(passportText, nil)
	store.On("AppendHistory", mock.Anything).Return(&models.VerificationAttempt{}, nil)
	store.On("UpsertCurrent", mock.Anything).Return(nil)

	var published string
	producer.On("ProduceMessage", VerificationSuccessTopic, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.String(1)
		}).
		Return(nil)

	engine := newTestEngine(comparer, extractor, store, producer)

	outcome, err := engine.Verify(context.Background(), baseRequest())
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(published), &event))
	require.Equal(t, outcome.RequestID, event.RequestID)
	require.Equal(t, "jane@example.org", event.Email)
	require.Equal(t, "Jane Elizabeth Doe", event.Name)
	require.True(t, event.Verified)
	require.NotNil(t, event.ExpiresAt)
}

func TestThresholdOverrides(t *testing.T) {
	thresholds := Thresholds{Default: 93, PrimarySecondary: 80}

	require.Equal(t, 93.0, thresholds.For(face.PairSelfiePrimary))
	require.Equal(t, 93.0, thresholds.For(face.PairSelfieSecondary))
	require.Equal(t, 80.0, thresholds.For(face.PairPrimarySecondary))
}
