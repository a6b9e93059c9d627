package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/prelink-app/identity/internal/docparse"
	"github.com/prelink-app/identity/internal/face"
	"github.com/prelink-app/identity/internal/fault"
	"github.com/prelink-app/identity/internal/image"
	"github.com/prelink-app/identity/internal/models"
	"github.com/prelink-app/identity/internal/ocr"
)

// OutcomeStore persists outcomes. History is appended for every completed
// attempt; the current-status row is only overwritten by definitive
// outcomes, so a failed attempt never displaces a prior success.
type OutcomeStore interface {
	UpsertCurrent(status *models.VerificationStatus) error
	AppendHistory(attempt *models.VerificationAttempt) (*models.VerificationAttempt, error)
}

type Producer interface {
	ProduceMessage(topic, message string) error
}

type Engine struct {
	Comparer   face.Comparer
	Extractor  ocr.Extractor
	Fetcher    *image.Fetcher
	Store      OutcomeStore
	Producer   Producer
	Thresholds Thresholds
	Timeout    time.Duration
	Validity   time.Duration
	Logger     *slog.Logger
}

func New(engine *Engine) *Engine {
	if engine.Timeout <= 0 {
		engine.Timeout = 60 * time.Second
	}
	if engine.Validity <= 0 {
		engine.Validity = 365 * 24 * time.Hour
	}
	if engine.Fetcher == nil {
		engine.Fetcher = image.NewFetcher(30 * time.Second)
	}
	return engine
}

// Verify runs one attempt end to end. Validation failures are returned as an
// error before a request id is minted or any external call is made; every
// other path produces a recorded Outcome and a nil error, including
// infrastructure failures (Status failed) and definitive negatives
// (Status no_match). The engine never retries; retrying is caller policy.
func (e *Engine) Verify(ctx context.Context, req *Request) (*Outcome, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	now := time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	logger := e.Logger.With("request_id", requestID, "user_id", req.UserID)

	images, err := e.resolveImages(ctx, req)
	if err != nil {
		return e.recordFailure(req, requestID, now, nil, err)
	}

	gathered, err := e.gather(ctx, req, images)
	if err != nil {
		return e.recordFailure(req, requestID, now, gathered.completedResults(), err)
	}

	outcome := e.decide(req, requestID, now, gathered)

	if err := e.persist(req, outcome); err != nil {
		logger.Error("failed to persist verification outcome", "error", err)
		return nil, err
	}

	e.publish(req, outcome)

	logger.Info("verification completed",
		"status", outcome.Status,
		"overall_similarity", outcome.OverallSimilarity,
	)

	return outcome, nil
}

func validate(req *Request) error {
	var fields []string

	if req.UserID == "" {
		fields = append(fields, "user id is required")
	}
	if req.Selfie.IsZero() {
		fields = append(fields, "selfie image is required")
	}
	if req.Primary.Image.IsZero() {
		fields = append(fields, "primary document image is required")
	}
	if !docparse.ValidDocumentType(req.Primary.Type) {
		fields = append(fields, "primary document type is invalid")
	}
	if !req.ExtractOnly {
		if req.ClaimedName == "" {
			fields = append(fields, "claimed name is required")
		}
		if req.ClaimedDOB == "" {
			fields = append(fields, "claimed date of birth is required")
		}
	}

	if len(fields) > 0 {
		return fault.Validation(fields)
	}

	return nil
}

type resolvedImages struct {
	selfie    []byte
	primary   []byte
	secondary []byte
}

func (e *Engine) resolveImages(ctx context.Context, req *Request) (*resolvedImages, error) {
	images := &resolvedImages{}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := e.Fetcher.Resolve(ctx, req.Selfie)
		images.selfie = data
		return err
	})
	g.Go(func() error {
		data, err := e.Fetcher.Resolve(ctx, req.Primary.Image)
		images.primary = data
		return err
	})
	if req.Secondary != nil {
		g.Go(func() error {
			data, err := e.Fetcher.Resolve(ctx, *req.Secondary)
			images.secondary = data
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return images, nil
}

type gatherResult struct {
	// One slot per possible pair, in decision order. Unrequested pairs
	// stay nil.
	pairs           [3]*face.Result
	primaryFields   docparse.Fields
	secondaryFields docparse.Fields
}

func (g *gatherResult) completedResults() []face.Result {
	var results []face.Result
	for _, r := range g.pairs {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}

// gather fans out every independent remote operation and joins on all of
// them. The subtasks share no mutable state beyond their own slots, so no
// locking is needed. A transient fault from any subtask cancels the rest
// through the group context and aborts the attempt.
func (e *Engine) gather(ctx context.Context, req *Request, images *resolvedImages) (*gatherResult, error) {
	gathered := &gatherResult{}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(e.comparePair(ctx, face.PairSelfiePrimary, images.selfie, images.primary, &gathered.pairs[0]))

	if req.Secondary != nil {
		g.Go(e.comparePair(ctx, face.PairSelfieSecondary, images.selfie, images.secondary, &gathered.pairs[1]))
		g.Go(e.comparePair(ctx, face.PairPrimarySecondary, images.primary, images.secondary, &gathered.pairs[2]))
	}

	g.Go(func() error {
		fields, err := e.extractFields(ctx, images.primary, req.Primary.Type)
		if err != nil {
			return err
		}
		gathered.primaryFields = fields
		return nil
	})

	if req.Secondary != nil {
		g.Go(func() error {
			fields, err := e.extractFields(ctx, images.secondary, docparse.DocumentInstitutionCard)
			if err != nil {
				return err
			}
			gathered.secondaryFields = fields
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return gathered, err
	}

	return gathered, nil
}

// comparePair returns a closure that always fills its result slot. An input
// fault (no face found, unreadable image) degrades the pair to a zero
// similarity with a note instead of aborting the attempt.
func (e *Engine) comparePair(ctx context.Context, pair face.Pair, source, target []byte, slot **face.Result) func() error {
	return func() error {
		threshold := e.Thresholds.For(pair)

		similarity, err := e.Comparer.Compare(ctx, source, target, threshold)
		if err != nil {
			if fault.IsInput(err) {
				*slot = &face.Result{Pair: pair, Similarity: 0, Passed: false, Note: err.Error()}
				return nil
			}
			return err
		}

		*slot = &face.Result{
			Pair:       pair,
			Similarity: similarity,
			Passed:     similarity >= threshold,
		}
		return nil
	}
}

func (e *Engine) extractFields(ctx context.Context, img []byte, docType docparse.DocumentType) (docparse.Fields, error) {
	text, err := e.Extractor.ExtractText(ctx, img)
	if err != nil {
		if fault.IsInput(err) {
			// The OCR ran but found nothing usable; treat as empty text.
			return docparse.Fields{}, nil
		}
		return docparse.Fields{}, err
	}

	return docparse.Parse(text, docType), nil
}

func (e *Engine) decide(req *Request, requestID string, now time.Time, gathered *gatherResult) *Outcome {
	results := gathered.completedResults()

	allPassed := true
	overall := 0.0
	for i, r := range results {
		if !r.Passed {
			allPassed = false
		}
		if i == 0 || r.Similarity < overall {
			overall = r.Similarity
		}
	}

	claimedName := req.ClaimedName
	claimedDOB := req.ClaimedDOB

	var nameOK, dobOK bool
	if req.ExtractOnly {
		if claimedName == "" {
			claimedName = gathered.primaryFields.Name
		}
		if claimedDOB == "" {
			claimedDOB = gathered.primaryFields.DOB
		}
		nameOK = claimedName != ""
		dobOK = claimedDOB != ""
	} else {
		nameOK = docparse.ContainsName(gathered.primaryFields.RawText, claimedName)
		dobOK = docparse.ContainsDOB(gathered.primaryFields.RawText, claimedDOB)
	}

	crossOK := true
	if req.Secondary != nil {
		crossOK = docparse.NamesMatch(gathered.primaryFields.Name, gathered.secondaryFields.Name)
	}

	status := models.VerificationStatusNoMatch
	if allPassed && nameOK && dobOK && crossOK {
		status = models.VerificationStatusSuccess
	}

	outcome := &Outcome{
		UserID:                 req.UserID,
		RequestID:              requestID,
		Timestamp:              now,
		Status:                 status,
		FaceResults:            results,
		ExtractedName:          gathered.primaryFields.Name,
		ExtractedDOB:           gathered.primaryFields.DOB,
		SecondaryExtractedName: gathered.secondaryFields.Name,
		NameCrossMatch:         req.Secondary != nil && crossOK,
		OverallSimilarity:      overall,
	}

	if status == models.VerificationStatusSuccess {
		expiresAt := now.Add(e.Validity)
		outcome.ExpiresAt = &expiresAt
	}

	return outcome
}

func (e *Engine) persist(req *Request, outcome *Outcome) error {
	if _, err := e.Store.AppendHistory(e.attemptRow(outcome)); err != nil {
		return err
	}

	// Failed attempts are audit-only; they never displace the current
	// status, so a prior success survives an infrastructure hiccup.
	if outcome.Status == models.VerificationStatusFailed {
		return nil
	}

	status := &models.VerificationStatus{
		UserID:            outcome.UserID,
		Verified:          outcome.Status == models.VerificationStatusSuccess,
		RequestID:         outcome.RequestID,
		OverallSimilarity: outcome.OverallSimilarity,
	}

	if outcome.Status == models.VerificationStatusSuccess {
		status.FullName = claimedOrExtractedName(req, outcome)
		status.DateOfBirth = claimedOrExtractedDOB(req, outcome)
		verifiedAt := outcome.Timestamp
		status.VerifiedAt = &verifiedAt
		status.ExpiresAt = outcome.ExpiresAt
	}

	return e.Store.UpsertCurrent(status)
}

func claimedOrExtractedName(req *Request, outcome *Outcome) string {
	if req.ClaimedName != "" {
		return req.ClaimedName
	}
	return outcome.ExtractedName
}

func claimedOrExtractedDOB(req *Request, outcome *Outcome) string {
	claimed := req.ClaimedDOB
	if claimed == "" {
		claimed = outcome.ExtractedDOB
	}
	if iso, ok := docparse.NormalizeDOB(claimed); ok {
		return iso
	}
	return claimed
}

func (e *Engine) recordFailure(req *Request, requestID string, now time.Time, results []face.Result, cause error) (*Outcome, error) {
	outcome := &Outcome{
		UserID:            req.UserID,
		RequestID:         requestID,
		Timestamp:         now,
		Status:            models.VerificationStatusFailed,
		FaceResults:       results,
		OverallSimilarity: 0,
		ErrorDetail:       cause.Error(),
		ErrorCode:         fault.Code(cause),
	}

	if _, err := e.Store.AppendHistory(e.attemptRow(outcome)); err != nil {
		e.Logger.Error("failed to record failed verification attempt",
			"request_id", requestID, "error", err)
	}

	e.publish(req, outcome)

	return outcome, nil
}

func (e *Engine) attemptRow(outcome *Outcome) *models.VerificationAttempt {
	faceResults, err := json.Marshal(outcome.FaceResults)
	if err != nil || outcome.FaceResults == nil {
		faceResults = []byte("[]")
	}

	return &models.VerificationAttempt{
		RequestID:              outcome.RequestID,
		UserID:                 outcome.UserID,
		Status:                 outcome.Status,
		FaceResults:            faceResults,
		ExtractedName:          outcome.ExtractedName,
		ExtractedDOB:           outcome.ExtractedDOB,
		SecondaryExtractedName: outcome.SecondaryExtractedName,
		NameCrossMatch:         outcome.NameCrossMatch,
		OverallSimilarity:      outcome.OverallSimilarity,
		ErrorDetail:            outcome.ErrorDetail,
		CreatedAt:              outcome.Timestamp,
	}
}

func (e *Engine) publish(req *Request, outcome *Outcome) {
	if e.Producer == nil {
		return
	}

	event := Event{
		UserID:            outcome.UserID,
		RequestID:         outcome.RequestID,
		Status:            outcome.Status,
		Verified:          outcome.Status == models.VerificationStatusSuccess,
		OverallSimilarity: outcome.OverallSimilarity,
		ErrorDetail:       outcome.ErrorDetail,
	}

	var topic string
	switch outcome.Status {
	case models.VerificationStatusSuccess:
		topic = VerificationSuccessTopic
		event.Email = req.NotifyEmail
		event.Name = claimedOrExtractedName(req, outcome)
		event.ExpiresAt = outcome.ExpiresAt
	case models.VerificationStatusFailed:
		topic = VerificationFailedTopic
	default:
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	if err := e.Producer.ProduceMessage(topic, string(message)); err != nil {
		e.Logger.Error("failed to publish verification event",
			"topic", topic, "request_id", outcome.RequestID, "error", err)
	}
}
