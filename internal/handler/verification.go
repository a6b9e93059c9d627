package handler

import (
	stdctx "context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prelink-app/identity/internal/context"
	"github.com/prelink-app/identity/internal/docparse"
	"github.com/prelink-app/identity/internal/errHandler"
	"github.com/prelink-app/identity/internal/fault"
	"github.com/prelink-app/identity/internal/helper"
	"github.com/prelink-app/identity/internal/image"
	"github.com/prelink-app/identity/internal/models"
	"github.com/prelink-app/identity/internal/repository"
	"github.com/prelink-app/identity/internal/request"
	"github.com/prelink-app/identity/internal/response"
	"github.com/prelink-app/identity/internal/validator"
	"github.com/prelink-app/identity/internal/verify"
)

const statusCacheKeyFormat = "identity:status:%s"

type imagePayload struct {
	Data string `json:"data"`
	URL  string `json:"url"`
}

func (p *imagePayload) ref() image.Ref {
	if p == nil {
		return image.Ref{}
	}
	return image.Ref{URL: p.URL, Base64: p.Data}
}

type VerificationResponseData struct {
	RequestID         string             `json:"request_id"`
	Status            string             `json:"status"`
	Verified          bool               `json:"verified"`
	Matches           map[string]bool    `json:"matches"`
	Similarities      map[string]float64 `json:"similarities"`
	OverallSimilarity float64            `json:"overall_similarity"`
	Name              string             `json:"name,omitempty"`
	Dob               string             `json:"dob,omitempty"`
	NameCrossMatch    bool               `json:"name_cross_match"`
	ExpiresAt         *time.Time         `json:"expires_at,omitempty"`
	Error             string             `json:"error,omitempty"`
	Code              string             `json:"code,omitempty"`
}

// StatusCache is the subset of the cache the status read path needs.
type StatusCache interface {
	Get(key string) (string, error)
	Set(key string, value string, expiration time.Duration) error
	Delete(key string) error
}

// EvidenceUploader archives audit copies of submitted images.
type EvidenceUploader interface {
	UploadImage(ctx stdctx.Context, data []byte, publicID string) (string, error)
}

type VerificationHandler struct {
	Engine           *verify.Engine
	VerificationRepo repository.VerificationRepository
	Cache            StatusCache
	Uploader         EvidenceUploader

	ErrHandler *errHandler.ErrorHandler
	Helper     *helper.HelperRepository
}

func NewVerificationHandler(handler *VerificationHandler) *VerificationHandler {
	return &VerificationHandler{
		Engine:           handler.Engine,
		VerificationRepo: handler.VerificationRepo,
		Cache:            handler.Cache,
		Uploader:         handler.Uploader,
		ErrHandler:       handler.ErrHandler,
		Helper:           handler.Helper,
	}
}

// Identity verification combines face similarity between the selfie and the
// submitted documents with OCR matching of the claimed name and date of
// birth. The remote calls are fanned out by the engine; this handler only
// shapes the request and the response.
func (h *VerificationHandler) HandleSubmitVerification(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Selfie            *imagePayload       `json:"selfie"`
		PrimaryDocument   *imagePayload       `json:"primary_document"`
		DocumentType      string              `json:"document_type"`
		SecondaryDocument *imagePayload       `json:"secondary_document"`
		EnteredName       string              `json:"entered_name"`
		EnteredDOB        string              `json:"entered_dob"`
		Email             string              `json:"email"`
		ExtractOnly       bool                `json:"extract_only"`
		Validator         validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(!input.Selfie.ref().IsZero(), "Selfie image is required")
	input.Validator.Check(!input.PrimaryDocument.ref().IsZero(), "Primary document image is required")
	input.Validator.Check(validator.NotBlank(input.DocumentType), "Document type is required")
	input.Validator.Check(docparse.ValidDocumentType(docparse.DocumentType(input.DocumentType)), "Document type is not supported")

	if !input.ExtractOnly {
		input.Validator.Check(validator.NotBlank(input.EnteredName), "Entered name is required")
		input.Validator.Check(validator.NotBlank(input.EnteredDOB), "Entered date of birth is required")
	}

	if input.Email != "" {
		input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")
	}

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	email := input.Email
	if email == "" {
		email = user.Email
	}

	req := &verify.Request{
		UserID:      user.ID,
		NotifyEmail: email,
		Selfie:      input.Selfie.ref(),
		Primary: verify.Document{
			Image: input.PrimaryDocument.ref(),
			Type:  docparse.DocumentType(input.DocumentType),
		},
		ClaimedName: input.EnteredName,
		ClaimedDOB:  input.EnteredDOB,
		ExtractOnly: input.ExtractOnly,
	}

	if input.SecondaryDocument != nil {
		secondary := input.SecondaryDocument.ref()
		if !secondary.IsZero() {
			req.Secondary = &secondary
		}
	}

	outcome, err := h.Engine.Verify(r.Context(), req)
	if err != nil {
		if fault.IsValidation(err) {
			h.ErrHandler.FailedValidation(w, r, err.(*fault.ValidationError).Fields)
			return
		}
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	// A definitive outcome supersedes whatever status answer is cached; drop
	// it so the next read goes back to the store.
	if outcome.Status != models.VerificationStatusFailed && h.Cache != nil {
		if err := h.Cache.Delete(fmt.Sprintf(statusCacheKeyFormat, user.ID)); err != nil {
			h.ErrHandler.ReportServerError(r, err)
		}
	}

	// Archive audit copies of inline image payloads off the request path.
	h.uploadEvidence(r, req, outcome.RequestID)

	data := formatOutcome(outcome)

	switch outcome.Status {
	case models.VerificationStatusSuccess:
		err = response.JSONOkResponse(w, data, "Verification successful", nil)
	case models.VerificationStatusNoMatch:
		err = response.JSONErrorResponse(w, data, "Verification did not match", http.StatusOK, nil)
	default:
		err = response.JSONErrorResponse(w, data, "Verification could not be completed, please try again", http.StatusBadGateway, nil)
	}

	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func formatOutcome(outcome *verify.Outcome) *VerificationResponseData {
	data := &VerificationResponseData{
		RequestID:         outcome.RequestID,
		Status:            outcome.Status,
		Verified:          outcome.Status == models.VerificationStatusSuccess,
		Matches:           make(map[string]bool),
		Similarities:      make(map[string]float64),
		OverallSimilarity: outcome.OverallSimilarity,
		Name:              outcome.ExtractedName,
		Dob:               outcome.ExtractedDOB,
		NameCrossMatch:    outcome.NameCrossMatch,
		ExpiresAt:         outcome.ExpiresAt,
		Error:             outcome.ErrorDetail,
		Code:              outcome.ErrorCode,
	}

	for _, result := range outcome.FaceResults {
		data.Matches[string(result.Pair)] = result.Passed
		data.Similarities[string(result.Pair)] = result.Similarity
	}

	return data
}

func (h *VerificationHandler) uploadEvidence(r *http.Request, req *verify.Request, requestID string) {
	if h.Uploader == nil {
		return
	}

	selfie := req.Selfie
	primary := req.Primary.Image
	var secondary image.Ref
	if req.Secondary != nil {
		secondary = *req.Secondary
	}

	h.Helper.BackgroundTask(r, func() error {
		selfieURL, err := h.archiveImage(selfie, requestID+"-selfie")
		if err != nil {
			return err
		}

		primaryURL, err := h.archiveImage(primary, requestID+"-primary")
		if err != nil {
			return err
		}

		secondaryURL, err := h.archiveImage(secondary, requestID+"-secondary")
		if err != nil {
			return err
		}

		return h.VerificationRepo.AttachEvidence(requestID, selfieURL, primaryURL, secondaryURL)
	})
}

// archiveImage uploads inline payloads and passes URLs through untouched;
// images submitted by URL already live in durable storage.
func (h *VerificationHandler) archiveImage(ref image.Ref, publicID string) (string, error) {
	if ref.IsZero() {
		return "", nil
	}

	if ref.Base64 == "" {
		return ref.URL, nil
	}

	ctx := stdctx.Background()

	data, err := h.Engine.Fetcher.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}

	return h.Uploader.UploadImage(ctx, data, publicID)
}

func (h *VerificationHandler) HandleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	cacheKey := fmt.Sprintf(statusCacheKeyFormat, user.ID)

	if h.Cache != nil {
		if cached, err := h.Cache.Get(cacheKey); err == nil {
			var data StatusResponseData
			if err := json.Unmarshal([]byte(cached), &data); err == nil {
				// A cached "verified" answer can outlive the horizon by
				// at most the cache TTL, so re-check before serving it.
				data.Verified = data.Verified && data.ExpiresAt != nil && time.Now().Before(*data.ExpiresAt)
				err = response.JSONOkResponse(w, data, "", nil)
				if err != nil {
					h.ErrHandler.ServerError(w, r, err)
				}
				return
			}
		}
	}

	status, found, err := h.VerificationRepo.GetCurrent(user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := StatusResponseData{Verified: false}

	if found {
		data = formatStatus(status)

		if h.Cache != nil && status.ExpiresAt != nil {
			if ttl := time.Until(*status.ExpiresAt); ttl > 0 {
				if serialized, err := json.Marshal(data); err == nil {
					h.Cache.Set(cacheKey, string(serialized), ttl)
				}
			}
		}
	}

	err = response.JSONOkResponse(w, data, "", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

type StatusResponseData struct {
	Verified          bool       `json:"verified"`
	RequestID         string     `json:"request_id,omitempty"`
	Name              string     `json:"name,omitempty"`
	Dob               string     `json:"dob,omitempty"`
	OverallSimilarity float64    `json:"overall_similarity,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

func formatStatus(status *models.VerificationStatus) StatusResponseData {
	verified := status.Verified
	if status.ExpiresAt == nil || time.Now().After(*status.ExpiresAt) {
		verified = false
	}

	return StatusResponseData{
		Verified:          verified,
		RequestID:         status.RequestID,
		Name:              status.FullName,
		Dob:               status.DateOfBirth,
		OverallSimilarity: status.OverallSimilarity,
		VerifiedAt:        status.VerifiedAt,
		ExpiresAt:         status.ExpiresAt,
	}
}

type AttemptResponseData struct {
	ID                string          `json:"id"`
	RequestID         string          `json:"request_id"`
	Status            string          `json:"status"`
	FaceResults       json.RawMessage `json:"face_results"`
	ExtractedName     string          `json:"extracted_name,omitempty"`
	ExtractedDob      string          `json:"extracted_dob,omitempty"`
	NameCrossMatch    bool            `json:"name_cross_match"`
	OverallSimilarity float64         `json:"overall_similarity"`
	Error             string          `json:"error,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func (h *VerificationHandler) HandleVerificationHistory(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	queryValues := retrieveListQueryValues(r)

	attempts, err := h.VerificationRepo.GetHistory(user.ID, queryValues.Limit, queryValues.Offset)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := make([]AttemptResponseData, len(attempts))
	for i, attempt := range attempts {
		data[i] = AttemptResponseData{
			ID:                attempt.ID,
			RequestID:         attempt.RequestID,
			Status:            attempt.Status,
			FaceResults:       json.RawMessage(attempt.FaceResults),
			ExtractedName:     attempt.ExtractedName,
			ExtractedDob:      attempt.ExtractedDOB,
			NameCrossMatch:    attempt.NameCrossMatch,
			OverallSimilarity: attempt.OverallSimilarity,
			Error:             attempt.ErrorDetail,
			CreatedAt:         attempt.CreatedAt,
		}
	}

	err = response.JSONOkResponse(w, data, "Data retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
