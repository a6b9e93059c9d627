package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/prelink-app/identity/internal/models"
)

type VerificationRepository interface {
	// UpsertCurrent overwrites the single current-status row for the user.
	// Writing the same outcome twice yields the same end state.
	UpsertCurrent(status *models.VerificationStatus) error

	// AppendHistory always inserts a new audit row; rows are never updated
	// or deleted.
	AppendHistory(attempt *models.VerificationAttempt) (*models.VerificationAttempt, error)

	GetCurrent(userID string) (*models.VerificationStatus, bool, error)
	GetHistory(userID string, limit, offset int) ([]models.VerificationAttempt, error)
	AttachEvidence(requestID, selfieURL, primaryURL, secondaryURL string) error
}

type VerificationRepositoryImpl struct {
	db *sqlx.DB
}

func NewVerificationRepository(db *sqlx.DB) VerificationRepository {
	return &VerificationRepositoryImpl{db: db}
}

func (repo *VerificationRepositoryImpl) UpsertCurrent(status *models.VerificationStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO verification_status (
			user_id, verified, request_id, full_name, dob,
			overall_similarity, verified_at, expires_at, updated_at
		)
		VALUES (
			:user_id, :verified, :request_id, :full_name, :dob,
			:overall_similarity, :verified_at, :expires_at, NOW()
		)
		ON CONFLICT (user_id) DO UPDATE SET
			verified = EXCLUDED.verified,
			request_id = EXCLUDED.request_id,
			full_name = EXCLUDED.full_name,
			dob = EXCLUDED.dob,
			overall_similarity = EXCLUDED.overall_similarity,
			verified_at = EXCLUDED.verified_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW();
	`

	_, err := repo.db.NamedExecContext(ctx, query, status)
	return err
}

func (repo *VerificationRepositoryImpl) AppendHistory(attempt *models.VerificationAttempt) (*models.VerificationAttempt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO verification_attempts (
			request_id, user_id, status, face_results,
			extracted_name, extracted_dob, secondary_extracted_name,
			name_cross_match, overall_similarity, error_detail,
			selfie_url, primary_url, secondary_url, created_at
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING id;
	`

	err := repo.db.QueryRowContext(ctx, query,
		attempt.RequestID,
		attempt.UserID,
		attempt.Status,
		attempt.FaceResults,
		attempt.ExtractedName,
		attempt.ExtractedDOB,
		attempt.SecondaryExtractedName,
		attempt.NameCrossMatch,
		attempt.OverallSimilarity,
		attempt.ErrorDetail,
		attempt.SelfieURL,
		attempt.PrimaryURL,
		attempt.SecondaryURL,
		attempt.CreatedAt,
	).Scan(&attempt.ID)

	if err != nil {
		return nil, err
	}

	return attempt, nil
}

func (repo *VerificationRepositoryImpl) GetCurrent(userID string) (*models.VerificationStatus, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var status models.VerificationStatus

	query := `
		SELECT user_id, verified, request_id, full_name, dob,
			overall_similarity, verified_at, expires_at, updated_at
		FROM verification_status
		WHERE user_id = $1;
	`

	err := repo.db.GetContext(ctx, &status, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &status, true, nil
}

func (repo *VerificationRepositoryImpl) GetHistory(userID string, limit, offset int) ([]models.VerificationAttempt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	attempts := []models.VerificationAttempt{}

	query := `
		SELECT id, request_id, user_id, status, face_results,
			extracted_name, extracted_dob, secondary_extracted_name,
			name_cross_match, overall_similarity, error_detail,
			selfie_url, primary_url, secondary_url, created_at
		FROM verification_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
	`

	err := repo.db.SelectContext(ctx, &attempts, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return attempts, nil
}

func (repo *VerificationRepositoryImpl) AttachEvidence(requestID, selfieURL, primaryURL, secondaryURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE verification_attempts
		SET selfie_url = $2, primary_url = $3, secondary_url = $4
		WHERE request_id = $1;
	`

	_, err := repo.db.ExecContext(ctx, query, requestID, selfieURL, primaryURL, secondaryURL)
	return err
}
