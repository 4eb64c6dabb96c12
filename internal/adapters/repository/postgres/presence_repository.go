package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) ports.CredentialRepository {
	return &credentialRepository{db: db}
}

// Issue inserts cred and clamps older unexpired credentials of the poll.
// Only credentials ordered before cred by (issued_at, id) are touched, so
// concurrent rotations always leave the newest one active.
func (r *credentialRepository) Issue(ctx context.Context, cred *domain.PresenceCredential) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	supersede := `
		UPDATE presence_credentials
		SET expires_at = $2
		WHERE poll_id = $1 AND expires_at > $2 AND (issued_at, id) < ($2, $3)
	`
	if _, err := tx.ExecContext(ctx, supersede, cred.PollID, cred.IssuedAt, cred.ID); err != nil {
		return fmt.Errorf("failed to supersede credentials: %w", err)
	}

	insert := `
		INSERT INTO presence_credentials (id, poll_id, token, issued_by, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.ExecContext(ctx, insert, cred.ID, cred.PollID, cred.Token, cred.IssuedBy, cred.IssuedAt, cred.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return domain.ErrPollNotFound
		}
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *credentialRepository) Active(ctx context.Context, pollID uuid.UUID, now time.Time) (*domain.PresenceCredential, error) {
	query := `
		SELECT id, poll_id, token, issued_by, issued_at, expires_at
		FROM presence_credentials
		WHERE poll_id = $1 AND expires_at >= $2
		ORDER BY issued_at DESC, id DESC
		LIMIT 1
	`
	cred, err := scanCredential(r.db.QueryRowContext(ctx, query, pollID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active credential: %w", err)
	}
	return cred, nil
}

func (r *credentialRepository) GetByToken(ctx context.Context, token string) (*domain.PresenceCredential, error) {
	query := `
		SELECT id, poll_id, token, issued_by, issued_at, expires_at
		FROM presence_credentials
		WHERE token = $1
	`
	cred, err := scanCredential(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return cred, nil
}

func (r *credentialRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM presence_credentials WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge credentials: %w", err)
	}
	return res.RowsAffected()
}

func scanCredential(row rowScanner) (*domain.PresenceCredential, error) {
	var c domain.PresenceCredential
	if err := row.Scan(&c.ID, &c.PollID, &c.Token, &c.IssuedBy, &c.IssuedAt, &c.ExpiresAt); err != nil {
		return nil, err
	}
	return &c, nil
}

type verificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) ports.VerificationRepository {
	return &verificationRepository{db: db}
}

// Ensure runs in a transaction bound to ctx: if ctx is done before the
// commit, nothing is recorded.
func (r *verificationRepository) Ensure(ctx context.Context, rec *domain.VerificationRecord) (*domain.VerificationRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO verification_records (poll_id, user_id, verification_type, verified_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (poll_id, user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert, rec.PollID, rec.UserID, rec.VerificationType, rec.VerifiedAt); err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to insert verification: %w", err)
	}

	stored, err := scanVerification(tx.QueryRowContext(ctx, selectVerification, rec.PollID, rec.UserID))
	if err != nil {
		return nil, fmt.Errorf("failed to read verification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stored, nil
}

func (r *verificationRepository) Get(ctx context.Context, pollID, userID uuid.UUID) (*domain.VerificationRecord, error) {
	rec, err := scanVerification(r.db.QueryRowContext(ctx, selectVerification, pollID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	return rec, nil
}

const selectVerification = `
	SELECT poll_id, user_id, verification_type, verified_at
	FROM verification_records
	WHERE poll_id = $1 AND user_id = $2
`

func scanVerification(row rowScanner) (*domain.VerificationRecord, error) {
	var rec domain.VerificationRecord
	if err := row.Scan(&rec.PollID, &rec.UserID, &rec.VerificationType, &rec.VerifiedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
