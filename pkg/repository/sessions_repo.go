package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
)

// SessionsRepository handles session persistence.
type SessionsRepository struct {
	q Querier
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(q Querier) *SessionsRepository {
	return &SessionsRepository{q: q}
}

// Create creates a new session.
func (r *SessionsRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, company_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.q.ExecContext(ctx, query,
		session.ID, session.UserID, nullUUID(session.CompanyID), session.CreatedAt, session.ExpiresAt,
	)
	return err
}

// GetByID retrieves a session by ID.
func (r *SessionsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `
		SELECT id, user_id, company_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE id = $1
	`
	session := &domain.Session{}
	var companyID uuid.NullUUID
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserID, &companyID,
		&session.CreatedAt, &session.ExpiresAt, &session.RevokedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if companyID.Valid {
		session.CompanyID = companyID.UUID
	}
	return session, nil
}

// Revoke revokes a session.
func (r *SessionsRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`
	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
