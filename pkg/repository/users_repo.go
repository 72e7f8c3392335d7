package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// UsersRepository handles user persistence.
type UsersRepository struct {
	q Querier
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(q Querier) *UsersRepository {
	return &UsersRepository{q: q}
}

const userColumns = `id, company_id, name, email, role, created_at, updated_at`

// Create creates a new user.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, company_id, name, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		user.ID, nullUUID(user.CompanyID), user.Name, user.Email, user.Role, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err, "users_email_key") {
		return domain.ErrUserAlreadyExists
	}
	return err
}

// GetByID retrieves a user by ID. Used while resolving a principal, before any
// tenant is known.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, email))
}

// ExistsByEmail checks if a user exists by email.
func (r *UsersRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	err := r.q.QueryRowContext(ctx, query, email).Scan(&exists)
	return exists, err
}

// Get retrieves a user of the scope's company.
func (r *UsersRepository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*domain.User, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND company_id = $2`
	return scanUser(r.q.QueryRowContext(ctx, query, id, scope.CompanyID()))
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var companyID uuid.NullUUID
	err := row.Scan(
		&user.ID, &companyID, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if companyID.Valid {
		user.CompanyID = companyID.UUID
	}
	return user, nil
}

// nullUUID stores uuid.Nil as SQL NULL.
func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

// CredentialsRepository handles password credential persistence.
type CredentialsRepository struct {
	q Querier
}

// NewCredentialsRepository creates a new credentials repository.
func NewCredentialsRepository(q Querier) *CredentialsRepository {
	return &CredentialsRepository{q: q}
}

// Create stores a password hash for a user.
func (r *CredentialsRepository) Create(ctx context.Context, cred *domain.UserPassword) error {
	query := `
		INSERT INTO user_password (user_id, password_hash, password_updated_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.q.ExecContext(ctx, query, cred.UserID, cred.PasswordHash, cred.PasswordUpdatedAt)
	return err
}

// GetByUserID retrieves password credentials. A user without a password
// returns domain.ErrUserNotFound.
func (r *CredentialsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserPassword, error) {
	query := `
		SELECT user_id, password_hash, password_updated_at
		FROM user_password
		WHERE user_id = $1
	`
	cred := &domain.UserPassword{}
	err := r.q.QueryRowContext(ctx, query, userID).Scan(&cred.UserID, &cred.PasswordHash, &cred.PasswordUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}
