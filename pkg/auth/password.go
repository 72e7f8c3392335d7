package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/store"
	"golang.org/x/crypto/argon2"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// PasswordService handles registration and password authentication.
type PasswordService struct {
	tx        store.Transactor
	repos     store.Repos
	tokens    *TokenService
	validator *Validator
}

// NewPasswordService creates a new password service.
func NewPasswordService(tx store.Transactor, repos store.Repos, tokens *TokenService, validator *Validator) *PasswordService {
	if validator == nil {
		validator = &Validator{}
	}
	return &PasswordService{
		tx:        tx,
		repos:     repos,
		tokens:    tokens,
		validator: validator,
	}
}

// Registration is the result of a successful Register.
type Registration struct {
	User    *domain.User
	Company *domain.Company
	Token   *domain.Token
}

// Register creates a company, its owner and a session in one transaction.
//
// Invalid input returns *domain.ValidationError and a taken email returns
// domain.ErrUserAlreadyExists. Any other failure rolls back every write and
// returns *domain.TransactionError.
func (s *PasswordService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	in, err := s.validator.Registration(in)
	if err != nil {
		return nil, err
	}

	exists, err := s.repos.Users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	slug, err := CompanySlug(in.CompanyName)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	company := &domain.Company{
		ID:        uuid.New(),
		Name:      in.CompanyName,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user := &domain.User{
		ID:        uuid.New(),
		CompanyID: company.ID,
		Name:      in.Name,
		Email:     in.Email,
		Role:      domain.UserRoleOwner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := &domain.UserPassword{
		UserID:            user.ID,
		PasswordHash:      hash,
		PasswordUpdatedAt: now,
	}

	var token *domain.Token
	err = s.tx.WithinTx(ctx, func(r store.Repos) error {
		if err := r.Companies.Create(ctx, company); err != nil {
			return err
		}
		if err := r.Users.Create(ctx, user); err != nil {
			return err
		}
		if err := r.Passwords.Create(ctx, cred); err != nil {
			return err
		}
		issued, err := s.tokens.IssueTx(ctx, r, user)
		if err != nil {
			return err
		}
		token = issued
		return nil
	})
	if err != nil {
		// Lost a race with another registration for the same email.
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, &domain.TransactionError{Op: "register", Err: err}
	}

	return &Registration{User: user, Company: company, Token: token}, nil
}

// Authenticate verifies email and password and returns the user.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if err := s.validator.Credentials(email, password); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	cred, err := s.repos.Passwords.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, cred.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a new token.
func (s *PasswordService) Login(ctx context.Context, email, password string) (*domain.User, *domain.Token, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := randomBytes(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// Encode as: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	encoded := encodeArgon2Hash(hash, salt, argon2Time, argon2Memory, argon2Threads)
	return encoded, nil
}

// VerifyPassword verifies a password against an Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	hash, salt, time, memory, threads, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))
	return constantTimeCompare(hash, computed)
}
