package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/store"
)

// DefaultAccessTokenTTL is used when TokenConfig leaves it unset.
const DefaultAccessTokenTTL = 24 * time.Hour

// TokenConfig holds access token settings.
type TokenConfig struct {
	AccessTokenTTL time.Duration
	JWTSecret      []byte
	Issuer         string
}

// Revocations is a fast denylist of logged-out session ids. The session
// store stays authoritative; the denylist only short-circuits lookups.
type Revocations interface {
	Revoke(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// AccessTokenClaims represents the claims in an access token. The token ID
// (jti) is the session ID.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id,omitempty"`
	Email     string `json:"email,omitempty"`
}

// TokenService issues bearer tokens and resolves them back to principals.
type TokenService struct {
	config      TokenConfig
	repos       store.Repos
	revocations Revocations
	logger      *slog.Logger
}

// NewTokenService creates a new token service. revocations may be nil.
func NewTokenService(config TokenConfig, repos store.Repos, revocations Revocations, logger *slog.Logger) *TokenService {
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{
		config:      config,
		repos:       repos,
		revocations: revocations,
		logger:      logger,
	}
}

// AccessTokenTTL returns the access token TTL.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenTTL
}

// Issue creates a session for user and signs an access token for it.
func (s *TokenService) Issue(ctx context.Context, user *domain.User) (*domain.Token, error) {
	return s.IssueTx(ctx, s.repos, user)
}

// IssueTx is Issue with the session written through repos, so registration
// can create it inside its own transaction.
func (s *TokenService) IssueTx(ctx context.Context, repos store.Repos, user *domain.User) (*domain.Token, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := repos.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    s.config.Issuer,
			ID:        session.ID.String(),
		},
		Email: user.Email,
	}
	if user.HasCompany() {
		claims.CompanyID = user.CompanyID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString(s.config.JWTSecret)
	if err != nil {
		return nil, err
	}

	return &domain.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.config.AccessTokenTTL.Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}

// Validate checks the signature and expiry of an access token.
func (s *TokenService) Validate(tokenString string) (*AccessTokenClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.config.JWTSecret, nil
	}, opts...)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// Resolve turns a bearer token into the request principal. The company comes
// from the stored user record, never from the token.
func (s *TokenService) Resolve(ctx context.Context, tokenString string) (*domain.Principal, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, sessionID)
		if err != nil {
			s.logger.Warn("revocation lookup failed, falling back to session store", "session_id", sessionID, "error", err)
		} else if revoked {
			return nil, domain.ErrSessionRevoked
		}
	}

	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.ErrInvalidToken
	}
	if !session.IsValid() {
		if session.RevokedAt != nil {
			return nil, domain.ErrSessionRevoked
		}
		return nil, domain.ErrSessionExpired
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	return &domain.Principal{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		SessionID: session.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
	}, nil
}

// Revoke ends the principal's current session. Other sessions of the same
// user stay valid.
func (s *TokenService) Revoke(ctx context.Context, p *domain.Principal) error {
	if p == nil || p.SessionID == uuid.Nil {
		return domain.ErrUnauthenticated
	}

	session, err := s.repos.Sessions.GetByID(ctx, p.SessionID)
	if err != nil {
		return err
	}
	if err := s.repos.Sessions.Revoke(ctx, p.SessionID); err != nil {
		return err
	}

	if s.revocations != nil {
		if ttl := time.Until(session.ExpiresAt); ttl > 0 {
			if err := s.revocations.Revoke(ctx, p.SessionID, ttl); err != nil {
				s.logger.Warn("failed to cache session revocation", "session_id", p.SessionID, "error", err)
			}
		}
	}
	return nil
}
