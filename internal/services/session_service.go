package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/propaccess/internal/entities"
	"github.com/asakaida/propaccess/internal/repositories"
	"github.com/asakaida/propaccess/pkg/cache"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionIssuer    = "propaccess"
	sessionKeyPrefix = "session:"
)

// SessionServiceInterface defines the interface for session management
type SessionServiceInterface interface {
	Login(ctx context.Context, userID string) (*Session, error)
	Authenticate(ctx context.Context, token string) (*entities.CurrentUser, error)
	Logout(ctx context.Context, token string) error
	SwitchUser(ctx context.Context, token string, userID string) (*entities.CurrentUser, error)
}

// Session is an issued session token and the user it currently holds
type Session struct {
	Token     string
	User      *entities.CurrentUser
	ExpiresAt time.Time
}

// SessionService issues signed session tokens and keeps the session's CurrentUser in a cache.
// The token only proves the session exists; the cached user is the source of truth,
// so logout and user switching take effect immediately.
type SessionService struct {
	users      repositories.UserRepository
	store      cache.Cache
	signingKey []byte
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time

	allowSwitchUser bool
}

// NewSessionService creates a new SessionService.
// SwitchUser is refused unless allowSwitchUser is set.
func NewSessionService(users repositories.UserRepository, store cache.Cache, signingKey []byte, ttl time.Duration, allowSwitchUser bool, logger *zap.Logger) *SessionService {
	return &SessionService{
		users:           users,
		store:           store,
		signingKey:      signingKey,
		ttl:             ttl,
		logger:          logger,
		now:             time.Now,
		allowSwitchUser: allowSwitchUser,
	}
}

// Login starts a session for userID
func (s *SessionService) Login(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidArgument)
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	sessionID := uuid.NewString()

	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   user.ID,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	if err := s.storeUser(ctx, sessionID, user, s.ttl); err != nil {
		return nil, err
	}

	s.logger.Info("session started",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role.String()),
		zap.Time("expires_at", expiresAt))

	return &Session{Token: token, User: user, ExpiresAt: expiresAt}, nil
}

// Authenticate returns the user held by the session behind token
func (s *SessionService) Authenticate(ctx context.Context, token string) (*entities.CurrentUser, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	return s.loadUser(ctx, claims.ID)
}

// Logout ends the session behind token
func (s *SessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionKey(claims.ID)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("session ended", zap.String("subject", claims.Subject))
	return nil
}

// SwitchUser replaces the user held by the session with userID, keeping the same token.
// It is a development aid and returns ErrPermissionDenied unless enabled.
func (s *SessionService) SwitchUser(ctx context.Context, token string, userID string) (*entities.CurrentUser, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	current, err := s.loadUser(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !s.allowSwitchUser {
		s.logger.Warn("session user switch refused",
			zap.String("user_id", current.ID),
			zap.String("requested_user_id", userID))
		return nil, fmt.Errorf("%w: user switching is disabled", ErrPermissionDenied)
	}

	next, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.storeUser(ctx, claims.ID, next, remaining); err != nil {
		return nil, err
	}

	s.logger.Info("session user switched",
		zap.String("from_user_id", current.ID),
		zap.String("to_user_id", next.ID))

	return next, nil
}

func (s *SessionService) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: token has no session ID", ErrUnauthenticated)
	}

	return claims, nil
}

func (s *SessionService) storeUser(ctx context.Context, sessionID string, user *entities.CurrentUser, ttl time.Duration) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.store.Set(ctx, sessionKey(sessionID), payload, ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *SessionService) loadUser(ctx context.Context, sessionID string) (*entities.CurrentUser, error) {
	value, ok := s.store.Get(ctx, sessionKey(sessionID))
	if !ok {
		return nil, fmt.Errorf("%w: session revoked or expired", ErrUnauthenticated)
	}

	var payload []byte
	switch v := value.(type) {
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		return nil, fmt.Errorf("unexpected session payload type %T", value)
	}

	var user entities.CurrentUser
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	// unknown role strings must stay unknown after a round trip
	user.Role = entities.ParseRole(string(user.Role))

	return &user, nil
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}
