package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/voicepoll/voice-survey-service/environments"
	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/pkg/logger"
)

type userRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, email, name, passwordHash string, role domain.UserRole) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, name string) (*domain.User, error)
}

type sessionStore interface {
	StoreSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, tokenID string) (*domain.Session, error)
	DeleteSession(ctx context.Context, tokenID string) error
}

var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrEmailTaken         = fmt.Errorf("email already registered")
)

// AuthService signs users in and out. Identity is carried per request in a
// signed token whose session lives in Redis keyed by token id; nothing
// user-specific is held in process memory, so concurrent requests can
// never observe each other's identity.
type AuthService struct {
	users    userRepository
	sessions sessionStore
	config   environments.AuthConfig
}

func NewAuthService(users userRepository, sessions sessionStore, config environments.AuthConfig) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		config:   config,
	}
}

// LoginResult carries the issued token and the signed-in user.
type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (s *AuthService) SignUp(ctx context.Context, email, name, password string) (*LoginResult, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, name, string(hash), domain.RoleUser)
	if err != nil {
		return nil, err
	}

	return s.issueToken(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(ctx, user)
}

func (s *AuthService) issueToken(ctx context.Context, user *domain.User) (*LoginResult, error) {
	if s.config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is not configured")
	}

	now := time.Now()
	expiresAt := now.Add(s.config.TokenTTL)
	tokenID := uuid.NewString()

	claims := jwt.RegisteredClaims{
		ID:        tokenID,
		Subject:   fmt.Sprintf("%d", user.ID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	session := &domain.Session{
		TokenID:   tokenID,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}

	if s.sessions != nil {
		if err := s.sessions.StoreSession(ctx, session); err != nil {
			// The JWT alone still authenticates; the cache only saves a DB read.
			logger.Warnf("Failed to cache session %s: %v", tokenID, err)
		}
	}

	return &LoginResult{Token: token, User: user}, nil
}

// Resolve turns a bearer token into the session it represents, preferring
// the Redis snapshot and falling back to a user lookup.
func (s *AuthService) Resolve(ctx context.Context, tokenString string) (*domain.Session, error) {
	if s.config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is not configured")
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(s.config.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	// With a session store configured the store is authoritative, so a
	// signed-out token stops resolving even before it expires.
	if s.sessions != nil {
		session, err := s.sessions.GetSession(ctx, claims.ID)
		if err != nil {
			logger.Warnf("Failed to read session %s: %v", claims.ID, err)
		} else if session == nil {
			return nil, fmt.Errorf("session expired or signed out")
		} else {
			return session, nil
		}
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil {
		return nil, fmt.Errorf("invalid token subject")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user no longer exists")
	}

	return &domain.Session{
		TokenID:   claims.ID,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout drops the Redis session so the token id can no longer resolve
// from cache.
func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.DeleteSession(ctx, tokenID)
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile changes the display name and refreshes the cached session.
func (s *AuthService) UpdateProfile(ctx context.Context, session *domain.Session, name string) (*domain.User, error) {
	user, err := s.users.UpdateProfile(ctx, session.UserID, name)
	if err != nil {
		return nil, err
	}

	if s.sessions != nil {
		refreshed := *session
		refreshed.Name = user.Name
		if err := s.sessions.StoreSession(ctx, &refreshed); err != nil {
			logger.Warnf("Failed to refresh session %s: %v", session.TokenID, err)
		}
	}

	return user, nil
}
