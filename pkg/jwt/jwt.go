package jwt

import (
	"errors"
	"time"

	"clinic-booking/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessToken       TokenType = "access"
	RefreshToken      TokenType = "refresh"
	CancellationToken TokenType = "cancellation"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims identify a provider session.
type Claims struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Email      string    `json:"email"`
	TokenType  TokenType `json:"token_type"`
	TokenID    string    `json:"token_id"`
	jwt.RegisteredClaims
}

// CancellationClaims bind a capability token to one appointment.
type CancellationClaims struct {
	AppointmentID   uuid.UUID `json:"appointment_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	PatientPhone    string    `json:"patient_phone"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	TokenType       TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTService struct {
	config config.JWTConfig
	now    func() time.Time
}

type Option func(*JWTService)

// WithClock replaces the wall clock used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
	}
}

func NewJWTService(cfg config.JWTConfig, opts ...Option) *JWTService {
	if cfg.CancellationSecret == "" {
		cfg.CancellationSecret = cfg.Secret
	}
	s := &JWTService{config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *JWTService) GenerateAccessToken(providerID uuid.UUID, email string) (string, string, error) {
	return s.generateSessionToken(providerID, email, AccessToken, s.config.AccessExpiry)
}

func (s *JWTService) GenerateRefreshToken(providerID uuid.UUID, email string) (string, string, error) {
	return s.generateSessionToken(providerID, email, RefreshToken, s.config.RefreshExpiry)
}

func (s *JWTService) generateSessionToken(providerID uuid.UUID, email string, tokenType TokenType, ttl time.Duration) (string, string, error) {
	now := s.now()
	tokenID := uuid.New().String()
	claims := Claims{
		ProviderID: providerID,
		Email:      email,
		TokenType:  tokenType,
		TokenID:    tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", "", err
	}

	return signedToken, tokenID, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenString, claims, s.config.Secret); err != nil {
		return nil, err
	}
	if claims.TokenType != AccessToken && claims.TokenType != RefreshToken {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignCancellation issues a cancellation token expiring at expiresAt.
func (s *JWTService) SignCancellation(claims CancellationClaims, expiresAt time.Time) (string, error) {
	now := s.now()
	claims.TokenType = CancellationToken
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   claims.AppointmentID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.CancellationSecret))
}

// VerifyCancellation is a pure signature and expiry check, no I/O.
func (s *JWTService) VerifyCancellation(tokenString string) (*CancellationClaims, error) {
	claims := &CancellationClaims{}
	// The cutoff boundary itself still counts as cancellable.
	if err := s.parse(tokenString, claims, s.config.CancellationSecret, jwt.WithLeeway(time.Second)); err != nil {
		return nil, err
	}
	if claims.TokenType != CancellationToken || claims.AppointmentID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims, secret string, extra ...jwt.ParserOption) error {
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}, extra...)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func (s *JWTService) GetAccessExpiry() time.Duration {
	return s.config.AccessExpiry
}

func (s *JWTService) GetRefreshExpiry() time.Duration {
	return s.config.RefreshExpiry
}
