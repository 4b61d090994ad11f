package jwt

import (
	"testing"
	"time"

	"clinic-booking/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(now *time.Time) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:             "session-secret",
		CancellationSecret: "cancel-secret",
		AccessExpiry:       15 * time.Minute,
		RefreshExpiry:      24 * time.Hour,
	}, WithClock(func() time.Time { return *now }))
}

func TestSessionTokens_RoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := newService(&now)
	providerID := uuid.New()

	token, tokenID, err := s.GenerateAccessToken(providerID, "doc@example.com")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, providerID, claims.ProviderID)
	assert.Equal(t, tokenID, claims.TokenID)
	assert.Equal(t, AccessToken, claims.TokenType)

	now = now.Add(16 * time.Minute)
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestCancellationToken_RoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)
	s := newService(&now)
	apptID := uuid.New()

	token, err := s.SignCancellation(CancellationClaims{
		AppointmentID:   apptID,
		PatientPhone:    "+5491122334455",
		AppointmentDate: "2025-06-10",
		AppointmentTime: "09:00",
	}, now.Add(24*time.Hour))
	require.NoError(t, err)

	claims, err := s.VerifyCancellation(token)
	require.NoError(t, err)
	assert.Equal(t, apptID, claims.AppointmentID)
	assert.Equal(t, "09:00", claims.AppointmentTime)

	now = now.Add(25 * time.Hour)
	_, err = s.VerifyCancellation(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestCancellationToken_RejectsSessionToken(t *testing.T) {
	now := time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)
	s := NewJWTService(config.JWTConfig{Secret: "same", AccessExpiry: time.Hour}, WithClock(func() time.Time { return now }))

	token, _, err := s.GenerateAccessToken(uuid.New(), "doc@example.com")
	require.NoError(t, err)

	_, err = s.VerifyCancellation(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCancellationToken_RejectsTampering(t *testing.T) {
	now := time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)
	s := newService(&now)

	token, err := s.SignCancellation(CancellationClaims{AppointmentID: uuid.New()}, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = s.VerifyCancellation(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.VerifyCancellation("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
