package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"clinic-booking/pkg/jwt"
	"clinic-booking/pkg/response"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type contextKey string

const (
	ProviderIDKey    contextKey = "provider_id"
	ProviderEmailKey contextKey = "provider_email"
	TokenIDKey       contextKey = "token_id"
	RequestIDKey     contextKey = "request_id"
)

// AccessTokenKey is the Redis key marking a session token as live.
func AccessTokenKey(providerID uuid.UUID, tokenID string) string {
	return fmt.Sprintf("access_token:%s:%s", providerID.String(), tokenID)
}

func RefreshTokenKey(providerID uuid.UUID, tokenID string) string {
	return fmt.Sprintf("refresh_token:%s:%s", providerID.String(), tokenID)
}

type AuthMiddleware struct {
	jwtService  *jwt.JWTService
	redisClient *redis.Client
}

func NewAuthMiddleware(jwtService *jwt.JWTService, redisClient *redis.Client) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		redisClient: redisClient,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Validate JWT token
		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		// Check if it's an access token
		if claims.TokenType != jwt.AccessToken {
			response.Unauthorized(w, "Invalid token type")
			return
		}

		// Check if token exists in Redis (not revoked)
		exists, err := m.redisClient.Exists(r.Context(), AccessTokenKey(claims.ProviderID, claims.TokenID)).Result()
		if err != nil {
			response.InternalServerError(w, "Failed to validate token")
			return
		}
		if exists == 0 {
			response.Unauthorized(w, "Token has been revoked")
			return
		}

		ctx := WithProvider(r.Context(), claims.ProviderID, claims.Email, claims.TokenID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// WithProvider stores the authenticated provider on the context
func WithProvider(ctx context.Context, providerID uuid.UUID, email, tokenID string) context.Context {
	ctx = context.WithValue(ctx, ProviderIDKey, providerID)
	ctx = context.WithValue(ctx, ProviderEmailKey, email)
	return context.WithValue(ctx, TokenIDKey, tokenID)
}

// GetProviderIDFromContext extracts provider ID from context
func GetProviderIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	providerID, ok := ctx.Value(ProviderIDKey).(uuid.UUID)
	return providerID, ok
}

// GetProviderEmailFromContext extracts provider email from context
func GetProviderEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(ProviderEmailKey).(string)
	return email, ok
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}
