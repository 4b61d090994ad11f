package usecase

import (
	"context"
	"errors"
	"strings"

	"clinic-booking/internal/converter"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/delivery/http/middleware"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/domain/repository"
	"clinic-booking/internal/service"
	"clinic-booking/pkg/jwt"
	"clinic-booking/pkg/validator"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthUsecase interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.ProviderResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, providerID uuid.UUID, accessTokenID, refreshToken string) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	GetCurrentProvider(ctx context.Context) (*dto.ProviderResponse, error)
}

type authUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	providerRepo repository.ProviderRepository
	auditService service.AuditService
	jwtService   *jwt.JWTService
	redisClient  *redis.Client
}

func NewAuthUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	providerRepo repository.ProviderRepository,
	auditService service.AuditService,
	jwtService *jwt.JWTService,
	redisClient *redis.Client,
) AuthUsecase {
	return &authUsecase{
		db:           db,
		log:          log,
		providerRepo: providerRepo,
		auditService: auditService,
		jwtService:   jwtService,
		redisClient:  redisClient,
	}
}

// Register creates an active provider account. Username and email are unique;
// the database constraint decides between concurrent sign-ups.
func (u *authUsecase) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.ProviderResponse, error) {
	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	provider := &entity.Provider{
		Username:    strings.TrimSpace(req.Username),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Password:    hashedPassword,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		PhoneNumber: strings.TrimPrefix(validator.CleanPhone(req.PhoneNumber), "+"),
	}

	if err := u.providerRepo.Create(ctx, tx, provider); err != nil {
		if isDuplicateKeyError(err, "username") {
			return nil, ErrUsernameTaken
		}
		if isDuplicateKeyError(err, "email") {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create provider: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, &provider.ID, entity.AuditActorProvider, entity.AuditActionProviderRegister,
		"provider", provider.ID.String(), map[string]interface{}{"username": provider.Username, "email": provider.Email}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed to commit transaction: %+v", err)
		return nil, err
	}

	return converter.ProviderToResponse(provider), nil
}

func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// Find provider by email (read-only, no transaction needed)
	provider, err := u.providerRepo.FindByEmail(ctx, u.db, req.Email)
	if err != nil {
		u.log.Warnf("Failed to find provider by email: %+v", err)
		return nil, err
	}
	if provider == nil {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(provider.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !provider.Active() {
		return nil, ErrProviderInactive
	}

	tokens, err := u.issueTokens(ctx, provider.ID, provider.Email)
	if err != nil {
		return nil, err
	}

	// Login audit is best effort and outside any transaction
	if err := u.auditService.LogCreate(ctx, u.db.WithContext(ctx), &provider.ID, entity.AuditActorProvider, entity.AuditActionProviderLogin,
		"provider", provider.ID.String(), map[string]interface{}{"email": provider.Email}); err != nil {
		u.log.Warnf("Failed to audit login for provider %s (non-fatal): %+v", provider.ID, err)
	}

	return tokens, nil
}

// Logout revokes the current access token and, when supplied, its refresh token.
func (u *authUsecase) Logout(ctx context.Context, providerID uuid.UUID, accessTokenID, refreshToken string) error {
	keys := []string{middleware.AccessTokenKey(providerID, accessTokenID)}

	if refreshToken != "" {
		claims, err := u.jwtService.ValidateToken(refreshToken)
		if err == nil && claims.TokenType == jwt.RefreshToken && claims.ProviderID == providerID {
			keys = append(keys, middleware.RefreshTokenKey(providerID, claims.TokenID))
		}
	}

	if err := u.redisClient.Del(ctx, keys...).Err(); err != nil {
		u.log.Warnf("Failed to delete session tokens: %+v", err)
		return err
	}

	if err := u.auditService.LogCreate(ctx, u.db.WithContext(ctx), &providerID, entity.AuditActorProvider, entity.AuditActionProviderLogout,
		"provider", providerID.String(), nil); err != nil {
		u.log.Warnf("Failed to audit logout for provider %s (non-fatal): %+v", providerID, err)
	}
	return nil
}

func (u *authUsecase) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	// Validate refresh token
	claims, err := u.jwtService.ValidateToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != jwt.RefreshToken {
		return nil, ErrInvalidToken
	}

	// Check if refresh token exists in Redis
	refreshKey := middleware.RefreshTokenKey(claims.ProviderID, claims.TokenID)
	deleted, err := u.redisClient.Del(ctx, refreshKey).Result()
	if err != nil {
		u.log.Warnf("Failed to rotate refresh token in Redis: %+v", err)
		return nil, err
	}
	if deleted == 0 {
		return nil, ErrTokenRevoked
	}

	return u.issueTokens(ctx, claims.ProviderID, claims.Email)
}

func (u *authUsecase) GetCurrentProvider(ctx context.Context) (*dto.ProviderResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	provider, err := u.providerRepo.FindByID(ctx, u.db, providerID)
	if err != nil {
		u.log.Warnf("Failed to find provider by ID: %+v", err)
		return nil, err
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}

	return converter.ProviderToResponse(provider), nil
}

func (u *authUsecase) issueTokens(ctx context.Context, providerID uuid.UUID, email string) (*dto.TokenResponse, error) {
	accessToken, accessTokenID, err := u.jwtService.GenerateAccessToken(providerID, email)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	refreshToken, refreshTokenID, err := u.jwtService.GenerateRefreshToken(providerID, email)
	if err != nil {
		u.log.Warnf("Failed to generate refresh token: %+v", err)
		return nil, err
	}

	// Store tokens in Redis
	pipe := u.redisClient.TxPipeline()
	pipe.Set(ctx, middleware.AccessTokenKey(providerID, accessTokenID), "valid", u.jwtService.GetAccessExpiry())
	pipe.Set(ctx, middleware.RefreshTokenKey(providerID, refreshTokenID), "valid", u.jwtService.GetRefreshExpiry())
	if _, err := pipe.Exec(ctx); err != nil {
		u.log.Warnf("Failed to store session tokens in Redis: %+v", err)
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}

// HashPassword is shared by registration and the seed command.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
