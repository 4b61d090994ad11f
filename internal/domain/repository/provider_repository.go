package repository

import (
	"context"

	"clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderRepository interface {
	Create(ctx context.Context, db *gorm.DB, provider *entity.Provider) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Provider, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.Provider, error)
	// FindByIdentifier resolves either a UUID or a username.
	FindByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (*entity.Provider, error)
}
