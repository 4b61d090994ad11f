package repository

import (
	"context"
	"errors"
	"strings"

	"clinic-booking/internal/domain/entity"
	domainRepo "clinic-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type providerRepository struct{}

func NewProviderRepository() domainRepo.ProviderRepository {
	return &providerRepository{}
}

func (r *providerRepository) Create(ctx context.Context, db *gorm.DB, provider *entity.Provider) error {
	return db.WithContext(ctx).Create(provider).Error
}

func (r *providerRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Provider, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *providerRepository) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.Provider, error) {
	return r.first(db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))))
}

func (r *providerRepository) FindByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (*entity.Provider, error) {
	identifier = strings.TrimSpace(identifier)
	if id, err := uuid.Parse(identifier); err == nil {
		return r.FindByID(ctx, db, id)
	}
	return r.first(db.WithContext(ctx).Where("username = ?", identifier))
}

func (r *providerRepository) first(query *gorm.DB) (*entity.Provider, error) {
	var provider entity.Provider
	err := query.First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &provider, nil
}
