package converter

import (
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/domain/entity"
)

// ProviderToResponse converts a Provider entity to the authenticated ProviderResponse DTO
func ProviderToResponse(provider *entity.Provider) *dto.ProviderResponse {
	if provider == nil {
		return nil
	}

	return &dto.ProviderResponse{
		ID:          provider.ID,
		Username:    provider.Username,
		Email:       provider.Email,
		DisplayName: provider.DisplayName(),
		FirstName:   provider.FirstName,
		LastName:    provider.LastName,
		PhoneNumber: provider.PhoneNumber,
		CreatedAt:   provider.CreatedAt,
		UpdatedAt:   provider.UpdatedAt,
	}
}

// ProviderToPublicResponse hides contact details from patients
func ProviderToPublicResponse(provider *entity.Provider) *dto.PublicProviderResponse {
	if provider == nil {
		return nil
	}

	return &dto.PublicProviderResponse{
		ID:          provider.ID,
		Username:    provider.Username,
		DisplayName: provider.DisplayName(),
	}
}
