package handler

import (
	"encoding/json"
	"net/http"

	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/usecase"
	"clinic-booking/pkg/response"
	"clinic-booking/pkg/validator"
)

type CatalogHandler struct {
	catalogUsecase usecase.CatalogUsecase
	validator      *validator.CustomValidator
}

func NewCatalogHandler(catalogUsecase usecase.CatalogUsecase, validator *validator.CustomValidator) *CatalogHandler {
	return &CatalogHandler{
		catalogUsecase: catalogUsecase,
		validator:      validator,
	}
}

func (h *CatalogHandler) GetVisitTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalogUsecase.GetVisitTypes(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get visit types")
		return
	}

	response.Success(w, http.StatusOK, "Visit types retrieved successfully", types)
}

func (h *CatalogHandler) GetHealthInsurances(w http.ResponseWriter, r *http.Request) {
	insurances, err := h.catalogUsecase.GetHealthInsurances(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get health insurances")
		return
	}

	response.Success(w, http.StatusOK, "Health insurances retrieved successfully", insurances)
}

// ReplaceHealthInsurances swaps the whole list in one transaction.
func (h *CatalogHandler) ReplaceHealthInsurances(w http.ResponseWriter, r *http.Request) {
	var req dto.ReplaceHealthInsurancesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	insurances, err := h.catalogUsecase.ReplaceHealthInsurances(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to update health insurances")
		return
	}

	response.Success(w, http.StatusOK, "Health insurances updated successfully", insurances)
}
