package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stillmind/api/internal/middleware"
	"github.com/stillmind/api/internal/model"
	"github.com/stillmind/api/internal/service"
	"github.com/stillmind/api/internal/store"
	"github.com/stillmind/api/pkg/response"
)

type EditHandler struct {
	service   *service.EditService
	validator *validator.Validate
}

func NewEditHandler(svc *service.EditService, v *validator.Validate) *EditHandler {
	return &EditHandler{
		service:   svc,
		validator: v,
	}
}

// Edit handles POST /api/tracks/:trackId/edit
// @Summary      Edit track
// @Description  Apply a partial edit to a track and queue a re-render. Edits beyond the free allowance require a payment token.
// @Tags         Tracks
// @Accept       json
// @Produce      json
// @Param        trackId path string true "Track ID"
// @Param        request body model.EditRequest true "Partial edit"
// @Success      202 {object} model.EditResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      402 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/tracks/{trackId}/edit [post]
func (h *EditHandler) Edit(c *fiber.Ctx) error {
	trackID := c.Params("trackId")
	if trackID == "" {
		return response.ValidationError(c, "Track ID is required", nil)
	}

	var req model.EditRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	userID := middleware.GetUserID(c)
	result, err := h.service.RequestEdit(c.Context(), trackID, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTrackNotFound):
			return response.NotFound(c, "Track not found")
		case errors.Is(err, service.ErrNotOwner):
			return response.Forbidden(c, "Track belongs to another user")
		case errors.Is(err, service.ErrTrackArchived):
			return response.ValidationError(c, "Archived tracks cannot be edited", nil)
		case errors.Is(err, service.ErrPaymentRequired):
			eligibility, elErr := h.service.Eligibility(c.Context(), trackID, userID)
			if elErr != nil {
				return response.PaymentRequired(c, "Free edit allowance exhausted", nil)
			}
			return response.PaymentRequired(c, "Free edit allowance exhausted", eligibility)
		case errors.Is(err, service.ErrInvalidConfig):
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Eligibility handles GET /api/tracks/:trackId/edit/eligibility
// @Summary      Check edit eligibility
// @Description  Report remaining free edits and the fee for further edits
// @Tags         Tracks
// @Produce      json
// @Param        trackId path string true "Track ID"
// @Success      200 {object} model.EditEligibilityResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/tracks/{trackId}/edit/eligibility [get]
func (h *EditHandler) Eligibility(c *fiber.Ctx) error {
	trackID := c.Params("trackId")
	if trackID == "" {
		return response.ValidationError(c, "Track ID is required", nil)
	}

	userID := middleware.GetUserID(c)
	result, err := h.service.Eligibility(c.Context(), trackID, userID)
	if err != nil {
		if errors.Is(err, store.ErrTrackNotFound) {
			return response.NotFound(c, "Track not found")
		}
		if errors.Is(err, service.ErrNotOwner) {
			return response.Forbidden(c, "Track belongs to another user")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
