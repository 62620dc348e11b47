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

type TrackHandler struct {
	service   *service.RenderService
	validator *validator.Validate
}

func NewTrackHandler(svc *service.RenderService, v *validator.Validate) *TrackHandler {
	return &TrackHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/tracks
// @Summary      Create track
// @Description  Submit a track for asynchronous audio rendering
// @Tags         Tracks
// @Accept       json
// @Produce      json
// @Param        request body model.CreateTrackRequest true "Track submission"
// @Success      202 {object} model.CreateTrackResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/tracks [post]
func (h *TrackHandler) Create(c *fiber.Ctx) error {
	var req model.CreateTrackRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	userID := middleware.GetUserID(c)
	result, err := h.service.CreateTrack(c.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidConfig) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Get handles GET /api/tracks/:trackId
// @Summary      Get track
// @Description  Get a track's configuration, status and output URL
// @Tags         Tracks
// @Produce      json
// @Param        trackId path string true "Track ID"
// @Success      200 {object} model.Track
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/tracks/{trackId} [get]
func (h *TrackHandler) Get(c *fiber.Ctx) error {
	trackID := c.Params("trackId")
	if trackID == "" {
		return response.ValidationError(c, "Track ID is required", nil)
	}

	userID := middleware.GetUserID(c)
	track, err := h.service.GetTrack(c.Context(), trackID, userID)
	if err != nil {
		if errors.Is(err, store.ErrTrackNotFound) {
			return response.NotFound(c, "Track not found")
		}
		if errors.Is(err, service.ErrNotOwner) {
			return response.Forbidden(c, "Track belongs to another user")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, track)
}
