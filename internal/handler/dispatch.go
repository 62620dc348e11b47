package handler

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/stillmind/api/internal/worker"
	"github.com/stillmind/api/pkg/response"
)

// DispatchHandler exposes the queue drain to trusted callers. The endpoint is
// invoked by a scheduler (cron, systemd timer) rather than end users, so it
// authenticates with a shared secret header instead of a bearer token.
type DispatchHandler struct {
	dispatcher *worker.Dispatcher
	secret     string
}

func NewDispatchHandler(d *worker.Dispatcher, secret string) *DispatchHandler {
	return &DispatchHandler{
		dispatcher: d,
		secret:     secret,
	}
}

// Dispatch handles POST /internal/worker/dispatch
// @Summary      Run one dispatch cycle
// @Description  Reset expired leases, claim pending render jobs and process them
// @Tags         Worker
// @Produce      json
// @Param        X-Worker-Secret header string true "Shared worker secret"
// @Success      200 {object} model.DispatchResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /internal/worker/dispatch [post]
func (h *DispatchHandler) Dispatch(c *fiber.Ctx) error {
	if h.secret == "" {
		return response.Unauthorized(c, "Worker dispatch is not configured")
	}
	provided := c.Get("X-Worker-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		return response.Unauthorized(c, "Invalid worker secret")
	}

	result, err := h.dispatcher.RunCycle(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
