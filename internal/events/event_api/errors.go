package event_api

import (
	"errors"
	"fmt"
	"net/http"

	"ms-events/internal/models"
	"ms-events/internal/redis"
	"ms-events/internal/utils"
)

// writeError maps service errors to status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		invalid *models.ValidationError
		missing *models.MissingFieldError
		overlap *models.OverlapError
	)

	switch {
	case errors.As(err, &invalid):
		utils.WriteError(w, http.StatusBadRequest, "Invalid input", invalid.Fields)
	case errors.As(err, &missing):
		fields := make(map[string]string, len(missing.Fields))
		for _, f := range missing.Fields {
			fields[f] = f + " is required"
		}
		utils.WriteError(w, http.StatusBadRequest, "Missing required fields", fields)
	case errors.As(err, &overlap):
		utils.WriteError(w, http.StatusBadRequest, "Event overlaps with another event", map[string]string{
			"time_range": fmt.Sprintf("overlaps with event %d", overlap.ConflictID),
		})
	case errors.Is(err, models.ErrEmptyPayload),
		errors.Is(err, models.ErrInvalidQuery):
		utils.WriteError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrNoEvents),
		errors.Is(err, models.ErrPageNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, models.ErrUpstream):
		h.Logger.Warn("UPSTREAM", err.Error())
		utils.WriteError(w, http.StatusBadGateway, err.Error(), nil)
	case errors.Is(err, redis.ErrLockTimeout):
		utils.WriteError(w, http.StatusServiceUnavailable, "The calendar is busy, please retry", nil)
	default:
		h.Logger.Error("API", fmt.Sprintf("unhandled error: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func (h *Handler) writeEventError(w http.ResponseWriter, id int64, err error) {
	if errors.Is(err, models.ErrEventNotFound) {
		utils.WriteError(w, http.StatusNotFound, fmt.Sprintf("Event %d doesn't exist", id), nil)
		return
	}
	h.writeError(w, err)
}
