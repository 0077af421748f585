package event_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/events/flyer"
	"ms-events/internal/events/ical"
	"ms-events/internal/events/qr"
	"ms-events/internal/events/query"
	"ms-events/internal/events/service"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	Service *service.EventService
	QR      *qr.Generator
	Flyer   *flyer.Generator
	Feed    ical.Feed
	Logger  *logger.Logger
	// Ping reports store health; nil skips the check.
	Ping func(ctx context.Context) error
}

func NewHandler(svc *service.EventService, qrGen *qr.Generator, feed ical.Feed, log *logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		QR:      qrGen,
		Flyer:   flyer.NewGenerator(),
		Feed:    feed,
		Logger:  log,
	}
}

// RegisterRoutes registers the event routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/statistics", h.GetStatistics)
		r.Get("/export.ics", h.ExportCalendar)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Patch("/", h.UpdateEvent)
			r.Delete("/", h.DeleteEvent)
			r.Get("/qr", h.GetEventQR)
			r.Get("/flyer", h.GetEventFlyer)
		})
	})
	r.Get("/weather", h.GetWeather)
	r.Get("/health", h.Health)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
		return
	}

	event, err := h.Service.Create(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, service.WriteResponse(event))
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q, err := query.Parse(params.Get("order"), params.Get("page"), params.Get("size"), params.Get("filter"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	page, err := h.Service.List(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeEventError(w, id, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	payload, err := decodePayload(w, r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
		return
	}

	event, err := h.Service.Update(r.Context(), id, payload)
	if err != nil {
		h.writeEventError(w, id, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, service.WriteResponse(event))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.writeEventError(w, id, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.MessageResponse{
		Message: fmt.Sprintf("The event with id %d was removed from the database!", id),
		ID:      id,
	})
}

func (h *Handler) GetEventQR(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	if _, err := h.Service.Find(r.Context(), id); err != nil {
		h.writeEventError(w, id, err)
		return
	}

	png, err := h.QR.EventPNG(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteBytes(w, http.StatusOK, "image/png", png)
}

// GetEventFlyer returns a printable PDF with the event details and its QR code.
func (h *Handler) GetEventFlyer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, err := h.Service.Find(r.Context(), id)
	if err != nil {
		h.writeEventError(w, id, err)
		return
	}

	png, err := h.QR.EventPNG(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	doc, err := h.Flyer.Render(event, png)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="event-%d.pdf"`, id))
	utils.WriteBytes(w, http.StatusOK, "application/pdf", doc)
}

func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.All(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	body, err := h.Feed.Render(events, time.Now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	utils.WriteBytes(w, http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	format, ok := h.format(w, r)
	if !ok {
		return
	}

	if format == "image" {
		img, err := h.Service.StatisticsImage(r.Context())
		if err != nil {
			h.writeError(w, err)
			return
		}
		utils.WriteBytes(w, http.StatusOK, "image/png", img)
		return
	}

	stats, err := h.Service.Statistics(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	format, ok := h.format(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		h.writeError(w, models.NewValidationError("date", "date is required, use YYYY-MM-DD"))
		return
	}

	snap, err := h.Service.WeatherSnapshot(r.Context(), date)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if format == "image" {
		if len(snap.Cities) == 0 {
			h.writeError(w, fmt.Errorf("%w: no forecast available for %s", models.ErrUpstream, date))
			return
		}
		img, err := service.SnapshotImage(snap)
		if err != nil {
			h.writeError(w, err)
			return
		}
		utils.WriteBytes(w, http.StatusOK, "image/png", img)
		return
	}
	utils.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			h.Logger.Error("HEALTH", fmt.Sprintf("store ping failed: %v", err))
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// eventID parses the {id} path parameter, answering 400 itself on failure.
func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, models.NewValidationError("id", fmt.Sprintf("%s is not a valid event id", raw)))
		return 0, false
	}
	return id, true
}

func (h *Handler) format(w http.ResponseWriter, r *http.Request) (string, bool) {
	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		return "json", true
	case "image":
		return "image", true
	default:
		h.writeError(w, models.NewValidationError("format", fmt.Sprintf("%s is not a valid format, use json or image", format)))
		return "", false
	}
}

// decodePayload reads an event payload. An empty body decodes to an empty
// payload so the service reports it.
func decodePayload(w http.ResponseWriter, r *http.Request) (*models.EventPayload, error) {
	var payload models.EventPayload
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload)
	if errors.Is(err, io.EOF) {
		return &payload, nil
	}
	if err != nil {
		return nil, err
	}
	return &payload, nil
}
