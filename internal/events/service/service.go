package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-events/internal/config"
	"ms-events/internal/events/query"
	"ms-events/internal/events/validation"
	"ms-events/internal/external/holiday"
	"ms-events/internal/external/weather"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/redis"
)

type EventDBLayer interface {
	Get(ctx context.Context, id int64) (*models.Event, error)
	Delete(ctx context.Context, id int64) error
	CreateIfFree(ctx context.Context, event *models.Event) error
	UpdateIfFree(ctx context.Context, id int64, mutate func(*models.Event) error) (*models.Event, error)
	Scan(ctx context.Context, columns []string, order []string, limit, offset int) ([]models.Event, error)
	All(ctx context.Context) ([]models.Event, error)
	Neighbors(ctx context.Context, e *models.Event) (models.Neighbors, error)
	Count(ctx context.Context) (int, error)
	CountBetween(ctx context.Context, from, to string) (int, error)
	MinMaxDate(ctx context.Context) (string, string, error)
	CountPerDay(ctx context.Context) (map[string]int, error)
	CountPerMonth(ctx context.Context, year int) (map[int]int, error)
}

type Publisher interface {
	PublishCreated(ctx context.Context, event *models.Event) error
	PublishUpdated(ctx context.Context, event *models.Event) error
	PublishDeleted(ctx context.Context, eventID int64) error
}

type HolidayLookup interface {
	PublicHolidays(ctx context.Context, year int, country string) ([]holiday.Holiday, error)
}

type ForecastLookup interface {
	Forecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
}

type Geocoder interface {
	Resolve(suburb, state string) (float64, float64, bool)
}

type EventService struct {
	DB        EventDBLayer
	Locks     redis.Locker
	Publisher Publisher
	Holidays  HolidayLookup
	Weather   ForecastLookup
	Geo       Geocoder
	Logger    *logger.Logger

	Country  string
	Location *time.Location
	Cities   []config.City
	Now      func() time.Time
}

// NewEventService wires the store with in-process locking and no publisher.
// Callers replace the collaborators they have.
func NewEventService(db EventDBLayer, log *logger.Logger) *EventService {
	return &EventService{
		DB:        db,
		Locks:     redis.NewLocalLock(),
		Publisher: kafka.NoopPublisher{},
		Logger:    log,
		Country:   "AU",
		Location:  time.UTC,
		Cities:    config.DefaultCities(),
		Now:       time.Now,
	}
}

func (s *EventService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *EventService) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// Create validates p, then inserts it unless it overlaps a stored event.
func (s *EventService) Create(ctx context.Context, p *models.EventPayload) (*models.Event, error) {
	if p.IsEmpty() {
		return nil, models.ErrEmptyPayload
	}
	if missing := validation.Missing(p); len(missing) > 0 {
		return nil, &models.MissingFieldError{Fields: missing}
	}
	if errs := validation.Validate(p); len(errs) > 0 {
		return nil, &models.ValidationError{Fields: errs}
	}

	event := &models.Event{}
	p.ApplyTo(event)

	unlock, err := s.Locks.LockDates(ctx, event.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", event.Date, err)
	}
	defer unlock()

	if err := s.DB.CreateIfFree(ctx, event); err != nil {
		var overlap *models.OverlapError
		if errors.As(err, &overlap) {
			s.Logger.Warn("EVENT", fmt.Sprintf("create rejected, overlaps event %d", overlap.ConflictID))
		}
		return nil, err
	}

	s.Logger.LogEvent("CREATE", event.ID, fmt.Sprintf("%s on %s %s-%s", event.Name, event.Date, event.TimeFrom, event.TimeTo))
	if err := s.Publisher.PublishCreated(ctx, event); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish create of event %d: %v", event.ID, err))
	}
	return event, nil
}

// Update applies the supplied fields of p to event id. The merged interval is
// re-validated and checked against every other event.
func (s *EventService) Update(ctx context.Context, id int64, p *models.EventPayload) (*models.Event, error) {
	if p.IsEmpty() {
		return nil, models.ErrEmptyPayload
	}
	if errs := validation.Validate(p); len(errs) > 0 {
		return nil, &models.ValidationError{Fields: errs}
	}

	for attempt := 1; ; attempt++ {
		updated, err := s.updateLocked(ctx, id, p)
		if errors.Is(err, errDateMoved) {
			if attempt < maxUpdateAttempts {
				s.Logger.Warn("EVENT", fmt.Sprintf("event %d moved while locking, retrying", id))
				continue
			}
			return nil, fmt.Errorf("event %d kept moving while locking: %w", id, redis.ErrLockTimeout)
		}
		if err != nil {
			return nil, err
		}

		s.Logger.LogEvent("UPDATE", updated.ID, fmt.Sprintf("%s on %s %s-%s", updated.Name, updated.Date, updated.TimeFrom, updated.TimeTo))
		if err := s.Publisher.PublishUpdated(ctx, updated); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish update of event %d: %v", updated.ID, err))
		}
		return updated, nil
	}
}

const maxUpdateAttempts = 3

// errDateMoved means the stored date changed between the read that chose the
// locks and the write.
var errDateMoved = errors.New("event date changed while locking")

func (s *EventService) updateLocked(ctx context.Context, id int64, p *models.EventPayload) (*models.Event, error) {
	current, err := s.DB.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dates := []string{current.Date}
	if p.Date != nil {
		dates = append(dates, *p.Date)
	}

	unlock, err := s.Locks.LockDates(ctx, dates...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %v: %w", dates, err)
	}
	defer unlock()

	return s.DB.UpdateIfFree(ctx, id, func(e *models.Event) error {
		if e.Date != current.Date {
			return errDateMoved
		}
		p.ApplyTo(e)
		if errs := validation.ValidateRange(e.TimeFrom, e.TimeTo); len(errs) > 0 {
			return &models.ValidationError{Fields: errs}
		}
		return nil
	})
}

func (s *EventService) Delete(ctx context.Context, id int64) error {
	if err := s.DB.Delete(ctx, id); err != nil {
		return err
	}

	s.Logger.LogEvent("DELETE", id, "removed")
	if err := s.Publisher.PublishDeleted(ctx, id); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish delete of event %d: %v", id, err))
	}
	return nil
}

// Get returns the event with its metadata and links to its chronological
// neighbours.
func (s *EventService) Get(ctx context.Context, id int64) (*models.EventResponse, error) {
	event, err := s.DB.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	neighbors, err := s.DB.Neighbors(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve neighbours of event %d: %w", id, err)
	}

	meta, err := s.Metadata(ctx, event)
	if err != nil {
		return nil, err
	}

	links := models.Links{"self": {Href: EventPath(event.ID)}}
	if neighbors.Previous != nil {
		links["previous"] = models.Link{Href: EventPath(*neighbors.Previous)}
	}
	if neighbors.Next != nil {
		links["next"] = models.Link{Href: EventPath(*neighbors.Next)}
	}

	return &models.EventResponse{
		ID:          event.ID,
		LastUpdate:  event.LastUpdate.Format(models.TimestampLayout),
		Name:        event.Name,
		Date:        event.Date,
		From:        event.TimeFrom,
		To:          event.TimeTo,
		Location:    event.Location(),
		Description: event.Description,
		Metadata:    meta,
		Links:       links,
	}, nil
}

// List returns one page of events shaped by q.
func (s *EventService) List(ctx context.Context, q *query.Query) (*query.Page, error) {
	total, err := s.DB.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	if q.Page > q.NumPages(total) {
		return nil, models.ErrPageNotFound
	}

	events, err := s.DB.Scan(ctx, q.Columns(), q.OrderBy(), q.Size, q.Offset())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidQuery, err)
	}
	if len(events) == 0 {
		return nil, models.ErrPageNotFound
	}

	shaped := make([]map[string]any, 0, len(events))
	for i := range events {
		shaped = append(shaped, q.Shape(&events[i]))
	}

	return &query.Page{
		Page:     q.Page,
		PageSize: q.Size,
		Events:   shaped,
		Links:    q.Links(ListPath, total),
	}, nil
}

// Find returns the stored event without metadata.
func (s *EventService) Find(ctx context.Context, id int64) (*models.Event, error) {
	return s.DB.Get(ctx, id)
}

// All returns every event in chronological order.
func (s *EventService) All(ctx context.Context) ([]models.Event, error) {
	return s.DB.All(ctx)
}

const ListPath = "/events"

func EventPath(id int64) string {
	return fmt.Sprintf("%s/%d", ListPath, id)
}

// WriteResponse is the body returned after create and update.
func WriteResponse(e *models.Event) models.WriteResponse {
	return models.WriteResponse{
		ID:         e.ID,
		LastUpdate: e.LastUpdate.Format(models.TimestampLayout),
		Links:      models.Links{"self": {Href: EventPath(e.ID)}},
	}
}
