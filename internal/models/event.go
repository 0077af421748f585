package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Event is a single calendar entry. Date and times are kept as fixed-width
// text so that string order equals chronological order in every dialect.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          int64     `bun:"event_id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Date        string    `bun:"date,notnull" json:"date"`
	TimeFrom    string    `bun:"time_from,notnull" json:"from"`
	TimeTo      string    `bun:"time_to,notnull" json:"to"`
	Street      string    `bun:"street,notnull" json:"street"`
	Suburb      string    `bun:"suburb,notnull" json:"suburb"`
	State       string    `bun:"state,notnull" json:"state"`
	PostCode    string    `bun:"post_code,notnull" json:"post-code"`
	Description string    `bun:"description,notnull" json:"description"`
	LastUpdate  time.Time `bun:"last_update,notnull" json:"last-update"`
}

type Location struct {
	Street   string `json:"street"`
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
	PostCode string `json:"post-code"`
}

func (e *Event) Location() Location {
	return Location{
		Street:   e.Street,
		Suburb:   e.Suburb,
		State:    e.State,
		PostCode: e.PostCode,
	}
}

// Start returns the event start as a clock value in loc.
func (e *Event) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.TimeFrom, loc)
}

type LocationPayload struct {
	Street   *string `json:"street,omitempty"`
	Suburb   *string `json:"suburb,omitempty"`
	State    *string `json:"state,omitempty"`
	PostCode *string `json:"post-code,omitempty"`
}

// EventPayload is the request body for create and partial update.
// Nil fields were not supplied by the client.
type EventPayload struct {
	Name        *string          `json:"name,omitempty"`
	Date        *string          `json:"date,omitempty"`
	From        *string          `json:"from,omitempty"`
	To          *string          `json:"to,omitempty"`
	Location    *LocationPayload `json:"location,omitempty"`
	Description *string          `json:"description,omitempty"`
}

func (p *EventPayload) IsEmpty() bool {
	if p == nil {
		return true
	}
	loc := p.Location
	return p.Name == nil && p.Date == nil && p.From == nil && p.To == nil && p.Description == nil &&
		(loc == nil || (loc.Street == nil && loc.Suburb == nil && loc.State == nil && loc.PostCode == nil))
}

// ApplyTo copies every supplied field onto e, leaving the rest untouched.
func (p *EventPayload) ApplyTo(e *Event) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.Name, p.Name)
	set(&e.Date, p.Date)
	set(&e.TimeFrom, p.From)
	set(&e.TimeTo, p.To)
	set(&e.Description, p.Description)
	if p.Location != nil {
		set(&e.Street, p.Location.Street)
		set(&e.Suburb, p.Location.Suburb)
		set(&e.PostCode, p.Location.PostCode)
		if p.Location.State != nil {
			e.State = strings.ToUpper(*p.Location.State)
		}
	}
}

type Link struct {
	Href string `json:"href"`
}

type Links map[string]Link

// WriteResponse is returned by create and update.
type WriteResponse struct {
	ID         int64  `json:"id"`
	LastUpdate string `json:"last-update"`
	Links      Links  `json:"_links"`
}

// EventResponse is the full representation returned by GET /events/{id}.
type EventResponse struct {
	ID          int64          `json:"id"`
	LastUpdate  string         `json:"last-update"`
	Name        string         `json:"name"`
	Date        string         `json:"date"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Location    Location       `json:"location"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"_metadata"`
	Links       Links          `json:"_links"`
}

// Neighbors holds the ids of the chronologically adjacent events.
type Neighbors struct {
	Previous *int64
	Next     *int64
}
