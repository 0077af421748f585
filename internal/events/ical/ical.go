// Package ical renders stored events as an iCalendar feed.
package ical

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"ms-events/internal/models"
)

const (
	productID = "-//ms-events//calendar export//EN"
	// floating local time, no TZID
	localLayout = "20060102T150405"
)

type Feed struct {
	Name    string
	BaseURL string
}

// Render returns a VCALENDAR with one VEVENT per event.
func (f Feed) Render(events []models.Event, now time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if f.Name != "" {
		cal.SetXWRCalName(f.Name)
	}

	host := "localhost"
	if u, err := url.Parse(f.BaseURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	for i := range events {
		e := &events[i]
		start, err := localStamp(e.Date, e.TimeFrom)
		if err != nil {
			return "", fmt.Errorf("event %d: %w", e.ID, err)
		}
		end, err := localStamp(e.Date, e.TimeTo)
		if err != nil {
			return "", fmt.Errorf("event %d: %w", e.ID, err)
		}

		ev := cal.AddEvent(fmt.Sprintf("event-%d@%s", e.ID, host))
		ev.SetDtStampTime(now.UTC())
		ev.SetModifiedAt(e.LastUpdate.UTC())
		ev.SetProperty(ics.ComponentPropertyDtStart, start)
		ev.SetProperty(ics.ComponentPropertyDtEnd, end)
		ev.SetSummary(e.Name)
		ev.SetDescription(e.Description)
		ev.SetLocation(Location(e))
		if f.BaseURL != "" {
			ev.SetURL(fmt.Sprintf("%s/events/%d", strings.TrimRight(f.BaseURL, "/"), e.ID))
		}
	}
	return cal.Serialize(), nil
}

func localStamp(date, clock string) (string, error) {
	t, err := time.Parse(models.DateLayout+" "+models.TimeLayout, date+" "+clock)
	if err != nil {
		return "", fmt.Errorf("bad date/time %s %s: %w", date, clock, err)
	}
	return t.Format(localLayout), nil
}

// Location formats the postal address on one line.
func Location(e *models.Event) string {
	return fmt.Sprintf("%s, %s %s %s", e.Street, e.Suburb, e.State, e.PostCode)
}
