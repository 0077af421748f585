// Package validation checks event payload fields without touching the store.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"ms-events/internal/models"
)

const (
	minLength = 1
	maxLength = 64
)

const (
	invalidNameMsg        = "%s is an invalid name. Please use a name with 1-64 characters"
	invalidDateMsg        = "%s is an invalid date format. Please use the YYYY-MM-DD format"
	invalidTimeMsg        = "%s is an invalid time format. Please use the HH:MM:SS format"
	invalidTimeRangeMsg   = "Invalid time range: %s must be before %s"
	invalidStreetMsg      = "%s is an invalid street. Please use a street with 1-64 characters"
	invalidSuburbMsg      = "%s is an invalid suburb. Please use a suburb with 1-64 characters"
	invalidPostcodeMsg    = "%s is not a valid Australian postcode"
	invalidStateMsg       = "%s is not a valid Australian state"
	invalidDescriptionMsg = "%s is an invalid description. Please use a description with 1-64 characters"
)

var postcodePattern = regexp.MustCompile(`^\d{4}$`)

// States lists the recognised Australian state and territory codes.
var States = []string{"NSW", "VIC", "QLD", "SA", "WA", "TAS", "NT", "ACT"}

func String(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= minLength && n <= maxLength
}

func Date(s string) bool {
	_, err := time.Parse(models.DateLayout, s)
	return err == nil
}

// Time rejects lenient forms such as "9:00:00" that would still parse.
func Time(s string) bool {
	if len(s) != len(models.TimeLayout) {
		return false
	}
	_, err := time.Parse(models.TimeLayout, s)
	return err == nil
}

// TimeRange assumes both arguments already passed Time.
func TimeRange(from, to string) bool {
	f, err := time.Parse(models.TimeLayout, from)
	if err != nil {
		return false
	}
	t, err := time.Parse(models.TimeLayout, to)
	if err != nil {
		return false
	}
	return f.Before(t)
}

func Postcode(s string) bool {
	return postcodePattern.MatchString(s)
}

func State(s string) bool {
	upper := strings.ToUpper(s)
	for _, st := range States {
		if st == upper {
			return true
		}
	}
	return false
}

// Validate checks every field present in p and returns field -> message for
// the invalid ones. Absent fields are skipped.
func Validate(p *models.EventPayload) map[string]string {
	errs := make(map[string]string)
	if p == nil {
		return errs
	}

	checkString := func(key string, v *string, msg string) {
		if v != nil && !String(*v) {
			errs[key] = fmt.Sprintf(msg, quote(*v))
		}
	}

	checkString("name", p.Name, invalidNameMsg)
	checkString("description", p.Description, invalidDescriptionMsg)

	if p.Date != nil && !Date(*p.Date) {
		errs["date"] = fmt.Sprintf(invalidDateMsg, quote(*p.Date))
	}

	fromOK := p.From != nil && Time(*p.From)
	toOK := p.To != nil && Time(*p.To)
	if p.From != nil && !fromOK {
		errs["from"] = fmt.Sprintf(invalidTimeMsg, quote(*p.From))
	}
	if p.To != nil && !toOK {
		errs["to"] = fmt.Sprintf(invalidTimeMsg, quote(*p.To))
	}
	if fromOK && toOK && !TimeRange(*p.From, *p.To) {
		errs["time_range"] = fmt.Sprintf(invalidTimeRangeMsg, *p.From, *p.To)
	}

	if loc := p.Location; loc != nil {
		checkString("street", loc.Street, invalidStreetMsg)
		checkString("suburb", loc.Suburb, invalidSuburbMsg)
		if loc.PostCode != nil && !Postcode(*loc.PostCode) {
			errs["post-code"] = fmt.Sprintf(invalidPostcodeMsg, quote(*loc.PostCode))
		}
		if loc.State != nil && !State(*loc.State) {
			errs["state"] = fmt.Sprintf(invalidStateMsg, quote(*loc.State))
		}
	}
	return errs
}

// ValidateRange checks the interval of an already merged event.
func ValidateRange(from, to string) map[string]string {
	errs := make(map[string]string)
	if Time(from) && Time(to) && !TimeRange(from, to) {
		errs["time_range"] = fmt.Sprintf(invalidTimeRangeMsg, from, to)
	}
	return errs
}

// Missing returns the required fields that are absent from a create payload.
func Missing(p *models.EventPayload) []string {
	var missing []string
	add := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	add("name", p.Name != nil)
	add("date", p.Date != nil)
	add("from", p.From != nil)
	add("to", p.To != nil)
	loc := p.Location
	if loc == nil {
		missing = append(missing, "location")
	} else {
		add("location.street", loc.Street != nil)
		add("location.suburb", loc.Suburb != nil)
		add("location.state", loc.State != nil)
		add("location.post-code", loc.PostCode != nil)
	}
	add("description", p.Description != nil)
	return missing
}

// quote keeps empty values readable in messages.
func quote(s string) string {
	if s == "" {
		return `""`
	}
	return s
}
