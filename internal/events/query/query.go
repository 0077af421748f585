// Package query turns list parameters (order, page, size, filter) into a
// validated sort and projection, and shapes listed events and page links.
package query

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"ms-events/internal/models"
)

const (
	DefaultOrder  = "+id"
	DefaultPage   = 1
	DefaultSize   = 10
	DefaultFilter = "id,name"
)

// sortKeys maps a public order field to the columns it sorts by.
var sortKeys = map[string][]string{
	"id":       {"event_id"},
	"name":     {"name"},
	"datetime": {"date", "time_from"},
}

var orderToken = regexp.MustCompile(`^([+-])([a-z]+)$`)

// Field describes how one public filter name is read from the store and
// rendered in a listed event.
type Field struct {
	Columns []string
	Render  func(e *models.Event) any
}

// Fields is the projection table for the filter parameter.
var Fields = map[string]Field{
	"id": {
		Columns: []string{"event_id"},
		Render:  func(e *models.Event) any { return e.ID },
	},
	"name": {
		Columns: []string{"name"},
		Render:  func(e *models.Event) any { return e.Name },
	},
	"date": {
		Columns: []string{"date"},
		Render:  func(e *models.Event) any { return e.Date },
	},
	"from": {
		Columns: []string{"time_from"},
		Render:  func(e *models.Event) any { return e.TimeFrom },
	},
	"to": {
		Columns: []string{"time_to"},
		Render:  func(e *models.Event) any { return e.TimeTo },
	},
	"location": {
		Columns: []string{"street", "suburb", "state", "post_code"},
		Render:  func(e *models.Event) any { return e.Location() },
	},
}

// SortKey is one ORDER BY term.
type SortKey struct {
	Column     string
	Descending bool
}

func (k SortKey) String() string {
	if k.Descending {
		return k.Column + " DESC"
	}
	return k.Column + " ASC"
}

// Query is a validated list request.
type Query struct {
	Order  string
	Filter string
	Sort   []SortKey
	Fields []string
	Page   int
	Size   int
}

// Parse validates the raw parameters. Empty values fall back to defaults.
func Parse(order, page, size, filter string) (*Query, error) {
	errs := make(map[string]string)
	q := &Query{Order: order, Filter: filter, Page: DefaultPage, Size: DefaultSize}

	if q.Order == "" {
		q.Order = DefaultOrder
	}
	if q.Filter == "" {
		q.Filter = DefaultFilter
	}

	sortSpec, err := parseOrder(q.Order)
	if err != nil {
		errs["order"] = err.Error()
	}
	q.Sort = sortSpec

	fields, err := parseFilter(q.Filter)
	if err != nil {
		errs["filter"] = err.Error()
	}
	q.Fields = fields

	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			errs["page"] = fmt.Sprintf("%s is an invalid page. Please use an integer of at least 1", page)
		}
		q.Page = n
	}
	if size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 1 {
			errs["size"] = fmt.Sprintf("%s is an invalid size. Please use an integer of at least 1", size)
		}
		q.Size = n
	}

	if errs["page"] == "" && errs["size"] == "" && q.Page-1 > math.MaxInt/q.Size {
		errs["page"] = fmt.Sprintf("%d is out of range for a page size of %d", q.Page, q.Size)
	}

	if len(errs) > 0 {
		return nil, &models.ValidationError{Fields: errs}
	}
	return q, nil
}

// parseOrder places datetime ahead of every other key, keeping the relative
// order of the remaining ones. event_id closes the sort when id is not
// listed so that pages are stable.
func parseOrder(order string) ([]SortKey, error) {
	var leading, rest []SortKey
	seen := make(map[string]bool)

	for _, token := range strings.Split(order, ",") {
		// An unescaped '+' in a query string arrives as a space.
		if strings.HasPrefix(token, " ") {
			token = "+" + strings.TrimSpace(token)
		}
		token = strings.TrimSpace(token)
		m := orderToken.FindStringSubmatch(token)
		if m == nil {
			return nil, fmt.Errorf("%q is not a valid order token, expected +field or -field", token)
		}
		field := m[2]
		columns, ok := sortKeys[field]
		if !ok {
			return nil, fmt.Errorf("%q is not an orderable field, use id, name or datetime", field)
		}
		if seen[field] {
			return nil, fmt.Errorf("%q is ordered more than once", field)
		}
		seen[field] = true

		desc := m[1] == "-"
		keys := make([]SortKey, 0, len(columns))
		for _, c := range columns {
			keys = append(keys, SortKey{Column: c, Descending: desc})
		}
		if field == "datetime" {
			leading = append(leading, keys...)
		} else {
			rest = append(rest, keys...)
		}
	}
	keys := append(leading, rest...)
	if !seen["id"] {
		keys = append(keys, SortKey{Column: "event_id"})
	}
	return keys, nil
}

func parseFilter(filter string) ([]string, error) {
	var fields []string
	seen := make(map[string]bool)
	for _, token := range strings.Split(filter, ",") {
		token = strings.TrimSpace(token)
		if _, ok := Fields[token]; !ok {
			return nil, fmt.Errorf("%q is not a valid filter, use id, name, date, from, to or location", token)
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		fields = append(fields, token)
	}
	return fields, nil
}

// Columns returns the store columns needed for the projection.
func (q *Query) Columns() []string {
	var cols []string
	for _, f := range q.Fields {
		cols = append(cols, Fields[f].Columns...)
	}
	return cols
}

// OrderBy returns the ORDER BY terms.
func (q *Query) OrderBy() []string {
	terms := make([]string, 0, len(q.Sort))
	for _, k := range q.Sort {
		terms = append(terms, k.String())
	}
	return terms
}

func (q *Query) Offset() int {
	return (q.Page - 1) * q.Size
}

// NumPages is ceil(total / size).
func (q *Query) NumPages(total int) int {
	n := total / q.Size
	if total%q.Size != 0 {
		n++
	}
	return n
}

// Shape renders an event with only the requested fields.
func (q *Query) Shape(e *models.Event) map[string]any {
	out := make(map[string]any, len(q.Fields))
	for _, f := range q.Fields {
		out[f] = Fields[f].Render(e)
	}
	return out
}

// Href builds the list URL for page.
func (q *Query) Href(path string, page int) string {
	v := url.Values{}
	v.Set("order", q.Order)
	v.Set("page", strconv.Itoa(page))
	v.Set("size", strconv.Itoa(q.Size))
	v.Set("filter", q.Filter)
	return path + "?" + v.Encode()
}

// Links returns self and, while more pages remain, next. No previous link
// is produced.
func (q *Query) Links(path string, total int) models.Links {
	links := models.Links{"self": {Href: q.Href(path, q.Page)}}
	if q.Page < q.NumPages(total) {
		links["next"] = models.Link{Href: q.Href(path, q.Page+1)}
	}
	return links
}

// Page is the list response body.
type Page struct {
	Page     int              `json:"page"`
	PageSize int              `json:"page-size"`
	Events   []map[string]any `json:"events"`
	Links    models.Links     `json:"_links"`
}
