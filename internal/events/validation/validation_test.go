package validation_test

import (
	"strings"
	"testing"

	"ms-events/internal/events/validation"
	"ms-events/internal/models"

	"github.com/stretchr/testify/assert"
)

func str(s string) *string { return &s }

func fullPayload() *models.EventPayload {
	return &models.EventPayload{
		Name: str("Party"),
		Date: str("2024-06-01"),
		From: str("16:00:00"),
		To:   str("20:00:00"),
		Location: &models.LocationPayload{
			Street:   str("1 Main St"),
			Suburb:   str("Kensington"),
			State:    str("NSW"),
			PostCode: str("2033"),
		},
		Description: str("x"),
	}
}

func TestValidate_FullPayloadIsValid(t *testing.T) {
	assert.Empty(t, validation.Validate(fullPayload()))
}

func TestValidate_StringLength(t *testing.T) {
	p := fullPayload()
	p.Name = str("")
	p.Description = str(strings.Repeat("a", 65))
	p.Location.Street = str(strings.Repeat("b", 64))

	errs := validation.Validate(p)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "description")
	assert.NotContains(t, errs, "street")
}

func TestValidate_Date(t *testing.T) {
	p := &models.EventPayload{Date: str("2024-13-01")}
	assert.Contains(t, validation.Validate(p), "date")

	p.Date = str("01-06-2024")
	assert.Contains(t, validation.Validate(p), "date")

	p.Date = str("2024-02-29")
	assert.Empty(t, validation.Validate(p))
}

func TestValidate_TimeRequiresExactFormat(t *testing.T) {
	assert.True(t, validation.Time("09:00:00"))
	assert.False(t, validation.Time("9:00:00"))
	assert.False(t, validation.Time("09:00"))
	assert.False(t, validation.Time("24:00:00"))

	errs := validation.Validate(&models.EventPayload{From: str("9:00:00"), To: str("10:00:00")})
	assert.Contains(t, errs, "from")
	assert.NotContains(t, errs, "to")
	assert.NotContains(t, errs, "time_range", "range is only checked when both times are valid")
}

func TestValidate_TimeRange(t *testing.T) {
	errs := validation.Validate(&models.EventPayload{From: str("10:00:00"), To: str("10:00:00")})
	assert.Contains(t, errs, "time_range")

	errs = validation.Validate(&models.EventPayload{From: str("11:00:00"), To: str("10:00:00")})
	assert.Contains(t, errs, "time_range")

	errs = validation.Validate(&models.EventPayload{From: str("10:00:00")})
	assert.Empty(t, errs)
}

func TestValidate_Postcode(t *testing.T) {
	p := fullPayload()
	p.Location.PostCode = str("203")

	errs := validation.Validate(p)
	assert.Equal(t, "203 is not a valid Australian postcode", errs["post-code"])

	p.Location.PostCode = str("20a3")
	assert.Contains(t, validation.Validate(p), "post-code")
}

func TestValidate_StateIsCaseInsensitive(t *testing.T) {
	p := fullPayload()
	p.Location.State = str("nsw")
	assert.Empty(t, validation.Validate(p))

	p.Location.State = str("XYZ")
	assert.Contains(t, validation.Validate(p), "state")
}

func TestValidate_PartialPayloadOnlyChecksPresentFields(t *testing.T) {
	p := &models.EventPayload{Description: str("new description")}
	assert.Empty(t, validation.Validate(p))
}

func TestValidateRange(t *testing.T) {
	assert.Empty(t, validation.ValidateRange("10:00:00", "11:00:00"))
	assert.Contains(t, validation.ValidateRange("11:00:00", "10:00:00"), "time_range")
}

func TestMissing(t *testing.T) {
	assert.Empty(t, validation.Missing(fullPayload()))

	p := fullPayload()
	p.Location.PostCode = nil
	p.Name = nil
	assert.ElementsMatch(t, []string{"name", "location.post-code"}, validation.Missing(p))

	p = fullPayload()
	p.Location = nil
	assert.Equal(t, []string{"location"}, validation.Missing(p))
}
