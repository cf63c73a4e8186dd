package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/rumbify/rumbify/internal/services/party"
	"github.com/rumbify/rumbify/internal/web/views"
)

// DateTimeLocalLayout is the value format of an <input type="datetime-local">
const DateTimeLocalLayout = "2006-01-02T15:04"

// parsePartyForm turns the raw create-party form into service input.
// Start times are read as UTC.
func parsePartyForm(form views.PartyForm) (party.Input, error) {
	in := party.Input{
		Name:        form.Name,
		Description: form.Description,
		Location:    form.Location,
	}

	if form.StartsAt == "" {
		return in, errors.New("start time is required")
	}
	startsAt, err := time.Parse(DateTimeLocalLayout, form.StartsAt)
	if err != nil {
		return in, errors.New("start time must look like 2026-12-31T22:00")
	}
	in.StartsAt = startsAt.UTC()

	if form.Capacity != "" {
		capacity, err := strconv.Atoi(form.Capacity)
		if err != nil || capacity < 0 {
			return in, errors.New("capacity must be a whole number")
		}
		in.Capacity = capacity
	}

	tiers, err := party.ParseTiers(form.Tiers)
	if err != nil {
		return in, err
	}
	in.PriceTiers = tiers
	return in, nil
}
