package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumbify/rumbify/internal/web/views"
)

func TestParsePartyForm(t *testing.T) {
	in, err := parsePartyForm(views.PartyForm{
		Name:     "Launch",
		StartsAt: "2026-12-31T22:00",
		Capacity: "150",
		Tiers:    "General: 10",
	})
	require.NoError(t, err)
	assert.Equal(t, "Launch", in.Name)
	assert.Equal(t, time.Date(2026, 12, 31, 22, 0, 0, 0, time.UTC), in.StartsAt)
	assert.Equal(t, 150, in.Capacity)
	assert.Len(t, in.PriceTiers, 1)

	cases := map[string]views.PartyForm{
		"missing start":  {Name: "x", Tiers: "A: 1"},
		"bad start":      {Name: "x", StartsAt: "tomorrow", Tiers: "A: 1"},
		"bad capacity":   {Name: "x", StartsAt: "2026-12-31T22:00", Capacity: "lots", Tiers: "A: 1"},
		"negative cap":   {Name: "x", StartsAt: "2026-12-31T22:00", Capacity: "-3", Tiers: "A: 1"},
		"no price tiers": {Name: "x", StartsAt: "2026-12-31T22:00"},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parsePartyForm(form)
			assert.Error(t, err)
		})
	}
}
