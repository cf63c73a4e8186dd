package model

import (
	"strings"
	"time"
)

// PartyID uniquely identifies a party
type PartyID string

// PriceTier is a named ticket price within a party
type PriceTier struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// Party is an event that members attend with entry codes
type Party struct {
	ID          PartyID     `json:"id"`
	AdminID     UserID      `json:"admin_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	StartsAt    time.Time   `json:"starts_at"`
	Capacity    int         `json:"capacity,omitempty"` // 0 means unlimited
	PriceTiers  []PriceTier `json:"price_tiers"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TierByName finds a price tier by name, ignoring case
func (p *Party) TierByName(name string) *PriceTier {
	name = strings.TrimSpace(name)
	for i := range p.PriceTiers {
		if strings.EqualFold(p.PriceTiers[i].Name, name) {
			return &p.PriceTiers[i]
		}
	}
	return nil
}

// TierByID finds a price tier by its ID
func (p *Party) TierByID(id string) *PriceTier {
	for i := range p.PriceTiers {
		if p.PriceTiers[i].ID == id {
			return &p.PriceTiers[i]
		}
	}
	return nil
}
