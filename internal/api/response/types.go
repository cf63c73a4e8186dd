package response

import (
	"time"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/codes"
)

// User represents a user in API responses
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:        string(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		Role:      string(u.Role()),
		Phone:     u.Phone,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
	}
}

// AuthResponse is the response for register and login endpoints
type AuthResponse struct {
	Success      bool   `json:"success"`
	User         User   `json:"user"`
	SessionToken string `json:"session_token"`
}

// PriceTier represents a party price tier
type PriceTier struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// Party represents a party in API responses
type Party struct {
	ID          string      `json:"id"`
	AdminID     string      `json:"admin_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	StartsAt    time.Time   `json:"starts_at"`
	Capacity    int         `json:"capacity,omitempty"`
	PriceTiers  []PriceTier `json:"price_tiers"`
	CreatedAt   time.Time   `json:"created_at"`
}

// PartyFromModel converts a model.Party
func PartyFromModel(p *model.Party) Party {
	tiers := make([]PriceTier, len(p.PriceTiers))
	for i, t := range p.PriceTiers {
		tiers[i] = PriceTier{ID: t.ID, Name: t.Name, PriceCents: t.PriceCents}
	}
	return Party{
		ID:          string(p.ID),
		AdminID:     string(p.AdminID),
		Name:        p.Name,
		Description: p.Description,
		Location:    p.Location,
		StartsAt:    p.StartsAt,
		Capacity:    p.Capacity,
		PriceTiers:  tiers,
		CreatedAt:   p.CreatedAt,
	}
}

// PartiesFromModel converts a list of parties
func PartiesFromModel(parties []*model.Party) []Party {
	out := make([]Party, len(parties))
	for i, p := range parties {
		out[i] = PartyFromModel(p)
	}
	return out
}

// PartiesResponse lists parties
type PartiesResponse struct {
	Success bool    `json:"success"`
	Parties []Party `json:"parties"`
}

// PartyResponse wraps a single party
type PartyResponse struct {
	Success bool  `json:"success"`
	Party   Party `json:"party"`
}

// EntryCode represents an entry code in API responses
type EntryCode struct {
	ID          string     `json:"id"`
	PartyID     string     `json:"party_id"`
	Code        string     `json:"code"`
	PriceName   string     `json:"price_name"`
	AlreadyUsed bool       `json:"already_used"`
	UserID      string     `json:"user_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}

// EntryCodesFromModel converts a list of codes
func EntryCodesFromModel(list []*model.EntryCode) []EntryCode {
	out := make([]EntryCode, len(list))
	for i, c := range list {
		out[i] = EntryCode{
			ID:          c.ID,
			PartyID:     string(c.PartyID),
			Code:        c.Code,
			PriceName:   c.PriceName,
			AlreadyUsed: c.AlreadyUsed,
			UserID:      string(c.UserID),
			CreatedAt:   c.CreatedAt,
			UsedAt:      c.UsedAt,
		}
	}
	return out
}

// GenerateCodesResponse is the response for code generation
type GenerateCodesResponse struct {
	Success    bool        `json:"success"`
	Codes      []string    `json:"codes"`
	SavedCodes []EntryCode `json:"saved_codes"`
}

// CodesResponse lists the codes of a party with per-tier totals
type CodesResponse struct {
	Success bool           `json:"success"`
	Codes   []EntryCode    `json:"codes"`
	Summary *codes.Summary `json:"summary,omitempty"`
}

// ValidateCodeResponse is the response for checking a code
type ValidateCodeResponse struct {
	Success     bool   `json:"success"`
	Code        string `json:"code"`
	Valid       bool   `json:"valid"`
	AlreadyUsed bool   `json:"already_used"`
	PartyID     string `json:"party_id"`
	PriceName   string `json:"price_name"`
}

// Guest represents a checked-in guest
type Guest struct {
	PartyID     string    `json:"party_id"`
	User        User      `json:"user"`
	Code        string    `json:"code"`
	PriceName   string    `json:"price_name"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// GuestFromModel converts a model.Guest
func GuestFromModel(g *model.Guest) Guest {
	return Guest{
		PartyID:     string(g.PartyID),
		User:        UserFromModel(&g.User),
		Code:        g.Code,
		PriceName:   g.PriceName,
		CheckedInAt: g.CheckedInAt,
	}
}

// RedeemCodeResponse is the response for redeeming a code
type RedeemCodeResponse struct {
	Success bool  `json:"success"`
	Guest   Guest `json:"guest"`
}

// GuestsResponse lists the guests of a party
type GuestsResponse struct {
	Success bool    `json:"success"`
	Guests  []Guest `json:"guests"`
}

// UserResponse wraps a single user
type UserResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}
