package request

import "time"

// RegisterRequest is the request body for registering a member or admin
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the request body for PATCH /me; omitted fields are kept
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Bio   *string `json:"bio,omitempty"`
}

// PriceTier is a tier in a create-party request
type PriceTier struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// CreatePartyRequest is the request body for creating a party
type CreatePartyRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	StartsAt    time.Time   `json:"starts_at"`
	Capacity    int         `json:"capacity,omitempty"`
	PriceTiers  []PriceTier `json:"price_tiers"`
}

// GenerateCodesRequest is the request body for generating entry codes
type GenerateCodesRequest struct {
	PartyID   string `json:"party_id"`
	PriceName string `json:"price_name,omitempty"`
	PriceID   string `json:"price_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// ValidateCodeRequest is the request body for checking a code
type ValidateCodeRequest struct {
	Code string `json:"code"`
}

// RedeemCodeRequest is the request body for redeeming a code.
// UserID defaults to the caller.
type RedeemCodeRequest struct {
	Code    string `json:"code"`
	UserID  string `json:"user_id,omitempty"`
	PartyID string `json:"party_id,omitempty"`
}
