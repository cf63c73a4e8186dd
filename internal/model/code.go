package model

import (
	"strings"
	"time"
)

const (
	// EntryCodeLength is the exact length of every entry code
	EntryCodeLength = 8
	// EntryCodeAlphabet is the set of characters entry codes are drawn from
	EntryCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// EntryCode is a single-use ticket for a party at a given price tier
type EntryCode struct {
	ID          string     `json:"id"`
	PartyID     PartyID    `json:"party_id"`
	Code        string     `json:"code"`
	PriceName   string     `json:"price_name"`
	AlreadyUsed bool       `json:"already_used"`
	UserID      UserID     `json:"user_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}

// Guest is a user who has redeemed an entry code for a party
type Guest struct {
	PartyID     PartyID   `json:"party_id"`
	User        User      `json:"user"`
	Code        string    `json:"code"`
	PriceName   string    `json:"price_name"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// NormalizeCode trims and upper-cases a code as typed by a user
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCodeFormat reports whether code is exactly EntryCodeLength characters of EntryCodeAlphabet
func ValidCodeFormat(code string) bool {
	if len(code) != EntryCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
