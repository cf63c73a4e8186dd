package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound   = errors.New("user not found")
	ErrAdminRequired  = errors.New("administrator account required")
	ErrMemberRequired = errors.New("member account required")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Party errors
	ErrPartyNotFound    = errors.New("party not found")
	ErrNotPartyOwner    = errors.New("user does not own this party")
	ErrInvalidParty     = errors.New("invalid party")
	ErrPriceTierMissing = errors.New("price tier not found")

	// Entry code errors
	ErrInvalidQuantity    = errors.New("quantity must be between 1 and 100")
	ErrCodeNotFound       = errors.New("entry code not found")
	ErrCodeAlreadyUsed    = errors.New("entry code already used")
	ErrCodeWrongParty     = errors.New("entry code belongs to another party")
	ErrDuplicateCode      = errors.New("entry code already exists")
	ErrCodeSpaceExhausted = errors.New("could not generate enough unique codes")
)
