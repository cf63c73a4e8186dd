package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeWrongApp           = "WRONG_APP"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeAdminRequired      = "ADMIN_REQUIRED"
	CodeMemberRequired     = "MEMBER_REQUIRED"
	CodePartyNotFound      = "PARTY_NOT_FOUND"
	CodeNotPartyOwner      = "NOT_PARTY_OWNER"
	CodeInvalidParty       = "INVALID_PARTY"
	CodePriceTierNotFound  = "PRICE_TIER_NOT_FOUND"
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeCodeNotFound       = "CODE_NOT_FOUND"
	CodeCodeAlreadyUsed    = "CODE_ALREADY_USED"
	CodeCodeWrongParty     = "CODE_WRONG_PARTY"
	CodeDuplicateCode      = "DUPLICATE_CODE"
	CodeCodeSpaceExhausted = "CODE_SPACE_EXHAUSTED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Map model errors
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrAdminRequired):
		return &httpError{http.StatusForbidden, APIError{CodeAdminRequired, "An administrator account is required"}}
	case errors.Is(err, model.ErrMemberRequired):
		return &httpError{http.StatusForbidden, APIError{CodeMemberRequired, "A member account is required"}}
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, model.ErrPartyNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePartyNotFound, "Party not found"}}
	case errors.Is(err, model.ErrNotPartyOwner):
		return &httpError{http.StatusForbidden, APIError{CodeNotPartyOwner, "You do not own this party"}}
	case errors.Is(err, model.ErrInvalidParty):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidParty, detail(err, model.ErrInvalidParty)}}
	case errors.Is(err, model.ErrPriceTierMissing):
		return &httpError{http.StatusBadRequest, APIError{CodePriceTierNotFound, "Price tier not found for this party"}}
	case errors.Is(err, model.ErrInvalidQuantity):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidQuantity, "Quantity must be between 1 and 100"}}
	case errors.Is(err, model.ErrCodeNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeCodeNotFound, "Entry code not found"}}
	case errors.Is(err, model.ErrCodeAlreadyUsed):
		return &httpError{http.StatusConflict, APIError{CodeCodeAlreadyUsed, "Entry code already used"}}
	case errors.Is(err, model.ErrCodeWrongParty):
		return &httpError{http.StatusConflict, APIError{CodeCodeWrongParty, "Entry code belongs to another party"}}
	case errors.Is(err, model.ErrDuplicateCode):
		return &httpError{http.StatusConflict, APIError{CodeDuplicateCode, "Generated code collided with an existing one, nothing was saved; retry"}}
	case errors.Is(err, model.ErrCodeSpaceExhausted):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeCodeSpaceExhausted, "Could not generate enough unique codes; retry with a smaller quantity"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid email or password"}}
	case errors.Is(err, auth.ErrWrongApp):
		return &httpError{http.StatusForbidden, APIError{CodeWrongApp, "This account cannot sign in here"}}
	case errors.Is(err, auth.ErrEmailExists):
		return &httpError{http.StatusConflict, APIError{CodeEmailExists, "Email already registered"}}
	case errors.Is(err, auth.ErrInvalidInput):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, detail(err, auth.ErrInvalidInput)}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// detail strips the sentinel prefix from a wrapped validation error
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewNotFoundError creates a not found error for unmatched routes
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}
}

// NewMethodNotAllowedError creates an error for a known route hit with the wrong method
func NewMethodNotAllowedError() error {
	return &httpError{http.StatusMethodNotAllowed, APIError{CodeMethodNotAllowed, "Method not allowed"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
