package handler

import (
	"net/http"

	"github.com/rumbify/rumbify/internal/api/apierr"
	"github.com/rumbify/rumbify/internal/api/middleware"
	"github.com/rumbify/rumbify/internal/api/request"
	"github.com/rumbify/rumbify/internal/api/response"
	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/codes"
	"github.com/rumbify/rumbify/internal/services/party"
)

// CodeHandler handles entry code endpoints
type CodeHandler struct {
	parties *party.Service
	codes   *codes.Service
}

// NewCodeHandler creates a new code handler
func NewCodeHandler(parties *party.Service, codeService *codes.Service) *CodeHandler {
	return &CodeHandler{
		parties: parties,
		codes:   codeService,
	}
}

// Generate handles POST /api/v1/codes/generate
func (h *CodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req request.GenerateCodesRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.PartyID == "" {
		WriteError(w, NewInvalidRequestError("party_id is required"))
		return
	}
	if req.PriceName == "" && req.PriceID == "" {
		WriteError(w, NewInvalidRequestError("price_name or price_id is required"))
		return
	}
	if !codes.ValidQuantity(req.Quantity) {
		WriteError(w, model.ErrInvalidQuantity)
		return
	}

	pt, err := h.parties.GetOwned(r.Context(), model.PartyID(req.PartyID), middleware.MustGetUser(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.codes.Generate(r.Context(), codes.GenerateRequest{
		PartyID:   pt.ID,
		PriceName: req.PriceName,
		PriceID:   req.PriceID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.GenerateCodesResponse{
		Success:    true,
		Codes:      result.Codes,
		SavedCodes: response.EntryCodesFromModel(result.Saved),
	})
}

// Validate handles POST /api/v1/codes/validate
func (h *CodeHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req request.ValidateCodeRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Code == "" {
		WriteError(w, NewInvalidRequestError("code is required"))
		return
	}

	v, err := h.codes.Validate(r.Context(), req.Code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ValidateCodeResponse{
		Success:     true,
		Code:        v.Code,
		Valid:       v.Valid,
		AlreadyUsed: v.AlreadyUsed,
		PartyID:     string(v.PartyID),
		PriceName:   v.PriceName,
	})
}

// Redeem handles POST /api/v1/codes/redeem.
// Members redeem for themselves; admins may check in any user at parties they own.
func (h *CodeHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	guard := middleware.GetGuard(r.Context())
	caller := guard.User()

	var req request.RedeemCodeRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Code == "" {
		WriteError(w, NewInvalidRequestError("code is required"))
		return
	}

	userID := model.UserID(req.UserID)
	if userID == "" {
		userID = caller.ID
	}

	if guard.IsAdmin() {
		v, err := h.codes.Validate(r.Context(), req.Code)
		if err != nil {
			WriteError(w, err)
			return
		}
		if _, err := h.parties.GetOwned(r.Context(), v.PartyID, caller); err != nil {
			WriteError(w, err)
			return
		}
	} else if userID != caller.ID {
		WriteError(w, apierr.NewForbiddenError("members may only redeem codes for themselves"))
		return
	}

	guest, err := h.codes.Redeem(r.Context(), req.Code, userID, model.PartyID(req.PartyID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RedeemCodeResponse{Success: true, Guest: response.GuestFromModel(guest)})
}
