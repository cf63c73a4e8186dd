package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rumbify/rumbify/internal/api/middleware"
	"github.com/rumbify/rumbify/internal/api/request"
	"github.com/rumbify/rumbify/internal/api/response"
	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/codes"
	"github.com/rumbify/rumbify/internal/services/party"
)

// PartyHandler handles party endpoints
type PartyHandler struct {
	parties *party.Service
	codes   *codes.Service
}

// NewPartyHandler creates a new party handler
func NewPartyHandler(parties *party.Service, codeService *codes.Service) *PartyHandler {
	return &PartyHandler{
		parties: parties,
		codes:   codeService,
	}
}

// List handles GET /api/v1/parties
func (h *PartyHandler) List(w http.ResponseWriter, r *http.Request) {
	parties, err := h.parties.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PartiesResponse{Success: true, Parties: response.PartiesFromModel(parties)})
}

// Create handles POST /api/v1/parties
func (h *PartyHandler) Create(w http.ResponseWriter, r *http.Request) {
	admin := middleware.MustGetUser(r.Context())

	var req request.CreatePartyRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	in := party.Input{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		Capacity:    req.Capacity,
	}
	for _, t := range req.PriceTiers {
		in.PriceTiers = append(in.PriceTiers, party.TierInput{Name: t.Name, PriceCents: t.PriceCents})
	}

	pt, err := h.parties.Create(r.Context(), admin, in)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PartyResponse{Success: true, Party: response.PartyFromModel(pt)})
}

// Get handles GET /api/v1/parties/{id}
func (h *PartyHandler) Get(w http.ResponseWriter, r *http.Request) {
	pt, err := h.parties.Get(r.Context(), partyID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PartyResponse{Success: true, Party: response.PartyFromModel(pt)})
}

// Guests handles GET /api/v1/parties/{id}/guests
func (h *PartyHandler) Guests(w http.ResponseWriter, r *http.Request) {
	pt, err := h.parties.GetOwned(r.Context(), partyID(r), middleware.MustGetUser(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	guests, err := h.parties.Guests(r.Context(), pt.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	out := make([]response.Guest, len(guests))
	for i, g := range guests {
		out[i] = response.GuestFromModel(g)
	}
	response.JSON(w, http.StatusOK, response.GuestsResponse{Success: true, Guests: out})
}

// Codes handles GET /api/v1/parties/{id}/codes
func (h *PartyHandler) Codes(w http.ResponseWriter, r *http.Request) {
	pt, err := h.parties.GetOwned(r.Context(), partyID(r), middleware.MustGetUser(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	list, err := h.codes.ListForParty(r.Context(), pt.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	summary, err := h.codes.Summary(r.Context(), pt.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CodesResponse{
		Success: true,
		Codes:   response.EntryCodesFromModel(list),
		Summary: summary,
	})
}

func partyID(r *http.Request) model.PartyID {
	return model.PartyID(mux.Vars(r)["id"])
}
