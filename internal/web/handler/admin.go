package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/codes"
	"github.com/rumbify/rumbify/internal/services/party"
	"github.com/rumbify/rumbify/internal/web/middleware"
	"github.com/rumbify/rumbify/internal/web/sse"
	"github.com/rumbify/rumbify/internal/web/views"
)

// AdminHandler serves the admin app pages
type AdminHandler struct {
	parties *party.Service
	codes   *codes.Service
	hubs    *sse.HubManager
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin page handler
func NewAdminHandler(parties *party.Service, codeService *codes.Service, hubs *sse.HubManager, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		parties: parties,
		codes:   codeService,
		hubs:    hubs,
		logger:  logger.With(slog.String("component", "web-admin")),
	}
}

// MyParties renders the admin home
func (h *AdminHandler) MyParties(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetGuard(r.Context()).User()
	parties, err := h.parties.ListForAdmin(r.Context(), admin.ID)
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}
	render(w, r, http.StatusOK, views.MyParties(views.MyPartiesData{
		PageData: pageData(r, views.AppAdmin, "My parties"),
		Parties:  parties,
	}))
}

// CreatePartyPage renders the create-party form
func (h *AdminHandler) CreatePartyPage(w http.ResponseWriter, r *http.Request) {
	h.renderCreateParty(w, r, http.StatusOK, views.PartyForm{Tiers: "General: 15.00"}, "")
}

// CreateParty handles the create-party form
func (h *AdminHandler) CreateParty(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderCreateParty(w, r, http.StatusBadRequest, views.PartyForm{}, "Invalid form data")
		return
	}

	form := views.PartyForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Location:    strings.TrimSpace(r.FormValue("location")),
		StartsAt:    strings.TrimSpace(r.FormValue("starts_at")),
		Capacity:    strings.TrimSpace(r.FormValue("capacity")),
		Tiers:       r.FormValue("tiers"),
	}

	in, err := parsePartyForm(form)
	if err != nil {
		h.renderCreateParty(w, r, http.StatusUnprocessableEntity, form, capitalize(err.Error()))
		return
	}

	admin := middleware.GetGuard(r.Context()).User()
	pt, err := h.parties.Create(r.Context(), admin, in)
	if errors.Is(err, model.ErrInvalidParty) {
		h.renderCreateParty(w, r, http.StatusUnprocessableEntity, form, invalidPartyMessage(err))
		return
	}
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}

	middleware.SetFlash(w, "success", "Party created")
	http.Redirect(w, r, "/admin/manage-party?id="+url.QueryEscape(string(pt.ID)), http.StatusSeeOther)
}

func invalidPartyMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), model.ErrInvalidParty.Error()+": ")
	return capitalize(msg)
}

// ManageParty renders code generation and the code list of an owned party
func (h *AdminHandler) ManageParty(w http.ResponseWriter, r *http.Request) {
	pt, ok := h.ownedParty(w, r)
	if !ok {
		return
	}
	h.renderManageParty(w, r, http.StatusOK, views.ManagePartyData{Party: pt, Quantity: "10"})
}

// GenerateCodes handles the code generation form
func (h *AdminHandler) GenerateCodes(w http.ResponseWriter, r *http.Request) {
	pt, ok := h.ownedParty(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderManageParty(w, r, http.StatusBadRequest, views.ManagePartyData{Party: pt, Error: "Invalid form data"})
		return
	}

	data := views.ManagePartyData{
		Party:     pt,
		PriceName: r.FormValue("price_name"),
		Quantity:  strings.TrimSpace(r.FormValue("quantity")),
	}

	quantity, err := strconv.Atoi(data.Quantity)
	if err != nil {
		data.Error = "Quantity must be a number"
		h.renderManageParty(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	result, err := h.codes.Generate(r.Context(), codes.GenerateRequest{
		PartyID:   pt.ID,
		PriceName: data.PriceName,
		Quantity:  quantity,
	})
	if err != nil {
		data.Error = generateErrorMessage(err)
		if data.Error == "" {
			serverError(w, r, h.logger, err)
			return
		}
		h.renderManageParty(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	data.Generated = result.Codes
	h.renderManageParty(w, r, http.StatusOK, data)
}

func generateErrorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidQuantity):
		return "Quantity must be between 1 and 100"
	case errors.Is(err, model.ErrPriceTierMissing):
		return "Choose one of the party's price tiers"
	case errors.Is(err, model.ErrDuplicateCode):
		return "A generated code clashed with an existing one. Nothing was saved, please try again."
	case errors.Is(err, model.ErrCodeSpaceExhausted):
		return "Could not generate enough unique codes. Nothing was saved."
	}
	return ""
}

// GuestsSummary renders the live guest list of an owned party
func (h *AdminHandler) GuestsSummary(w http.ResponseWriter, r *http.Request) {
	pt, ok := h.ownedParty(w, r)
	if !ok {
		return
	}

	guests, err := h.parties.Guests(r.Context(), pt.ID)
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}
	summary, err := h.codes.Summary(r.Context(), pt.ID)
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}

	render(w, r, http.StatusOK, views.GuestsSummary(views.GuestsSummaryData{
		PageData: pageData(r, views.AppAdmin, "Guests: "+pt.Name),
		Party:    pt,
		Guests:   guests,
		Summary:  summary,
	}))
}

// GuestsEvents streams check-ins of an owned party over SSE
func (h *AdminHandler) GuestsEvents(w http.ResponseWriter, r *http.Request) {
	pt, ok := h.ownedParty(w, r)
	if !ok {
		return
	}
	admin := middleware.GetGuard(r.Context()).User()
	sse.ServeSSE(w, r, h.hubs.GetOrCreateHub(pt.ID), admin.ID)
}

// ownedParty loads the party named by ?id= and checks the signed-in admin owns it.
// Parties of other admins are reported as not found.
func (h *AdminHandler) ownedParty(w http.ResponseWriter, r *http.Request) (*model.Party, bool) {
	admin := middleware.GetGuard(r.Context()).User()
	pt, err := h.parties.GetOwned(r.Context(), model.PartyID(r.URL.Query().Get("id")), admin)
	if errors.Is(err, model.ErrPartyNotFound) || errors.Is(err, model.ErrNotPartyOwner) {
		NotFound(views.AppAdmin)(w, r)
		return nil, false
	}
	if err != nil {
		serverError(w, r, h.logger, err)
		return nil, false
	}
	return pt, true
}

func (h *AdminHandler) renderCreateParty(w http.ResponseWriter, r *http.Request, status int, form views.PartyForm, errorMsg string) {
	render(w, r, status, views.CreateParty(views.CreatePartyData{
		PageData: pageData(r, views.AppAdmin, "Create a party"),
		Form:     form,
		Error:    errorMsg,
	}))
}

func (h *AdminHandler) renderManageParty(w http.ResponseWriter, r *http.Request, status int, data views.ManagePartyData) {
	summary, err := h.codes.Summary(r.Context(), data.Party.ID)
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}
	list, err := h.codes.ListForParty(r.Context(), data.Party.ID)
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}
	data.PageData = pageData(r, views.AppAdmin, data.Party.Name)
	data.Summary = summary
	data.Codes = list
	render(w, r, status, views.ManageParty(data))
}
