package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/codes"
	"github.com/rumbify/rumbify/internal/services/party"
	"github.com/rumbify/rumbify/internal/web/middleware"
	"github.com/rumbify/rumbify/internal/web/views"
)

// MemberHandler serves the member app pages
type MemberHandler struct {
	parties *party.Service
	codes   *codes.Service
	logger  *slog.Logger
}

// NewMemberHandler creates a new member page handler
func NewMemberHandler(parties *party.Service, codeService *codes.Service, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{
		parties: parties,
		codes:   codeService,
		logger:  logger.With(slog.String("component", "web-member")),
	}
}

// Welcome renders the public landing page
func (h *MemberHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	parties, err := h.parties.List(r.Context())
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}
	render(w, r, http.StatusOK, views.Welcome(views.WelcomeData{
		PageData: pageData(r, views.AppMember, "Welcome"),
		Parties:  parties,
	}))
}

// Dashboard renders the member home with their tickets
func (h *MemberHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetGuard(r.Context()).User()

	parties, err := h.parties.List(r.Context())
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}
	attending, err := h.parties.Attending(r.Context(), user.ID)
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}

	render(w, r, http.StatusOK, views.Dashboard(views.DashboardData{
		PageData:  pageData(r, views.AppMember, "Dashboard"),
		Parties:   parties,
		Attending: attending,
	}))
}

// EventDetails renders one party with the redeem form
func (h *MemberHandler) EventDetails(w http.ResponseWriter, r *http.Request) {
	pt, ok := h.loadParty(w, r)
	if !ok {
		return
	}
	h.renderEventDetails(w, r, http.StatusOK, pt, "", "")
}

// Redeem puts the member on a party's guest list using an entry code
func (h *MemberHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	pt, ok := h.loadParty(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderEventDetails(w, r, http.StatusBadRequest, pt, "", "Invalid form data")
		return
	}

	code := strings.TrimSpace(r.FormValue("code"))
	user := middleware.GetGuard(r.Context()).User()

	guest, err := h.codes.Redeem(r.Context(), code, user.ID, pt.ID)
	if err != nil {
		msg := redeemErrorMessage(err)
		if msg == "" {
			serverError(w, r, h.logger, err)
			return
		}
		h.renderEventDetails(w, r, http.StatusUnprocessableEntity, pt, code, msg)
		return
	}

	middleware.SetFlash(w, "success", "You're on the list with a "+guest.PriceName+" ticket!")
	http.Redirect(w, r, "/app/event-details?id="+url.QueryEscape(string(pt.ID)), http.StatusSeeOther)
}

func redeemErrorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrCodeNotFound):
		return "That code doesn't exist"
	case errors.Is(err, model.ErrCodeAlreadyUsed):
		return "That code has already been used"
	case errors.Is(err, model.ErrCodeWrongParty):
		return "That code is for a different party"
	}
	return ""
}

func (h *MemberHandler) loadParty(w http.ResponseWriter, r *http.Request) (*model.Party, bool) {
	pt, err := h.parties.Get(r.Context(), model.PartyID(r.URL.Query().Get("id")))
	if errors.Is(err, model.ErrPartyNotFound) {
		NotFound(views.AppMember)(w, r)
		return nil, false
	}
	if err != nil {
		serverError(w, r, h.logger, err)
		return nil, false
	}
	return pt, true
}

func (h *MemberHandler) renderEventDetails(w http.ResponseWriter, r *http.Request, status int, pt *model.Party, code, errorMsg string) {
	user := middleware.GetGuard(r.Context()).User()

	var ticket *party.Attendance
	if user != nil {
		attending, err := h.parties.Attending(r.Context(), user.ID)
		if err != nil {
			serverError(w, r, h.logger, err)
			return
		}
		for _, a := range attending {
			if a.Party.ID == pt.ID {
				ticket = a
				break
			}
		}
	}

	render(w, r, status, views.EventDetails(views.EventDetailsData{
		PageData: pageData(r, views.AppMember, pt.Name),
		Party:    pt,
		Ticket:   ticket,
		Code:     code,
		Error:    errorMsg,
	}))
}
