// Package views renders the HTML pages of both web apps. The pages are templ
// components: edit the .templ files and run `templ generate`.
package views

import (
	"fmt"
	"net/url"
	"time"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/codes"
	"github.com/rumbify/rumbify/internal/services/party"
)

// App names used to pick navigation
const (
	AppMember = "member"
	AppAdmin  = "admin"
)

// FlashMessage is a one-shot notice carried across a redirect
type FlashMessage struct {
	Type    string // success, error, info
	Message string
}

// PageData is shared by every page
type PageData struct {
	Title string
	App   string
	User  *model.User
	Flash *FlashMessage
}

// LoginData is the login form of either app
type LoginData struct {
	PageData
	Heading     string
	Action      string
	RegisterURL string
	Email       string
	Error       string
}

// RegisterData is the registration form of either app
type RegisterData struct {
	PageData
	Heading     string
	Action      string
	LoginURL    string
	Name        string
	Email       string
	Error       string
	FieldErrors map[string]string
}

// ProfileData shows the signed-in user
type ProfileData struct {
	PageData
	EditURL string
}

// EditProfileData is the profile form
type EditProfileData struct {
	PageData
	Name  string
	Phone string
	Bio   string
	Error string
}

// WelcomeData is the public landing page
type WelcomeData struct {
	PageData
	Parties []*model.Party
}

// DashboardData is a member's home
type DashboardData struct {
	PageData
	Parties   []*model.Party
	Attending []*party.Attendance
}

// EventDetailsData is a single party seen by a member
type EventDetailsData struct {
	PageData
	Party  *model.Party
	Ticket *party.Attendance
	Code   string
	Error  string
}

// MyPartiesData lists an admin's parties
type MyPartiesData struct {
	PageData
	Parties []*model.Party
}

// PartyForm holds the raw create-party form values
type PartyForm struct {
	Name        string
	Description string
	Location    string
	StartsAt    string // datetime-local value
	Capacity    string
	Tiers       string // one "Name: price" per line
}

// CreatePartyData is the create-party page
type CreatePartyData struct {
	PageData
	Form  PartyForm
	Error string
}

// ManagePartyData is the code management page of one party
type ManagePartyData struct {
	PageData
	Party     *model.Party
	Summary   *codes.Summary
	Codes     []*model.EntryCode
	Generated []string
	PriceName string
	Quantity  string
	Error     string
}

// GuestsSummaryData is a party's live guest list
type GuestsSummaryData struct {
	PageData
	Party   *model.Party
	Guests  []*model.Guest
	Summary *codes.Summary
}

// FormatPrice renders cents as a dollar amount
func FormatPrice(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

// FormatTime renders a party time for display
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Mon 2 Jan 2006, 15:04 UTC")
}

func appHome(app string) string {
	if app == AppAdmin {
		return "/admin/admin-login"
	}
	return "/app/welcome"
}

func partyURL(path string, id model.PartyID) string {
	return path + "?id=" + url.QueryEscape(string(id))
}

func eventURL(id model.PartyID) string  { return partyURL("/app/event-details", id) }
func manageURL(id model.PartyID) string { return partyURL("/admin/manage-party", id) }
func guestsURL(id model.PartyID) string { return partyURL("/admin/guests-summary", id) }
func streamURL(id model.PartyID) string { return partyURL("/admin/guests-events", id) }

func quantityOrDefault(q string) string {
	if q == "" {
		return "10"
	}
	return q
}
