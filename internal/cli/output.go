package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == FormatJSON {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError reports err on errW, with the API error code and a hint
// when the server supplied one
func (o *Output) PrintError(errW io.Writer, err error) {
	hint := errorHint(err)
	if o.format == FormatJSON {
		body := map[string]any{"message": err.Error()}
		var re *RequestError
		if errors.As(err, &re) {
			body["status"] = re.Status
			if re.Code != "" {
				body["code"] = re.Code
				body["message"] = re.Message
			}
		}
		if hint != "" {
			body["hint"] = hint
		}
		data, _ := json.Marshal(map[string]any{"error": body})
		fmt.Fprintln(errW, string(data))
		return
	}
	fmt.Fprintf(errW, "Error: %s\n", err)
	if hint != "" {
		fmt.Fprintf(errW, "Hint: %s\n", hint)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == FormatJSON {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case Party:
		o.printParty(v)
	case PartyList:
		o.printPartyList(v)
	case GuestList:
		o.printGuestList(v)
	case Guest:
		o.printGuest(v)
	case CodeList:
		o.printCodeList(v)
	case GenerateResult:
		o.printGenerateResult(v)
	case Validation:
		o.printValidation(v)
	case GuestEvent:
		o.printGuestEvent(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	Role    string `json:"role"`
	Phone   string `json:"phone,omitempty"`
	Bio     string `json:"bio,omitempty"`
}

// UserResult wraps a single user
type UserResult struct {
	User User `json:"user"`
}

// AuthResult combines user and token
type AuthResult struct {
	User         User   `json:"user"`
	SessionToken string `json:"session_token"`
}

// PriceTier response type
type PriceTier struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// Party response type
type Party struct {
	ID          string      `json:"id"`
	AdminID     string      `json:"admin_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	StartsAt    time.Time   `json:"starts_at"`
	Capacity    int         `json:"capacity,omitempty"`
	PriceTiers  []PriceTier `json:"price_tiers"`
}

// PartyResult wraps a single party
type PartyResult struct {
	Party Party `json:"party"`
}

// PartyList response type
type PartyList struct {
	Parties []Party `json:"parties"`
}

// Guest response type
type Guest struct {
	PartyID     string    `json:"party_id"`
	User        User      `json:"user"`
	Code        string    `json:"code"`
	PriceName   string    `json:"price_name"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// GuestList response type
type GuestList struct {
	Guests []Guest `json:"guests"`
}

// RedeemResult wraps the new guest
type RedeemResult struct {
	Guest Guest `json:"guest"`
}

// EntryCode response type
type EntryCode struct {
	ID          string `json:"id"`
	PartyID     string `json:"party_id"`
	Code        string `json:"code"`
	PriceName   string `json:"price_name"`
	AlreadyUsed bool   `json:"already_used"`
	UserID      string `json:"user_id,omitempty"`
}

// TierSummary response type
type TierSummary struct {
	PriceName string `json:"price_name"`
	Total     int    `json:"total"`
	Used      int    `json:"used"`
}

// CodeSummary response type
type CodeSummary struct {
	Total int           `json:"total"`
	Used  int           `json:"used"`
	Tiers []TierSummary `json:"tiers"`
}

// CodeList response type
type CodeList struct {
	Codes   []EntryCode  `json:"codes"`
	Summary *CodeSummary `json:"summary,omitempty"`
}

// GenerateResult response type
type GenerateResult struct {
	Codes      []string    `json:"codes"`
	SavedCodes []EntryCode `json:"saved_codes"`
}

// Validation response type
type Validation struct {
	Code        string `json:"code"`
	Valid       bool   `json:"valid"`
	AlreadyUsed bool   `json:"already_used"`
	PartyID     string `json:"party_id"`
	PriceName   string `json:"price_name"`
}

// HealthResult is the server's health answer plus where it came from
type HealthResult struct {
	Status  string `json:"status"`
	Server  string `json:"server,omitempty"`
	Latency string `json:"latency,omitempty"`
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func (o *Output) printUser(u User) {
	fmt.Fprintf(o.w, "User: %s (%s)\n", u.Name, u.ID)
	fmt.Fprintf(o.w, "Email: %s\n", u.Email)
	fmt.Fprintf(o.w, "Role: %s\n", u.Role)
	if u.Phone != "" {
		fmt.Fprintf(o.w, "Phone: %s\n", u.Phone)
	}
	if u.Bio != "" {
		fmt.Fprintf(o.w, "About: %s\n", u.Bio)
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	fmt.Fprintf(o.w, "Token: %s\n", a.SessionToken)
}

func (o *Output) printParty(p Party) {
	fmt.Fprintf(o.w, "Party: %s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(o.w, "Starts: %s\n", p.StartsAt.UTC().Format("Mon 2 Jan 2006 15:04 MST"))
	if p.Location != "" {
		fmt.Fprintf(o.w, "Location: %s\n", p.Location)
	}
	if p.Capacity > 0 {
		fmt.Fprintf(o.w, "Capacity: %d\n", p.Capacity)
	}
	if p.Description != "" {
		fmt.Fprintf(o.w, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(o.w, "Price tiers (%d):\n", len(p.PriceTiers))
	for _, t := range p.PriceTiers {
		fmt.Fprintf(o.w, "  - %s: %s (%s)\n", t.Name, formatCents(t.PriceCents), t.ID)
	}
}

func (o *Output) printPartyList(l PartyList) {
	if len(l.Parties) == 0 {
		fmt.Fprintln(o.w, "No parties")
		return
	}
	for _, p := range l.Parties {
		fmt.Fprintf(o.w, "%s  %s  %s\n", p.ID, p.StartsAt.UTC().Format("2006-01-02 15:04"), p.Name)
	}
}

func (o *Output) printGuest(g Guest) {
	fmt.Fprintf(o.w, "Checked in: %s <%s>\n", g.User.Name, g.User.Email)
	fmt.Fprintf(o.w, "Ticket: %s (%s)\n", g.PriceName, g.Code)
}

func (o *Output) printGuestList(l GuestList) {
	fmt.Fprintf(o.w, "Guests (%d):\n", len(l.Guests))
	for _, g := range l.Guests {
		fmt.Fprintf(o.w, "  - %s <%s> %s %s\n", g.User.Name, g.User.Email, g.PriceName, g.Code)
	}
}

func (o *Output) printCodeList(l CodeList) {
	if l.Summary != nil {
		fmt.Fprintf(o.w, "Codes: %d (%d used)\n", l.Summary.Total, l.Summary.Used)
		for _, t := range l.Summary.Tiers {
			fmt.Fprintf(o.w, "  %s: %d (%d used)\n", t.PriceName, t.Total, t.Used)
		}
	}
	for _, c := range l.Codes {
		status := "unused"
		if c.AlreadyUsed {
			status = "used"
		}
		fmt.Fprintf(o.w, "%s  %-10s %s\n", c.Code, c.PriceName, status)
	}
}

func (o *Output) printGenerateResult(g GenerateResult) {
	tier := ""
	if len(g.SavedCodes) > 0 {
		tier = " " + g.SavedCodes[0].PriceName
	}
	fmt.Fprintf(o.w, "Generated %d%s codes:\n", len(g.Codes), tier)
	for _, c := range g.Codes {
		fmt.Fprintf(o.w, "  %s\n", c)
	}
}

func (o *Output) printValidation(v Validation) {
	switch {
	case v.Valid:
		fmt.Fprintf(o.w, "%s is valid: %s ticket for party %s\n", v.Code, v.PriceName, v.PartyID)
	case v.AlreadyUsed:
		fmt.Fprintf(o.w, "%s has already been used\n", v.Code)
	default:
		fmt.Fprintf(o.w, "%s is not valid\n", v.Code)
	}
}

func (o *Output) printGuestEvent(e GuestEvent) {
	timestamp := e.Time.Format("2006-01-02 15:04:05")
	if len(e.Cells) > 0 {
		fmt.Fprintf(o.w, "[%s] %s: %s\n", timestamp, e.Event, strings.Join(e.Cells, " | "))
		return
	}
	fmt.Fprintf(o.w, "[%s] %s\n", timestamp, e.Event)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	if h.Server != "" {
		fmt.Fprintf(o.w, "Server: %s (%s)\n", h.Server, h.Latency)
	}
}
