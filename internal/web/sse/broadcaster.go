package sse

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/web/views"
)

// EventGuestCheckedIn is sent when a code for the party is redeemed
const EventGuestCheckedIn = "guest-checked-in"

// Broadcaster pushes party updates to SSE clients
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// GuestCheckedIn sends the rendered guest row to everyone watching the
// party. Parties nobody has opened the guest list for have no hub, and the
// row is not rendered at all. A hub whose watchers dropped still takes the
// event so a reconnecting page can replay it.
func (b *Broadcaster) GuestCheckedIn(ctx context.Context, guest *model.Guest) {
	hub := b.hubManager.GetHub(guest.PartyID)
	if hub == nil {
		b.logger.Debug("guest checked in, nobody watching",
			slog.String("party", string(guest.PartyID)),
			slog.String("user_id", string(guest.User.ID)))
		return
	}

	var buf bytes.Buffer
	if err := views.GuestRow(guest).Render(ctx, &buf); err != nil {
		b.logger.Error("sse failed to render guest row",
			slog.String("party", string(guest.PartyID)),
			slog.Any("error", err))
		return
	}
	hub.BroadcastEvent(EventGuestCheckedIn, buf.String())
	b.logger.Debug("guest check-in broadcast",
		slog.String("party", string(guest.PartyID)),
		slog.String("code", guest.Code),
		slog.Int("watchers", hub.ClientCount()))
}
