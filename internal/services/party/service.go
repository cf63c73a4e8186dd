// Package party manages parties and their guest lists.
package party

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rumbify/rumbify/internal/dependencies/clock"
	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/storage"
)

// TierInput describes a price tier to create
type TierInput struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// Input describes a party to create
type Input struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	StartsAt    time.Time   `json:"starts_at"`
	Capacity    int         `json:"capacity"`
	PriceTiers  []TierInput `json:"price_tiers"`
}

// Validate checks the input, returning an error wrapping model.ErrInvalidParty
func (in Input) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", model.ErrInvalidParty)
	}
	if in.StartsAt.IsZero() {
		return fmt.Errorf("%w: start time is required", model.ErrInvalidParty)
	}
	if in.Capacity < 0 {
		return fmt.Errorf("%w: capacity cannot be negative", model.ErrInvalidParty)
	}
	if len(in.PriceTiers) == 0 {
		return fmt.Errorf("%w: at least one price tier is required", model.ErrInvalidParty)
	}
	seen := make(map[string]bool, len(in.PriceTiers))
	for _, t := range in.PriceTiers {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" {
			return fmt.Errorf("%w: price tier name is required", model.ErrInvalidParty)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate price tier %q", model.ErrInvalidParty, t.Name)
		}
		if t.PriceCents < 0 {
			return fmt.Errorf("%w: price for %q cannot be negative", model.ErrInvalidParty, t.Name)
		}
		seen[name] = true
	}
	return nil
}

// Service handles party operations
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new party service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With("component", "party"),
	}
}

// Create stores a new party owned by admin
func (s *Service) Create(ctx context.Context, admin *model.User, in Input) (*model.Party, error) {
	if admin == nil || !admin.IsAdmin {
		return nil, model.ErrAdminRequired
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	party := &model.Party{
		ID:          model.PartyID(uuid.NewString()),
		AdminID:     admin.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		StartsAt:    in.StartsAt.UTC(),
		Capacity:    in.Capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, t := range in.PriceTiers {
		party.PriceTiers = append(party.PriceTiers, model.PriceTier{
			ID:         uuid.NewString(),
			Name:       strings.TrimSpace(t.Name),
			PriceCents: t.PriceCents,
		})
	}

	if err := s.storage.SaveParty(ctx, party); err != nil {
		return nil, err
	}

	s.logger.Info("party created",
		slog.String("party", string(party.ID)),
		slog.String("admin_id", string(admin.ID)))
	return party, nil
}

// Get returns a party by ID
func (s *Service) Get(ctx context.Context, id model.PartyID) (*model.Party, error) {
	if id == "" {
		return nil, model.ErrPartyNotFound
	}
	return s.storage.GetParty(ctx, id)
}

// List returns all parties ordered by start time
func (s *Service) List(ctx context.Context) ([]*model.Party, error) {
	return s.storage.ListParties(ctx)
}

// ListForAdmin returns the parties an admin created
func (s *Service) ListForAdmin(ctx context.Context, adminID model.UserID) ([]*model.Party, error) {
	return s.storage.ListPartiesByAdmin(ctx, adminID)
}

// GetOwned returns a party only if admin owns it
func (s *Service) GetOwned(ctx context.Context, id model.PartyID, admin *model.User) (*model.Party, error) {
	party, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := EnsureOwner(party, admin); err != nil {
		return nil, err
	}
	return party, nil
}

// EnsureOwner fails unless admin created the party
func EnsureOwner(party *model.Party, admin *model.User) error {
	if admin == nil || !admin.IsAdmin || party.AdminID != admin.ID {
		return model.ErrNotPartyOwner
	}
	return nil
}

// Guests returns everyone who redeemed a code for the party, in check-in order
func (s *Service) Guests(ctx context.Context, partyID model.PartyID) ([]*model.Guest, error) {
	codes, err := s.storage.ListCodesForParty(ctx, partyID)
	if err != nil {
		return nil, err
	}

	users := make(map[model.UserID]*model.User)
	guests := []*model.Guest{}
	for _, ec := range codes {
		if !ec.AlreadyUsed {
			continue
		}

		user, ok := users[ec.UserID]
		if !ok {
			user, err = s.storage.GetUser(ctx, ec.UserID)
			if errors.Is(err, model.ErrUserNotFound) {
				s.logger.Warn("redeemed code references missing user",
					slog.String("party", string(partyID)),
					slog.String("user_id", string(ec.UserID)))
				user = &model.User{ID: ec.UserID}
			} else if err != nil {
				return nil, err
			}
			users[ec.UserID] = user
		}

		guest := &model.Guest{
			PartyID:   partyID,
			User:      *user,
			Code:      ec.Code,
			PriceName: ec.PriceName,
		}
		if ec.UsedAt != nil {
			guest.CheckedInAt = *ec.UsedAt
		}
		guests = append(guests, guest)
	}

	sort.SliceStable(guests, func(i, j int) bool {
		return guests[i].CheckedInAt.Before(guests[j].CheckedInAt)
	})
	return guests, nil
}

// Attendance is a party a member holds a redeemed code for
type Attendance struct {
	Party     *model.Party `json:"party"`
	Code      string       `json:"code"`
	PriceName string       `json:"price_name"`
}

// Attending lists the parties a user has redeemed codes for, by start time
func (s *Service) Attending(ctx context.Context, userID model.UserID) ([]*Attendance, error) {
	codes, err := s.storage.ListCodesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	parties := make(map[model.PartyID]*model.Party)
	attending := []*Attendance{}
	for _, ec := range codes {
		party, ok := parties[ec.PartyID]
		if !ok {
			party, err = s.storage.GetParty(ctx, ec.PartyID)
			if errors.Is(err, model.ErrPartyNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			parties[ec.PartyID] = party
		}
		attending = append(attending, &Attendance{Party: party, Code: ec.Code, PriceName: ec.PriceName})
	}

	sort.SliceStable(attending, func(i, j int) bool {
		return attending[i].Party.StartsAt.Before(attending[j].Party.StartsAt)
	})
	return attending, nil
}
