// Package codes generates, validates and redeems party entry codes.
package codes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rumbify/rumbify/internal/dependencies/clock"
	"github.com/rumbify/rumbify/internal/dependencies/random"
	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/storage"
)

const (
	// MaxQuantity is the largest batch a single request may generate
	MaxQuantity = 100

	// After rejectFactor × quantity rejected draws the generator mixes in a timestamp
	rejectFactor = 10
	// A request may draw at most drawFactor × quantity candidates
	drawFactor = 100

	fallbackRandomChars = 4
)

// Notifier is told about every successful redemption
type Notifier interface {
	GuestCheckedIn(ctx context.Context, guest *model.Guest)
}

// Service handles entry code operations
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
	notifier Notifier
}

// New creates a new code service
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With("component", "codes"),
	}
}

// SetNotifier registers the receiver of check-in events
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// GenerateRequest asks for Quantity new codes at one price tier.
// The tier is looked up by PriceID when set, otherwise by PriceName.
type GenerateRequest struct {
	PartyID   model.PartyID
	PriceName string
	PriceID   string
	Quantity  int
}

// GenerateResult holds a committed batch
type GenerateResult struct {
	Codes []string
	Saved []*model.EntryCode
}

// ValidQuantity reports whether n codes may be generated in one batch
func ValidQuantity(n int) bool {
	return n >= 1 && n <= MaxQuantity
}

// Generate creates Quantity unique codes and stores them in one write.
// Nothing is stored unless every code in the batch is unique.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if !ValidQuantity(req.Quantity) {
		return nil, model.ErrInvalidQuantity
	}

	party, err := s.storage.GetParty(ctx, req.PartyID)
	if err != nil {
		return nil, err
	}

	var tier *model.PriceTier
	if req.PriceID != "" {
		tier = party.TierByID(req.PriceID)
	} else {
		tier = party.TierByName(req.PriceName)
	}
	if tier == nil {
		return nil, model.ErrPriceTierMissing
	}

	existing, err := s.storage.ListCodeValues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing codes: %w", err)
	}
	taken := make(map[string]struct{}, len(existing)+req.Quantity)
	for _, c := range existing {
		taken[c] = struct{}{}
	}

	batch, err := s.drawBatch(req.Quantity, taken)
	if err != nil {
		s.logger.Warn("code space exhausted",
			slog.String("party", string(party.ID)),
			slog.Int("quantity", req.Quantity),
			slog.Int("existing", len(existing)))
		return nil, err
	}

	// Another writer may have inserted since the snapshot
	clashes, err := s.storage.CodesExist(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check codes: %w", err)
	}
	if len(clashes) > 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrDuplicateCode, strings.Join(clashes, ", "))
	}

	now := s.clock.Now()
	saved := make([]*model.EntryCode, len(batch))
	for i, code := range batch {
		saved[i] = &model.EntryCode{
			ID:        uuid.NewString(),
			PartyID:   party.ID,
			Code:      code,
			PriceName: tier.Name,
			CreatedAt: now,
		}
	}

	if err := s.storage.InsertCodes(ctx, saved); err != nil {
		return nil, err
	}

	s.logger.Info("codes generated",
		slog.String("party", string(party.ID)),
		slog.String("tier", tier.Name),
		slog.Int("quantity", len(batch)))

	return &GenerateResult{Codes: batch, Saved: saved}, nil
}

// drawBatch draws quantity codes that are neither taken nor repeated.
// taken is extended with the batch.
func (s *Service) drawBatch(quantity int, taken map[string]struct{}) ([]string, error) {
	batch := make([]string, 0, quantity)
	maxDraws := quantity * drawFactor
	fallbackAfter := quantity * rejectFactor

	draws, rejected := 0, 0
	for len(batch) < quantity {
		if draws >= maxDraws {
			return nil, model.ErrCodeSpaceExhausted
		}
		draws++

		var candidate string
		if rejected >= fallbackAfter {
			candidate = s.fallbackCode()
		} else {
			candidate = s.random.String(model.EntryCodeLength, model.EntryCodeAlphabet)
		}

		if !model.ValidCodeFormat(candidate) {
			rejected++
			continue
		}
		if _, ok := taken[candidate]; ok {
			rejected++
			continue
		}

		taken[candidate] = struct{}{}
		batch = append(batch, candidate)
	}
	return batch, nil
}

// fallbackCode mixes the clock into the code once random draws keep colliding
func (s *Service) fallbackCode() string {
	prefix := s.random.String(fallbackRandomChars, model.EntryCodeAlphabet)
	stamp := strings.ToUpper(strconv.FormatInt(s.clock.Now().UnixNano(), 36))
	suffixLen := model.EntryCodeLength - fallbackRandomChars
	if len(stamp) > suffixLen {
		stamp = stamp[len(stamp)-suffixLen:]
	}
	return prefix + stamp
}

// Validation reports whether a code can still be redeemed
type Validation struct {
	Code        string        `json:"code"`
	Valid       bool          `json:"valid"`
	AlreadyUsed bool          `json:"already_used"`
	PartyID     model.PartyID `json:"party_id"`
	PriceName   string        `json:"price_name"`
}

// Validate looks a code up without changing it
func (s *Service) Validate(ctx context.Context, code string) (*Validation, error) {
	code = model.NormalizeCode(code)
	if !model.ValidCodeFormat(code) {
		return nil, model.ErrCodeNotFound
	}

	ec, err := s.storage.GetCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return &Validation{
		Code:        ec.Code,
		Valid:       !ec.AlreadyUsed,
		AlreadyUsed: ec.AlreadyUsed,
		PartyID:     ec.PartyID,
		PriceName:   ec.PriceName,
	}, nil
}

// Redeem marks a code used by userID. When partyID is set the code must
// belong to that party.
func (s *Service) Redeem(ctx context.Context, code string, userID model.UserID, partyID model.PartyID) (*model.Guest, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	code = model.NormalizeCode(code)
	if !model.ValidCodeFormat(code) {
		return nil, model.ErrCodeNotFound
	}

	ec, err := s.storage.GetCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if partyID != "" && ec.PartyID != partyID {
		return nil, model.ErrCodeWrongParty
	}
	if ec.AlreadyUsed {
		return nil, model.ErrCodeAlreadyUsed
	}

	used, err := s.storage.MarkCodeUsed(ctx, code, user.ID, s.clock.Now())
	if err != nil {
		if errors.Is(err, model.ErrCodeAlreadyUsed) {
			s.logger.Info("lost redemption race", slog.String("party", string(ec.PartyID)))
		}
		return nil, err
	}

	guest := &model.Guest{
		PartyID:   used.PartyID,
		User:      *user,
		Code:      used.Code,
		PriceName: used.PriceName,
	}
	if used.UsedAt != nil {
		guest.CheckedInAt = *used.UsedAt
	}

	s.logger.Info("code redeemed",
		slog.String("party", string(used.PartyID)),
		slog.String("user_id", string(user.ID)))

	if s.notifier != nil {
		s.notifier.GuestCheckedIn(ctx, guest)
	}
	return guest, nil
}

// ListForParty returns every code of a party, oldest first
func (s *Service) ListForParty(ctx context.Context, partyID model.PartyID) ([]*model.EntryCode, error) {
	if _, err := s.storage.GetParty(ctx, partyID); err != nil {
		return nil, err
	}
	return s.storage.ListCodesForParty(ctx, partyID)
}

// TierSummary counts codes of one price tier
type TierSummary struct {
	PriceName string `json:"price_name"`
	Total     int    `json:"total"`
	Used      int    `json:"used"`
}

// Summary counts a party's codes per tier
type Summary struct {
	PartyID model.PartyID `json:"party_id"`
	Total   int           `json:"total"`
	Used    int           `json:"used"`
	Tiers   []TierSummary `json:"tiers"`
}

// Summary counts codes per price tier, listing tiers in party order.
// Codes whose tier was later removed from the party are listed after them.
func (s *Service) Summary(ctx context.Context, partyID model.PartyID) (*Summary, error) {
	party, err := s.storage.GetParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	codes, err := s.storage.ListCodesForParty(ctx, partyID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{PartyID: partyID, Tiers: []TierSummary{}}
	index := make(map[string]int)
	for _, tier := range party.PriceTiers {
		index[strings.ToLower(tier.Name)] = len(sum.Tiers)
		sum.Tiers = append(sum.Tiers, TierSummary{PriceName: tier.Name})
	}

	for _, ec := range codes {
		key := strings.ToLower(ec.PriceName)
		i, ok := index[key]
		if !ok {
			i = len(sum.Tiers)
			index[key] = i
			sum.Tiers = append(sum.Tiers, TierSummary{PriceName: ec.PriceName})
		}
		sum.Tiers[i].Total++
		sum.Total++
		if ec.AlreadyUsed {
			sum.Tiers[i].Used++
			sum.Used++
		}
	}
	return sum, nil
}
