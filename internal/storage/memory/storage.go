package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users       map[model.UserID]*model.User
	credentials map[string]*model.Credentials // keyed by email
	sessions    map[string]sessionEntry
	parties     map[model.PartyID]*model.Party
	codes       map[string]*model.EntryCode
}

type sessionEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:       make(map[model.UserID]*model.User),
		credentials: make(map[string]*model.Credentials),
		sessions:    make(map[string]sessionEntry),
		parties:     make(map[model.PartyID]*model.Party),
		codes:       make(map[string]*model.EntryCode),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[user.ID] = &u
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *creds
	s.credentials[creds.Email] = &c
	return nil
}

func (s *Storage) GetCredentialsByEmail(ctx context.Context, email string) (*model.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.credentials[email]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	c := *creds
	return &c, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, token string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := sessionEntry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.sessions[token] = entry
	return nil
}

func (s *Storage) GetSession(ctx context.Context, token string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, model.ErrSessionNotFound
	}
	return append([]byte(nil), entry.data...), nil
}

func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Party operations

func (s *Storage) SaveParty(ctx context.Context, party *model.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[party.ID] = copyParty(party)
	return nil
}

func (s *Storage) GetParty(ctx context.Context, id model.PartyID) (*model.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	party, ok := s.parties[id]
	if !ok {
		return nil, model.ErrPartyNotFound
	}
	return copyParty(party), nil
}

func (s *Storage) ListParties(ctx context.Context) ([]*model.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parties := make([]*model.Party, 0, len(s.parties))
	for _, p := range s.parties {
		parties = append(parties, copyParty(p))
	}
	sortParties(parties)
	return parties, nil
}

func (s *Storage) ListPartiesByAdmin(ctx context.Context, adminID model.UserID) ([]*model.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var parties []*model.Party
	for _, p := range s.parties {
		if p.AdminID == adminID {
			parties = append(parties, copyParty(p))
		}
	}
	sortParties(parties)
	return parties, nil
}

// Entry code operations

func (s *Storage) ListCodeValues(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := make([]string, 0, len(s.codes))
	for code := range s.codes {
		values = append(values, code)
	}
	return values, nil
}

func (s *Storage) CodesExist(ctx context.Context, codes []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var existing []string
	for _, code := range codes {
		if _, ok := s.codes[code]; ok {
			existing = append(existing, code)
		}
	}
	return existing, nil
}

func (s *Storage) InsertCodes(ctx context.Context, codes []*model.EntryCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if _, ok := s.codes[c.Code]; ok {
			return model.ErrDuplicateCode
		}
		if _, ok := seen[c.Code]; ok {
			return model.ErrDuplicateCode
		}
		seen[c.Code] = struct{}{}
	}

	for _, c := range codes {
		ec := *c
		s.codes[c.Code] = &ec
	}
	return nil
}

func (s *Storage) GetCode(ctx context.Context, code string) (*model.EntryCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ec, ok := s.codes[code]
	if !ok {
		return nil, model.ErrCodeNotFound
	}
	c := *ec
	return &c, nil
}

func (s *Storage) MarkCodeUsed(ctx context.Context, code string, userID model.UserID, usedAt time.Time) (*model.EntryCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ec, ok := s.codes[code]
	if !ok {
		return nil, model.ErrCodeNotFound
	}
	if ec.AlreadyUsed {
		return nil, model.ErrCodeAlreadyUsed
	}
	ec.AlreadyUsed = true
	ec.UserID = userID
	t := usedAt
	ec.UsedAt = &t
	c := *ec
	return &c, nil
}

func (s *Storage) ListCodesForParty(ctx context.Context, partyID model.PartyID) ([]*model.EntryCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var codes []*model.EntryCode
	for _, ec := range s.codes {
		if ec.PartyID == partyID {
			c := *ec
			codes = append(codes, &c)
		}
	}
	storage.SortCodes(codes)
	return codes, nil
}

func (s *Storage) ListCodesForUser(ctx context.Context, userID model.UserID) ([]*model.EntryCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var codes []*model.EntryCode
	for _, ec := range s.codes {
		if ec.AlreadyUsed && ec.UserID == userID {
			c := *ec
			codes = append(codes, &c)
		}
	}
	storage.SortCodes(codes)
	return codes, nil
}

func copyParty(p *model.Party) *model.Party {
	c := *p
	c.PriceTiers = append([]model.PriceTier(nil), p.PriceTiers...)
	return &c
}

func sortParties(parties []*model.Party) {
	sort.SliceStable(parties, func(i, j int) bool {
		return parties[i].StartsAt.Before(parties[j].StartsAt)
	})
}
