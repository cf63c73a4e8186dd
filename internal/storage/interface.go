package storage

import (
	"context"
	"time"

	"github.com/rumbify/rumbify/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)

	// Credential operations
	SaveCredentials(ctx context.Context, creds *model.Credentials) error
	GetCredentialsByEmail(ctx context.Context, email string) (*model.Credentials, error)

	// Session operations
	// Session data is stored as raw bytes so that readers can detect and
	// discard records they cannot parse
	SaveSession(ctx context.Context, token string, data []byte, ttl time.Duration) error
	GetSession(ctx context.Context, token string) ([]byte, error)
	DeleteSession(ctx context.Context, token string) error

	// Party operations
	SaveParty(ctx context.Context, party *model.Party) error
	GetParty(ctx context.Context, id model.PartyID) (*model.Party, error)
	ListParties(ctx context.Context) ([]*model.Party, error)
	ListPartiesByAdmin(ctx context.Context, adminID model.UserID) ([]*model.Party, error)

	// Entry code operations
	ListCodeValues(ctx context.Context) ([]string, error)
	CodesExist(ctx context.Context, codes []string) ([]string, error)
	// InsertCodes persists the whole batch or nothing; a code that already
	// exists fails the batch with model.ErrDuplicateCode
	InsertCodes(ctx context.Context, codes []*model.EntryCode) error
	GetCode(ctx context.Context, code string) (*model.EntryCode, error)
	// MarkCodeUsed flips an unused code to used; a used code yields
	// model.ErrCodeAlreadyUsed and is left untouched
	MarkCodeUsed(ctx context.Context, code string, userID model.UserID, usedAt time.Time) (*model.EntryCode, error)
	ListCodesForParty(ctx context.Context, partyID model.PartyID) ([]*model.EntryCode, error)
	ListCodesForUser(ctx context.Context, userID model.UserID) ([]*model.EntryCode, error)
}
