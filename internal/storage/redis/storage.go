package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().DialTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, userKey(user.ID), data, 0).Err()
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var user model.User
	if err := s.getJSON(ctx, userKey(id), &user, model.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &user, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, credentialsKey(creds.Email), data, 0).Err()
}

func (s *Storage) GetCredentialsByEmail(ctx context.Context, email string) (*model.Credentials, error) {
	var creds model.Credentials
	if err := s.getJSON(ctx, credentialsKey(email), &creds, model.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, token string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, sessionKey(token), data, ttl).Err()
}

func (s *Storage) GetSession(ctx context.Context, token string) ([]byte, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}

// Party operations

func (s *Storage) SaveParty(ctx context.Context, party *model.Party) error {
	data, err := json.Marshal(party)
	if err != nil {
		return err
	}

	member := redis.Z{
		Score:  float64(party.StartsAt.UnixMilli()),
		Member: string(party.ID),
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, partyKey(party.ID), data, 0)
	pipe.ZAdd(ctx, partiesIndexKey(), member)
	pipe.ZAdd(ctx, adminPartiesIndexKey(party.AdminID), member)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetParty(ctx context.Context, id model.PartyID) (*model.Party, error) {
	var party model.Party
	if err := s.getJSON(ctx, partyKey(id), &party, model.ErrPartyNotFound); err != nil {
		return nil, err
	}
	return &party, nil
}

func (s *Storage) ListParties(ctx context.Context) ([]*model.Party, error) {
	return s.listPartiesFromIndex(ctx, partiesIndexKey())
}

func (s *Storage) ListPartiesByAdmin(ctx context.Context, adminID model.UserID) ([]*model.Party, error) {
	return s.listPartiesFromIndex(ctx, adminPartiesIndexKey(adminID))
}

func (s *Storage) listPartiesFromIndex(ctx context.Context, indexKey string) ([]*model.Party, error) {
	ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Party{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = partyKey(model.PartyID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	parties := make([]*model.Party, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Index entry without a party
		}
		var party model.Party
		if err := json.Unmarshal([]byte(str), &party); err != nil {
			continue // Skip invalid data
		}
		parties = append(parties, &party)
	}
	return parties, nil
}

// Entry code operations

func (s *Storage) ListCodeValues(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, codesIndexKey()).Result()
}

func (s *Storage) CodesExist(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(codes))
	for i, code := range codes {
		cmds[i] = pipe.Exists(ctx, codeKey(code))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	var existing []string
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			existing = append(existing, codes[i])
		}
	}
	return existing, nil
}

// insertCodesScript stores a code batch with its index entries, or nothing
// when any code key already exists
var insertCodesScript = redis.NewScript(`
local n = tonumber(ARGV[1])
for i = 1, n do
	if redis.call('EXISTS', KEYS[i]) == 1 then
		return 0
	end
end
for i = 1, n do
	redis.call('SET', KEYS[i], ARGV[1 + i])
	redis.call('SADD', KEYS[n + 1], ARGV[1 + n + i])
	redis.call('SADD', KEYS[n + 1 + i], KEYS[i])
end
return 1
`)

func (s *Storage) InsertCodes(ctx context.Context, codes []*model.EntryCode) error {
	if len(codes) == 0 {
		return nil
	}

	// KEYS: n code keys, the codes index, n party index keys
	// ARGV: n, n records, n code values
	n := len(codes)
	keys := make([]string, 2*n+1)
	args := make([]any, 2*n+1)
	args[0] = n
	keys[n] = codesIndexKey()

	seen := make(map[string]struct{}, n)
	for i, c := range codes {
		if _, ok := seen[c.Code]; ok {
			return model.ErrDuplicateCode
		}
		seen[c.Code] = struct{}{}

		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		keys[i] = codeKey(c.Code)
		keys[n+1+i] = partyCodesIndexKey(c.PartyID)
		args[1+i] = data
		args[1+n+i] = c.Code
	}

	ok, err := insertCodesScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return model.ErrDuplicateCode
	}
	return nil
}

func (s *Storage) GetCode(ctx context.Context, code string) (*model.EntryCode, error) {
	var ec model.EntryCode
	if err := s.getJSON(ctx, codeKey(code), &ec, model.ErrCodeNotFound); err != nil {
		return nil, err
	}
	return &ec, nil
}

func (s *Storage) MarkCodeUsed(ctx context.Context, code string, userID model.UserID, usedAt time.Time) (*model.EntryCode, error) {
	key := codeKey(code)
	var result *model.EntryCode

	markUsed := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrCodeNotFound
			}
			return err
		}

		var ec model.EntryCode
		if err := json.Unmarshal(data, &ec); err != nil {
			return err
		}
		if ec.AlreadyUsed {
			return model.ErrCodeAlreadyUsed
		}

		ec.AlreadyUsed = true
		ec.UserID = userID
		t := usedAt
		ec.UsedAt = &t

		updated, err := json.Marshal(&ec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.SAdd(ctx, userCodesIndexKey(userID), key)
			return nil
		})
		if err != nil {
			return err
		}
		result = &ec
		return nil
	}

	retries := s.cfg.RedeemRetries
	if retries <= 0 {
		retries = DefaultConfig().RedeemRetries
	}
	for i := 0; i < retries; i++ {
		err := s.client.Watch(ctx, markUsed, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue // Someone else touched the code; re-read it
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, redis.TxFailedErr
}

func (s *Storage) ListCodesForParty(ctx context.Context, partyID model.PartyID) ([]*model.EntryCode, error) {
	return s.listCodesFromIndex(ctx, partyCodesIndexKey(partyID))
}

func (s *Storage) ListCodesForUser(ctx context.Context, userID model.UserID) ([]*model.EntryCode, error) {
	return s.listCodesFromIndex(ctx, userCodesIndexKey(userID))
}

func (s *Storage) listCodesFromIndex(ctx context.Context, indexKey string) ([]*model.EntryCode, error) {
	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []*model.EntryCode{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	codes := make([]*model.EntryCode, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var ec model.EntryCode
		if err := json.Unmarshal([]byte(str), &ec); err != nil {
			continue // Skip invalid data
		}
		codes = append(codes, &ec)
	}
	storage.SortCodes(codes)
	return codes, nil
}

// getJSON loads key into dest, mapping a missing key to notFound
func (s *Storage) getJSON(ctx context.Context, key string, dest any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}
