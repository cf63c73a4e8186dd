package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini  *miniredis.Miniredis
	redis *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.redis = NewWithClient(client, DefaultConfig())
	s.Storage = s.redis
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestSessionTTL() {
	s.Require().NoError(s.redis.SaveSession(s.Ctx, "short", []byte("{}"), time.Hour))
	s.Require().NoError(s.redis.SaveSession(s.Ctx, "forever", []byte("{}"), 0))

	s.Equal(time.Hour, s.mini.TTL(sessionKey("short")))
	s.Equal(time.Duration(0), s.mini.TTL(sessionKey("forever")))

	s.mini.FastForward(2 * time.Hour)
	_, err := s.redis.GetSession(s.Ctx, "short")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestInsertCodesMaintainsIndexes() {
	codes := []*model.EntryCode{
		{ID: "1", PartyID: "p1", Code: "AAAA1111", PriceName: "VIP"},
		{ID: "2", PartyID: "p1", Code: "BBBB2222", PriceName: "VIP"},
	}
	s.Require().NoError(s.redis.InsertCodes(s.Ctx, codes))

	members, err := s.mini.SMembers(codesIndexKey())
	s.Require().NoError(err)
	s.ElementsMatch([]string{"AAAA1111", "BBBB2222"}, members)

	partyMembers, err := s.mini.SMembers(partyCodesIndexKey("p1"))
	s.Require().NoError(err)
	s.ElementsMatch([]string{codeKey("AAAA1111"), codeKey("BBBB2222")}, partyMembers)
}

// failingHook fails every command or pipeline containing a command named cmd
type failingHook struct {
	cmd string
	err error
}

func (h failingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h failingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == h.cmd {
			cmd.SetErr(h.err)
			return h.err
		}
		return next(ctx, cmd)
	}
}

func (h failingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			if cmd.Name() == h.cmd {
				return h.err
			}
		}
		return next(ctx, cmds)
	}
}

func (s *StorageSuite) TestInsertCodesNeverStoresWithoutIndexes() {
	// the batch must not rely on a separate index write that can fail
	s.redis.client.AddHook(failingHook{cmd: "sadd", err: errors.New("connection reset")})

	codes := []*model.EntryCode{{ID: "1", PartyID: "p1", Code: "ABCDEFGH", PriceName: "VIP"}}
	s.Require().NoError(s.redis.InsertCodes(s.Ctx, codes))

	values, err := s.redis.ListCodeValues(s.Ctx)
	s.Require().NoError(err)
	s.Equal([]string{"ABCDEFGH"}, values)

	listed, err := s.redis.ListCodesForParty(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Len(listed, 1)
}

func (s *StorageSuite) TestInsertCodesFailureLeavesNothing() {
	reset := errors.New("connection reset")
	s.redis.client.AddHook(failingHook{cmd: "evalsha", err: reset})

	codes := []*model.EntryCode{{ID: "1", PartyID: "p1", Code: "ABCDEFGH", PriceName: "VIP"}}
	s.ErrorIs(s.redis.InsertCodes(s.Ctx, codes), reset)

	s.False(s.mini.Exists(codeKey("ABCDEFGH")))
	s.False(s.mini.Exists(codesIndexKey()))
	s.False(s.mini.Exists(partyCodesIndexKey("p1")))
}

func (s *StorageSuite) TestInsertCodesClashWritesNothing() {
	s.Require().NoError(s.mini.Set(codeKey("BBBB2222"), "{}"))

	codes := []*model.EntryCode{
		{ID: "1", PartyID: "p1", Code: "AAAA1111", PriceName: "VIP"},
		{ID: "2", PartyID: "p1", Code: "BBBB2222", PriceName: "VIP"},
	}
	s.ErrorIs(s.redis.InsertCodes(s.Ctx, codes), model.ErrDuplicateCode)

	s.False(s.mini.Exists(codeKey("AAAA1111")))
	s.False(s.mini.Exists(codesIndexKey()))
	s.False(s.mini.Exists(partyCodesIndexKey("p1")))
}

func (s *StorageSuite) TestListPartiesSkipsDanglingIndexEntries() {
	_, err := s.mini.ZAdd(partiesIndexKey(), 1, "ghost")
	s.Require().NoError(err)

	parties, err := s.redis.ListParties(s.Ctx)
	s.Require().NoError(err)
	s.Empty(parties)
}

func (s *StorageSuite) TestNewRejectsBadURL() {
	cfg := DefaultConfig()
	cfg.URL = "not-a-url"
	_, err := New(cfg)
	s.Error(err)
}

func (s *StorageSuite) TestNewConnects() {
	cfg := DefaultConfig()
	cfg.URL = "redis://" + s.mini.Addr()
	store, err := New(cfg)
	s.Require().NoError(err)
	s.NoError(store.Close())
}
