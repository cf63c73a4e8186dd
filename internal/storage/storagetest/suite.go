// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/storage"
)

// Suite runs the common storage tests against Storage.
// Backend suites embed it and set Storage in their SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var baseTime = time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

func (s *Suite) ctx() context.Context {
	if s.Ctx == nil {
		return context.Background()
	}
	return s.Ctx
}

// User tests

func (s *Suite) TestSaveAndGetUser() {
	user := &model.User{
		ID:        "user-1",
		Name:      "Alice",
		Email:     "alice@example.com",
		IsAdmin:   true,
		Phone:     "555-0100",
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	s.Require().NoError(s.Storage.SaveUser(s.ctx(), user))

	got, err := s.Storage.GetUser(s.ctx(), "user-1")
	s.Require().NoError(err)
	s.Equal("Alice", got.Name)
	s.Equal("alice@example.com", got.Email)
	s.True(got.IsAdmin)
	s.Equal("555-0100", got.Phone)
	s.True(baseTime.Equal(got.CreatedAt))
}

func (s *Suite) TestSaveUserOverwrites() {
	user := &model.User{ID: "user-1", Name: "Alice", Email: "alice@example.com"}
	s.Require().NoError(s.Storage.SaveUser(s.ctx(), user))

	user.Name = "Alice B"
	s.Require().NoError(s.Storage.SaveUser(s.ctx(), user))

	got, err := s.Storage.GetUser(s.ctx(), "user-1")
	s.Require().NoError(err)
	s.Equal("Alice B", got.Name)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.ctx(), "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Credential tests

func (s *Suite) TestSaveAndGetCredentials() {
	s.Require().NoError(s.Storage.SaveUser(s.ctx(), &model.User{ID: "user-1", Email: "alice@example.com"}))
	creds := &model.Credentials{
		UserID:       "user-1",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
	s.Require().NoError(s.Storage.SaveCredentials(s.ctx(), creds))

	got, err := s.Storage.GetCredentialsByEmail(s.ctx(), "alice@example.com")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), got.UserID)
	s.Equal("hash", got.PasswordHash)
}

func (s *Suite) TestGetCredentialsNotFound() {
	_, err := s.Storage.GetCredentialsByEmail(s.ctx(), "nobody@example.com")
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Session tests

func (s *Suite) TestSessionLifecycle() {
	s.Require().NoError(s.Storage.SaveSession(s.ctx(), "tok", []byte(`{"role":"member"}`), time.Hour))

	data, err := s.Storage.GetSession(s.ctx(), "tok")
	s.Require().NoError(err)
	s.JSONEq(`{"role":"member"}`, string(data))

	s.Require().NoError(s.Storage.DeleteSession(s.ctx(), "tok"))
	_, err = s.Storage.GetSession(s.ctx(), "tok")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestSessionKeepsRawBytes() {
	raw := []byte("{not json")
	s.Require().NoError(s.Storage.SaveSession(s.ctx(), "tok", raw, 0))

	data, err := s.Storage.GetSession(s.ctx(), "tok")
	s.Require().NoError(err)
	s.Equal(raw, data)
}

func (s *Suite) TestGetSessionNotFound() {
	_, err := s.Storage.GetSession(s.ctx(), "missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestDeleteMissingSessionIsNoop() {
	s.NoError(s.Storage.DeleteSession(s.ctx(), "missing"))
}

// Party tests

func (s *Suite) newParty(id model.PartyID, admin model.UserID, startsAt time.Time) *model.Party {
	return &model.Party{
		ID:          id,
		AdminID:     admin,
		Name:        "Party " + string(id),
		Description: "Dancing",
		Location:    "Warehouse",
		StartsAt:    startsAt,
		Capacity:    100,
		PriceTiers: []model.PriceTier{
			{ID: string(id) + "-vip", Name: "VIP", PriceCents: 5000},
			{ID: string(id) + "-ga", Name: "General", PriceCents: 2000},
		},
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func (s *Suite) TestSaveAndGetParty() {
	party := s.newParty("p1", "admin-1", baseTime.Add(24*time.Hour))
	s.Require().NoError(s.Storage.SaveParty(s.ctx(), party))

	got, err := s.Storage.GetParty(s.ctx(), "p1")
	s.Require().NoError(err)
	s.Equal("Party p1", got.Name)
	s.Equal(model.UserID("admin-1"), got.AdminID)
	s.Equal(100, got.Capacity)
	s.Require().Len(got.PriceTiers, 2)
	s.Equal("VIP", got.PriceTiers[0].Name)
	s.Equal(int64(5000), got.PriceTiers[0].PriceCents)
	s.Equal("General", got.PriceTiers[1].Name)
	s.True(party.StartsAt.Equal(got.StartsAt))
}

func (s *Suite) TestSavePartyReplacesTiers() {
	party := s.newParty("p1", "admin-1", baseTime)
	s.Require().NoError(s.Storage.SaveParty(s.ctx(), party))

	party.PriceTiers = []model.PriceTier{{ID: "p1-early", Name: "Early Bird", PriceCents: 1000}}
	s.Require().NoError(s.Storage.SaveParty(s.ctx(), party))

	got, err := s.Storage.GetParty(s.ctx(), "p1")
	s.Require().NoError(err)
	s.Require().Len(got.PriceTiers, 1)
	s.Equal("Early Bird", got.PriceTiers[0].Name)
}

func (s *Suite) TestGetPartyNotFound() {
	_, err := s.Storage.GetParty(s.ctx(), "missing")
	s.ErrorIs(err, model.ErrPartyNotFound)
}

func (s *Suite) TestListPartiesOrderedByStart() {
	s.Require().NoError(s.Storage.SaveParty(s.ctx(), s.newParty("late", "a1", baseTime.Add(48*time.Hour))))
	s.Require().NoError(s.Storage.SaveParty(s.ctx(), s.newParty("early", "a2", baseTime.Add(time.Hour))))
	s.Require().NoError(s.Storage.SaveParty(s.ctx(), s.newParty("mid", "a1", baseTime.Add(24*time.Hour))))

	all, err := s.Storage.ListParties(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(model.PartyID("early"), all[0].ID)
	s.Equal(model.PartyID("mid"), all[1].ID)
	s.Equal(model.PartyID("late"), all[2].ID)

	mine, err := s.Storage.ListPartiesByAdmin(s.ctx(), "a1")
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal(model.PartyID("mid"), mine[0].ID)
	s.Equal(model.PartyID("late"), mine[1].ID)
}

// Entry code tests

func (s *Suite) codeBatch(party model.PartyID, codes ...string) []*model.EntryCode {
	batch := make([]*model.EntryCode, len(codes))
	for i, c := range codes {
		batch[i] = &model.EntryCode{
			ID:        fmt.Sprintf("%s-%d", c, i),
			PartyID:   party,
			Code:      c,
			PriceName: "VIP",
			CreatedAt: baseTime.Add(time.Duration(i) * time.Second),
		}
	}
	return batch
}

func (s *Suite) TestInsertAndGetCodes() {
	s.Require().NoError(s.Storage.InsertCodes(s.ctx(), s.codeBatch("p1", "AAAA1111", "BBBB2222")))

	got, err := s.Storage.GetCode(s.ctx(), "AAAA1111")
	s.Require().NoError(err)
	s.Equal(model.PartyID("p1"), got.PartyID)
	s.Equal("VIP", got.PriceName)
	s.False(got.AlreadyUsed)
	s.Empty(got.UserID)
	s.Nil(got.UsedAt)

	values, err := s.Storage.ListCodeValues(s.ctx())
	s.Require().NoError(err)
	s.ElementsMatch([]string{"AAAA1111", "BBBB2222"}, values)
}

func (s *Suite) TestGetCodeNotFound() {
	_, err := s.Storage.GetCode(s.ctx(), "ZZZZ9999")
	s.ErrorIs(err, model.ErrCodeNotFound)
}

func (s *Suite) TestInsertCodesIsAllOrNothing() {
	s.Require().NoError(s.Storage.InsertCodes(s.ctx(), s.codeBatch("p1", "AAAA1111")))

	err := s.Storage.InsertCodes(s.ctx(), s.codeBatch("p1", "CCCC3333", "AAAA1111", "DDDD4444"))
	s.ErrorIs(err, model.ErrDuplicateCode)

	values, err := s.Storage.ListCodeValues(s.ctx())
	s.Require().NoError(err)
	s.Equal([]string{"AAAA1111"}, values)
}

func (s *Suite) TestInsertCodesRejectsDuplicatesWithinBatch() {
	err := s.Storage.InsertCodes(s.ctx(), s.codeBatch("p1", "EEEE5555", "EEEE5555"))
	s.ErrorIs(err, model.ErrDuplicateCode)

	values, err := s.Storage.ListCodeValues(s.ctx())
	s.Require().NoError(err)
	s.Empty(values)
}

func (s *Suite) TestCodesExist() {
	s.Require().NoError(s.Storage.InsertCodes(s.ctx(), s.codeBatch("p1", "AAAA1111", "BBBB2222")))

	existing, err := s.Storage.CodesExist(s.ctx(), []string{"AAAA1111", "ZZZZ0000", "BBBB2222"})
	s.Require().NoError(err)
	s.ElementsMatch([]string{"AAAA1111", "BBBB2222"}, existing)

	existing, err = s.Storage.CodesExist(s.ctx(), []string{"ZZZZ0000"})
	s.Require().NoError(err)
	s.Empty(existing)

	existing, err = s.Storage.CodesExist(s.ctx(), nil)
	s.Require().NoError(err)
	s.Empty(existing)
}

func (s *Suite) TestMarkCodeUsed() {
	s.Require().NoError(s.Storage.InsertCodes(s.ctx(), s.codeBatch("p1", "AAAA1111")))
	usedAt := baseTime.Add(time.Hour)

	ec, err := s.Storage.MarkCodeUsed(s.ctx(), "AAAA1111", "user-1", usedAt)
	s.Require().NoError(err)
	s.True(ec.AlreadyUsed)
	s.Equal(model.UserID("user-1"), ec.UserID)
	s.Require().NotNil(ec.UsedAt)
	s.True(usedAt.Equal(*ec.UsedAt))

	got, err := s.Storage.GetCode(s.ctx(), "AAAA1111")
	s.Require().NoError(err)
	s.True(got.AlreadyUsed)
	s.Equal(model.UserID("user-1"), got.UserID)
}

func (s *Suite) TestMarkCodeUsedTwiceFails() {
	s.Require().NoError(s.Storage.InsertCodes(s.ctx(), s.codeBatch("p1", "AAAA1111")))

	_, err := s.Storage.MarkCodeUsed(s.ctx(), "AAAA1111", "user-1", baseTime)
	s.Require().NoError(err)

	_, err = s.Storage.MarkCodeUsed(s.ctx(), "AAAA1111", "user-2", baseTime)
	s.ErrorIs(err, model.ErrCodeAlreadyUsed)

	got, err := s.Storage.GetCode(s.ctx(), "AAAA1111")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), got.UserID)
}

func (s *Suite) TestMarkCodeUsedNotFound() {
	_, err := s.Storage.MarkCodeUsed(s.ctx(), "ZZZZ9999", "user-1", baseTime)
	s.ErrorIs(err, model.ErrCodeNotFound)
}

func (s *Suite) TestMarkCodeUsedConcurrently() {
	s.Require().NoError(s.Storage.InsertCodes(s.ctx(), s.codeBatch("p1", "AAAA1111")))

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Storage.MarkCodeUsed(s.ctx(), "AAAA1111", model.UserID(fmt.Sprintf("user-%d", i)), baseTime)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, model.ErrCodeAlreadyUsed)
		}
	}
	s.Equal(1, succeeded)
}

func (s *Suite) TestListCodesForPartyAndUser() {
	s.Require().NoError(s.Storage.InsertCodes(s.ctx(), s.codeBatch("p1", "AAAA1111", "BBBB2222")))
	s.Require().NoError(s.Storage.InsertCodes(s.ctx(), s.codeBatch("p2", "CCCC3333")))

	codes, err := s.Storage.ListCodesForParty(s.ctx(), "p1")
	s.Require().NoError(err)
	s.Require().Len(codes, 2)
	s.Equal("AAAA1111", codes[0].Code)
	s.Equal("BBBB2222", codes[1].Code)

	_, err = s.Storage.MarkCodeUsed(s.ctx(), "CCCC3333", "user-1", baseTime)
	s.Require().NoError(err)

	mine, err := s.Storage.ListCodesForUser(s.ctx(), "user-1")
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(model.PartyID("p2"), mine[0].PartyID)

	none, err := s.Storage.ListCodesForUser(s.ctx(), "user-2")
	s.Require().NoError(err)
	s.Empty(none)
}
