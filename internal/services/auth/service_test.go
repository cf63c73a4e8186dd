package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/rumbify/rumbify/internal/dependencies/mocks"
	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/storage/memory"
	"github.com/rumbify/rumbify/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, testutil.NopLogger(), Config{BcryptCost: bcrypt.MinCost})
	s.ctx = context.Background()
}

func alice() Registration {
	return Registration{Name: "Alice", Email: "Alice@Example.com ", Password: "password123"}
}

// Register tests

func (s *ServiceSuite) TestRegisterMemberSucceeds() {
	user, err := s.service.RegisterMember(s.ctx, alice())
	s.Require().NoError(err)

	s.NotEmpty(user.ID)
	s.Equal("Alice", user.Name)
	s.Equal("alice@example.com", user.Email)
	s.False(user.IsAdmin)
	s.Equal(model.RoleMember, user.Role())
}

func (s *ServiceSuite) TestRegisterAdminSucceeds() {
	user, err := s.service.RegisterAdmin(s.ctx, alice())
	s.Require().NoError(err)
	s.True(user.IsAdmin)
	s.Equal(model.RoleAdmin, user.Role())
}

func (s *ServiceSuite) TestRegisterPersistsHashedCredentials() {
	user, _ := s.service.RegisterMember(s.ctx, alice())

	creds, err := s.storage.GetCredentialsByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, creds.UserID)
	s.NotEmpty(creds.PasswordHash)
	s.NotEqual("password123", creds.PasswordHash) // Should be hashed

	stored, err := s.storage.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("Alice", stored.Name)
}

func (s *ServiceSuite) TestRegisterFailsIfEmailExists() {
	_, _ = s.service.RegisterMember(s.ctx, alice())

	reg := alice()
	reg.Email = "ALICE@example.com"
	_, err := s.service.RegisterAdmin(s.ctx, reg)
	s.ErrorIs(err, ErrEmailExists)
}

func (s *ServiceSuite) TestRegisterValidatesInput() {
	tests := map[string]Registration{
		"blank name":     {Name: " ", Email: "a@example.com", Password: "password123"},
		"bad email":      {Name: "A", Email: "not-an-email", Password: "password123"},
		"display email":  {Name: "A", Email: "A <a@example.com>", Password: "password123"},
		"short password": {Name: "A", Email: "a@example.com", Password: "short"},
	}
	for name, reg := range tests {
		s.Run(name, func() {
			_, err := s.service.RegisterMember(s.ctx, reg)
			s.ErrorIs(err, ErrInvalidInput)
		})
	}
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	registered, _ := s.service.RegisterMember(s.ctx, alice())

	user, err := s.service.Login(s.ctx, " ALICE@example.com", "password123", model.RoleMember)
	s.Require().NoError(err)
	s.Equal(registered.ID, user.ID)
}

func (s *ServiceSuite) TestLoginFailsWithWrongPassword() {
	_, _ = s.service.RegisterMember(s.ctx, alice())

	_, err := s.service.Login(s.ctx, "alice@example.com", "wrongpassword", model.RoleMember)
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginFailsWithUnknownUser() {
	_, err := s.service.Login(s.ctx, "nobody@example.com", "password123", model.RoleMember)
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginFailsInOtherApp() {
	_, _ = s.service.RegisterAdmin(s.ctx, alice())

	_, err := s.service.Login(s.ctx, "alice@example.com", "password123", model.RoleMember)
	s.ErrorIs(err, ErrWrongApp)

	user, err := s.service.Login(s.ctx, "alice@example.com", "password123", model.RoleAdmin)
	s.Require().NoError(err)
	s.True(user.IsAdmin)
}

func (s *ServiceSuite) TestLoginWithoutRoleAcceptsEither() {
	_, _ = s.service.RegisterAdmin(s.ctx, alice())

	user, err := s.service.Login(s.ctx, "alice@example.com", "password123", model.RoleAnonymous)
	s.Require().NoError(err)
	s.True(user.IsAdmin)
}

// UpdateProfile tests

func (s *ServiceSuite) TestUpdateProfile() {
	user, _ := s.service.RegisterMember(s.ctx, alice())
	s.clock.Advance(time.Hour)

	name, phone := "Alice B", " 555-0100 "
	updated, err := s.service.UpdateProfile(s.ctx, user.ID, ProfileUpdate{Name: &name, Phone: &phone})
	s.Require().NoError(err)
	s.Equal("Alice B", updated.Name)
	s.Equal("555-0100", updated.Phone)
	s.Empty(updated.Bio)
	s.True(s.clock.Now().Equal(updated.UpdatedAt))
	s.False(updated.IsAdmin, "profile updates never change the role")

	stored, _ := s.service.GetUser(s.ctx, user.ID)
	s.Equal("Alice B", stored.Name)
}

func (s *ServiceSuite) TestUpdateProfileRejectsBlankName() {
	user, _ := s.service.RegisterMember(s.ctx, alice())

	blank := "  "
	_, err := s.service.UpdateProfile(s.ctx, user.ID, ProfileUpdate{Name: &blank})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceSuite) TestUpdateProfileUnknownUser() {
	_, err := s.service.UpdateProfile(s.ctx, "ghost", ProfileUpdate{})
	s.ErrorIs(err, model.ErrUserNotFound)
}
