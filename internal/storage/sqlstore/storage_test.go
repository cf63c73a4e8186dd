package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	sql *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.Ctx = context.Background()
	path := filepath.Join(s.T().TempDir(), "rumbify.db")

	store, err := Open(s.Ctx, DialectSQLite, path)
	s.Require().NoError(err)
	s.sql = store
	s.Storage = store
}

func (s *StorageSuite) TearDownTest() {
	if s.sql != nil {
		_ = s.sql.Close()
	}
}

func (s *StorageSuite) TestCreateSchemaIsIdempotent() {
	s.NoError(s.sql.CreateSchema(s.Ctx))
	s.NoError(s.sql.CreateSchema(s.Ctx))
}

func (s *StorageSuite) TestSessionWithoutTTLNeverExpires() {
	s.Require().NoError(s.sql.SaveSession(s.Ctx, "tok", []byte(`{"role":"member"}`), 0))

	data, err := s.sql.GetSession(s.Ctx, "tok")
	s.Require().NoError(err)
	s.JSONEq(`{"role":"member"}`, string(data))
}

func (s *StorageSuite) TestExpiredSessionIsRemoved() {
	_, err := s.sql.db.ExecContext(s.Ctx,
		`INSERT INTO sessions (token, data, expires_at) VALUES (?, ?, ?)`,
		"old", "{}", "2000-01-01T00:00:00.000000000Z")
	s.Require().NoError(err)

	_, err = s.sql.GetSession(s.Ctx, "old")
	s.ErrorIs(err, model.ErrSessionNotFound)

	var count int
	s.Require().NoError(s.sql.db.QueryRowContext(s.Ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count))
	s.Equal(0, count)
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("oracle"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")
}

func TestRebind(t *testing.T) {
	pg := New(nil, DialectPostgres)
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)",
		pg.rebind("SELECT * FROM t WHERE a = ? AND b IN (?, ?)"))

	lite := New(nil, DialectSQLite)
	assert.Equal(t, "SELECT ? FROM t", lite.rebind("SELECT ? FROM t"))
}

func TestTimeRoundTripKeepsOrdering(t *testing.T) {
	a, err := parseTime("2025-06-01T21:00:00.000000000Z")
	require.NoError(t, err)
	b, err := parseTime("2025-06-01T21:00:00.500000000Z")
	require.NoError(t, err)
	assert.True(t, a.Before(b))
	assert.Less(t, formatTime(a), formatTime(b))

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}
