// Package sqlstore implements storage on database/sql for SQLite and PostgreSQL.
// Entry code uniqueness is enforced by a UNIQUE constraint, so a batch insert
// that races another generator fails inside its transaction instead of
// committing duplicates.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/storage"
)

// Dialect selects placeholder style and driver
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// timeLayout is fixed width so that text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Storage is a SQL-backed implementation of the storage interface
type Storage struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database and creates the schema.
// For SQLite dsn is a file path; for PostgreSQL it is a connection URL.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Storage, error) {
	var driver string
	switch dialect {
	case DialectSQLite:
		driver = "sqlite"
	case DialectPostgres:
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// A single connection serialises writers and keeps ":memory:" databases alive
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	s := New(db, dialect)
	if err := s.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection; the schema must already exist
func New(db *sql.DB, dialect Dialect) *Storage {
	return &Storage{db: db, dialect: dialect}
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, name, email, is_admin, phone, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			is_admin = excluded.is_admin,
			phone = excluded.phone,
			bio = excluded.bio,
			updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		string(user.ID), user.Name, user.Email, user.IsAdmin, user.Phone, user.Bio,
		formatTime(user.CreatedAt), formatTime(user.UpdatedAt))
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	query := `SELECT id, name, email, is_admin, phone, bio, created_at, updated_at FROM users WHERE id = ?`
	row := s.db.QueryRowContext(ctx, s.rebind(query), string(id))

	var (
		user               model.User
		createdAt, updated string
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.IsAdmin, &user.Phone, &user.Bio, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &user, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	query := `INSERT INTO credentials (email, user_id, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			user_id = excluded.user_id,
			password_hash = excluded.password_hash,
			updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		creds.Email, string(creds.UserID), creds.PasswordHash,
		formatTime(creds.CreatedAt), formatTime(creds.UpdatedAt))
	return err
}

func (s *Storage) GetCredentialsByEmail(ctx context.Context, email string) (*model.Credentials, error) {
	query := `SELECT email, user_id, password_hash, created_at, updated_at FROM credentials WHERE email = ?`
	row := s.db.QueryRowContext(ctx, s.rebind(query), email)

	var (
		creds              model.Credentials
		createdAt, updated string
	)
	err := row.Scan(&creds.Email, &creds.UserID, &creds.PasswordHash, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if creds.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if creds.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, token string, data []byte, ttl time.Duration) error {
	var expiresAt sql.NullString
	if ttl > 0 {
		expiresAt = sql.NullString{String: formatTime(time.Now().Add(ttl)), Valid: true}
	}
	query := `INSERT INTO sessions (token, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`
	_, err := s.db.ExecContext(ctx, s.rebind(query), token, string(data), expiresAt)
	return err
}

func (s *Storage) GetSession(ctx context.Context, token string) ([]byte, error) {
	query := `SELECT data, expires_at FROM sessions WHERE token = ?`
	row := s.db.QueryRowContext(ctx, s.rebind(query), token)

	var (
		data      string
		expiresAt sql.NullString
	)
	err := row.Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		expiry, err := parseTime(expiresAt.String)
		if err != nil {
			return nil, err
		}
		if time.Now().After(expiry) {
			_ = s.DeleteSession(ctx, token)
			return nil, model.ErrSessionNotFound
		}
	}
	return []byte(data), nil
}

func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM sessions WHERE token = ?`), token)
	return err
}

// Party operations

func (s *Storage) SaveParty(ctx context.Context, party *model.Party) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO parties (id, admin_id, name, description, location, starts_at, capacity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			location = excluded.location,
			starts_at = excluded.starts_at,
			capacity = excluded.capacity,
			updated_at = excluded.updated_at`
	_, err = tx.ExecContext(ctx, s.rebind(query),
		string(party.ID), string(party.AdminID), party.Name, party.Description, party.Location,
		formatTime(party.StartsAt), party.Capacity, formatTime(party.CreatedAt), formatTime(party.UpdatedAt))
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM price_tiers WHERE party_id = ?`), string(party.ID)); err != nil {
		return err
	}

	insertTier := s.rebind(`INSERT INTO price_tiers (id, party_id, name, price_cents, position) VALUES (?, ?, ?, ?, ?)`)
	for i, tier := range party.PriceTiers {
		if _, err := tx.ExecContext(ctx, insertTier, tier.ID, string(party.ID), tier.Name, tier.PriceCents, i); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const partyColumns = `id, admin_id, name, description, location, starts_at, capacity, created_at, updated_at`

func (s *Storage) GetParty(ctx context.Context, id model.PartyID) (*model.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE id = ?`
	row := s.db.QueryRowContext(ctx, s.rebind(query), string(id))

	party, err := scanParty(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPartyNotFound
	}
	if err != nil {
		return nil, err
	}

	if party.PriceTiers, err = s.loadTiers(ctx, party.ID); err != nil {
		return nil, err
	}
	return party, nil
}

func (s *Storage) ListParties(ctx context.Context) ([]*model.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties ORDER BY starts_at, id`
	return s.queryParties(ctx, query)
}

func (s *Storage) ListPartiesByAdmin(ctx context.Context, adminID model.UserID) ([]*model.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE admin_id = ? ORDER BY starts_at, id`
	return s.queryParties(ctx, query, string(adminID))
}

func (s *Storage) queryParties(ctx context.Context, query string, args ...any) ([]*model.Party, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}

	parties := []*model.Party{}
	for rows.Next() {
		party, err := scanParty(rows.Scan)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		parties = append(parties, party)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// Tiers are loaded after the party cursor is closed; SQLite runs on one connection
	for _, party := range parties {
		if party.PriceTiers, err = s.loadTiers(ctx, party.ID); err != nil {
			return nil, err
		}
	}
	return parties, nil
}

func (s *Storage) loadTiers(ctx context.Context, partyID model.PartyID) ([]model.PriceTier, error) {
	query := `SELECT id, name, price_cents FROM price_tiers WHERE party_id = ? ORDER BY position`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), string(partyID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tiers := []model.PriceTier{}
	for rows.Next() {
		var tier model.PriceTier
		if err := rows.Scan(&tier.ID, &tier.Name, &tier.PriceCents); err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}

func scanParty(scan func(dest ...any) error) (*model.Party, error) {
	var (
		party                      model.Party
		startsAt, created, updated string
	)
	err := scan(&party.ID, &party.AdminID, &party.Name, &party.Description, &party.Location,
		&startsAt, &party.Capacity, &created, &updated)
	if err != nil {
		return nil, err
	}
	if party.StartsAt, err = parseTime(startsAt); err != nil {
		return nil, err
	}
	if party.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if party.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &party, nil
}

// Entry code operations

func (s *Storage) ListCodeValues(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code FROM entry_codes`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	values := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		values = append(values, code)
	}
	return values, rows.Err()
}

func (s *Storage) CodesExist(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(codes))
	args := make([]any, len(codes))
	for i, code := range codes {
		placeholders[i] = "?"
		args[i] = code
	}
	query := `SELECT code FROM entry_codes WHERE code IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var existing []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		existing = append(existing, code)
	}
	return existing, rows.Err()
}

func (s *Storage) InsertCodes(ctx context.Context, codes []*model.EntryCode) error {
	if len(codes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := s.rebind(`INSERT INTO entry_codes (id, party_id, code, price_name, already_used, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, c := range codes {
		_, err := tx.ExecContext(ctx, query,
			c.ID, string(c.PartyID), c.Code, c.PriceName, false, "", formatTime(c.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrDuplicateCode
			}
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateCode
		}
		return err
	}
	return nil
}

const codeColumns = `id, party_id, code, price_name, already_used, user_id, created_at, used_at`

func (s *Storage) GetCode(ctx context.Context, code string) (*model.EntryCode, error) {
	query := `SELECT ` + codeColumns + ` FROM entry_codes WHERE code = ?`
	row := s.db.QueryRowContext(ctx, s.rebind(query), code)

	ec, err := scanCode(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCodeNotFound
	}
	return ec, err
}

func (s *Storage) MarkCodeUsed(ctx context.Context, code string, userID model.UserID, usedAt time.Time) (*model.EntryCode, error) {
	query := `UPDATE entry_codes SET already_used = ?, user_id = ?, used_at = ?
		WHERE code = ? AND already_used = ?`
	res, err := s.db.ExecContext(ctx, s.rebind(query), true, string(userID), formatTime(usedAt), code, false)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either missing or lost the race to another redemption
		if _, err := s.GetCode(ctx, code); err != nil {
			return nil, err
		}
		return nil, model.ErrCodeAlreadyUsed
	}
	return s.GetCode(ctx, code)
}

func (s *Storage) ListCodesForParty(ctx context.Context, partyID model.PartyID) ([]*model.EntryCode, error) {
	query := `SELECT ` + codeColumns + ` FROM entry_codes WHERE party_id = ? ORDER BY created_at, code`
	return s.queryCodes(ctx, query, string(partyID))
}

func (s *Storage) ListCodesForUser(ctx context.Context, userID model.UserID) ([]*model.EntryCode, error) {
	query := `SELECT ` + codeColumns + ` FROM entry_codes WHERE user_id = ? AND already_used = ? ORDER BY created_at, code`
	return s.queryCodes(ctx, query, string(userID), true)
}

func (s *Storage) queryCodes(ctx context.Context, query string, args ...any) ([]*model.EntryCode, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	codes := []*model.EntryCode{}
	for rows.Next() {
		ec, err := scanCode(rows.Scan)
		if err != nil {
			return nil, err
		}
		codes = append(codes, ec)
	}
	return codes, rows.Err()
}

func scanCode(scan func(dest ...any) error) (*model.EntryCode, error) {
	var (
		ec      model.EntryCode
		created string
		usedAt  sql.NullString
	)
	err := scan(&ec.ID, &ec.PartyID, &ec.Code, &ec.PriceName, &ec.AlreadyUsed, &ec.UserID, &created, &usedAt)
	if err != nil {
		return nil, err
	}
	if ec.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if usedAt.Valid {
		t, err := parseTime(usedAt.String)
		if err != nil {
			return nil, err
		}
		ec.UsedAt = &t
	}
	return &ec, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *Storage) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}
