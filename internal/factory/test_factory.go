package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rumbify/rumbify/internal/dependencies/mocks"
	"github.com/rumbify/rumbify/internal/dependencies/random"
	"github.com/rumbify/rumbify/internal/services/auth"
	"github.com/rumbify/rumbify/internal/services/session"
	"github.com/rumbify/rumbify/internal/storage/memory"
	"github.com/rumbify/rumbify/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Queued MockRandom strings are drawn first; after that codes are random.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockRandom.Fallback = random.New()

	app := newWithDependencies(store, mockClock, mockRandom,
		auth.Config{BcryptCost: bcrypt.MinCost}, session.DefaultConfig(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
