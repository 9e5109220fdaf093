package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type StoreSuite struct {
	suite.Suite
	open  func(t *testing.T) Backend
	store *Store
	ctx   context.Context
	user  *models.User
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New(s.open(s.T()))
	s.user = &models.User{FirstName: "Juan", LastName: "Pérez", Email: "juan@example.com", PasswordHash: "hash"}
	s.user.ApplyDefaults()
	s.Require().NoError(s.store.CreateUser(s.ctx, s.user))
}

func (s *StoreSuite) TearDownTest() {
	s.store.Close()
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(*testing.T) Backend { return NewMemoryBackend() }})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(t *testing.T) Backend {
		b, err := OpenSQLite(filepath.Join(t.TempDir(), "smartbank.db"))
		require.NoError(t, err)
		return b
	}})
}

func (s *StoreSuite) TestUserRoundTrip() {
	u, err := s.store.FindUserByEmail(s.ctx, "JUAN@example.com")
	s.Require().NoError(err)
	s.Equal(s.user.ID, u.ID)
	s.Equal("hash", u.PasswordHash)

	locked := time.Now().Add(15 * time.Minute).UTC()
	u.FailedAttempts = 5
	u.LockedUntil = &locked
	s.Require().NoError(s.store.UpdateUser(s.ctx, u))

	got, err := s.store.FindUserByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(5, got.FailedAttempts)
	s.Require().NotNil(got.LockedUntil)
	s.True(locked.Equal(*got.LockedUntil))

	_, err = s.store.FindUserByID(s.ctx, 42)
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *StoreSuite) TestDuplicateEmail() {
	dup := &models.User{FirstName: "Otro", LastName: "Juan", Email: "Juan@Example.com"}
	s.ErrorIs(s.store.CreateUser(s.ctx, dup), models.ErrDuplicateEmail)
}

func (s *StoreSuite) TestIDsAreMonotonic() {
	var last int64
	for i := 0; i < 5; i++ {
		c := &models.Category{UserID: s.user.ID, Name: string(rune('A' + i))}
		s.Require().NoError(s.store.CreateCategory(s.ctx, c))
		s.Greater(c.ID, last)
		last = c.ID
	}
}

func (s *StoreSuite) TestCategoryNamesUniqueIgnoringCase() {
	s.Require().NoError(s.store.CreateCategory(s.ctx, &models.Category{UserID: s.user.ID, Name: "Ocio"}))
	err := s.store.CreateCategory(s.ctx, &models.Category{UserID: s.user.ID, Name: "ocio"})
	s.ErrorIs(err, models.ErrDuplicateName)

	salud := &models.Category{UserID: s.user.ID, Name: "Salud"}
	s.Require().NoError(s.store.CreateCategory(s.ctx, salud))
	name := "OCIO"
	_, err = s.store.UpdateCategory(s.ctx, s.user.ID, salud.ID, models.CategoryPatch{Name: &name})
	s.ErrorIs(err, models.ErrDuplicateName)
}

func (s *StoreSuite) TestAddCategorySpentClampsAtZero() {
	c := &models.Category{UserID: s.user.ID, Name: "Ocio", Budget: decimal.NewFromInt(200)}
	s.Require().NoError(s.store.CreateCategory(s.ctx, c))

	got, err := s.store.AddCategorySpent(s.ctx, s.user.ID, "ocio", decimal.NewFromInt(50))
	s.Require().NoError(err)
	s.True(got.Spent.Equal(decimal.NewFromInt(50)))

	got, err = s.store.AddCategorySpent(s.ctx, s.user.ID, "Ocio", decimal.NewFromInt(-80))
	s.Require().NoError(err)
	s.True(got.Spent.IsZero())

	_, err = s.store.AddCategorySpent(s.ctx, s.user.ID, "Viajes", decimal.NewFromInt(1))
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *StoreSuite) TestAdjustBankBalance() {
	b := &models.Bank{UserID: s.user.ID, Name: "Banco", Type: models.AccountChecking, Balance: decimal.NewFromInt(5000)}
	b.ApplyDefaults()
	s.Require().NoError(s.store.CreateBank(s.ctx, b))

	_, err := s.store.AdjustBankBalance(s.ctx, s.user.ID, b.ID, decimal.NewFromInt(-6000))
	s.ErrorIs(err, models.ErrInsufficientFunds)

	got, err := s.store.FindBank(s.ctx, s.user.ID, b.ID)
	s.Require().NoError(err)
	s.True(got.Balance.Equal(decimal.NewFromInt(5000)))

	got, err = s.store.AdjustBankBalance(s.ctx, s.user.ID, b.ID, decimal.NewFromInt(-5000))
	s.Require().NoError(err)
	s.True(got.Balance.IsZero())

	_, err = s.store.AdjustBankBalance(s.ctx, s.user.ID, 99, decimal.NewFromInt(1))
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *StoreSuite) TestTransactionsNewestFirst() {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i, offset := range []int{0, 2, 1, 2} {
		tx := &models.Transaction{
			UserID: s.user.ID, Type: models.TypeExpense, Amount: decimal.NewFromInt(int64(i + 1)),
			Category: "Ocio", Description: "t", Date: day.AddDate(0, 0, offset),
		}
		s.Require().NoError(s.store.CreateTransaction(s.ctx, tx))
	}

	txs, err := repository.Collect(s.store.Transactions(s.ctx, s.user.ID, models.TransactionFilter{}))
	s.Require().NoError(err)
	s.Require().Len(txs, 4)
	for i := 1; i < len(txs); i++ {
		s.LessOrEqual(models.NewerFirst(&txs[i-1], &txs[i]), 0)
	}
	// Same date: later insert first.
	s.True(txs[0].Amount.Equal(decimal.NewFromInt(4)))
	s.True(txs[1].Amount.Equal(decimal.NewFromInt(2)))

	limited, err := repository.Collect(s.store.Transactions(s.ctx, s.user.ID, models.TransactionFilter{Limit: 2}))
	s.Require().NoError(err)
	s.Len(limited, 2)
}

func (s *StoreSuite) TestRunInTxRollsBack() {
	boom := errors.New("boom")
	err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
		c := &models.Category{UserID: s.user.ID, Name: "Ocio"}
		if err := s.store.CreateCategory(ctx, c); err != nil {
			return err
		}
		// Visible inside the transaction.
		if _, err := s.store.FindCategory(ctx, s.user.ID, c.ID); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	cats, err := repository.Collect(s.store.Categories(s.ctx, s.user.ID))
	s.Require().NoError(err)
	s.Empty(cats)
}

func (s *StoreSuite) TestRenameCategoryReferences() {
	for _, name := range []string{"Ocio", "ocio", "Salud"} {
		tx := &models.Transaction{UserID: s.user.ID, Type: models.TypeExpense, Amount: decimal.NewFromInt(1),
			Category: name, Description: "x", Date: time.Now()}
		s.Require().NoError(s.store.CreateTransaction(s.ctx, tx))
	}
	n, err := s.store.RenameCategoryReferences(s.ctx, s.user.ID, "Ocio", "Diversión")
	s.Require().NoError(err)
	s.EqualValues(2, n)

	txs, err := repository.Collect(s.store.Transactions(s.ctx, s.user.ID, models.TransactionFilter{Category: "diversión"}))
	s.Require().NoError(err)
	s.Len(txs, 2)
}

func (s *StoreSuite) TestSessions() {
	now := time.Now().UTC()
	fresh := &models.Session{ID: "fresh", UserID: s.user.ID, CreatedAt: now, LastActivity: now, ExpiresAt: now.Add(time.Hour)}
	idle := &models.Session{ID: "idle", UserID: s.user.ID, CreatedAt: now, LastActivity: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)}
	s.Require().NoError(s.store.CreateSession(s.ctx, fresh))
	s.Require().NoError(s.store.CreateSession(s.ctx, idle))

	n, err := s.store.DeleteIdleSessions(s.ctx, now.Add(-30*time.Minute), now)
	s.Require().NoError(err)
	s.EqualValues(1, n)

	_, err = s.store.FindSession(s.ctx, s.user.ID, "idle")
	s.ErrorIs(err, models.ErrNotFound)

	later := now.Add(time.Minute)
	s.Require().NoError(s.store.TouchSession(s.ctx, s.user.ID, "fresh", later))
	got, err := s.store.FindSession(s.ctx, s.user.ID, "fresh")
	s.Require().NoError(err)
	s.True(later.Equal(got.LastActivity))

	s.Require().NoError(s.store.DeleteSession(s.ctx, s.user.ID, "fresh"))
	s.Require().NoError(s.store.DeleteSession(s.ctx, s.user.ID, "fresh"))
}

func (s *StoreSuite) TestSessionsAreScopedToOwner() {
	other := &models.User{FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.com", PasswordHash: "hash"}
	other.ApplyDefaults()
	s.Require().NoError(s.store.CreateUser(s.ctx, other))

	now := time.Now().UTC()
	sess := &models.Session{ID: "juan-1", UserID: s.user.ID, CreatedAt: now, LastActivity: now, ExpiresAt: now.Add(time.Hour)}
	s.Require().NoError(s.store.CreateSession(s.ctx, sess))

	_, err := s.store.FindSession(s.ctx, other.ID, "juan-1")
	s.ErrorIs(err, models.ErrNotFound)
	s.ErrorIs(s.store.TouchSession(s.ctx, other.ID, "juan-1", now), models.ErrNotFound)
	s.Require().NoError(s.store.DeleteSession(s.ctx, other.ID, "juan-1"))
	s.Require().NoError(s.store.DeleteSession(s.ctx, 999, "juan-1"))

	_, err = s.store.FindSession(s.ctx, s.user.ID, "juan-1")
	s.Require().NoError(err)
}

func (s *StoreSuite) TestActiveSubscriptionsDueBefore() {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mk := func(name string, due time.Time, active bool) {
		sub := &models.Subscription{UserID: s.user.ID, Name: name, Price: decimal.NewFromInt(10),
			BillingCycle: models.BillingMonthly, NextPayment: due, Active: active}
		s.Require().NoError(s.store.CreateSubscription(s.ctx, sub))
	}
	mk("Netflix", now.AddDate(0, 0, -3), true)
	mk("Gym", now.AddDate(0, 0, -1), false)
	mk("Spotify", now.AddDate(0, 0, 5), true)

	due, err := repository.Collect(s.store.ActiveSubscriptionsDueBefore(s.ctx, now))
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal("Netflix", due[0].Name)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	ctx := context.Background()

	b, err := OpenSQLite(path)
	require.NoError(t, err)
	s := New(b)
	u := &models.User{FirstName: "Ana", LastName: "Gil", Email: "ana@example.com"}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NoError(t, s.CreateCategory(ctx, &models.Category{UserID: u.ID, Name: "Salud", Budget: decimal.NewFromInt(150)}))
	require.NoError(t, s.Close())

	b, err = OpenSQLite(path)
	require.NoError(t, err)
	s = New(b)
	defer s.Close()
	cats, err := repository.Collect(s.Categories(ctx, u.ID))
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Salud", cats[0].Name)
	assert.True(t, cats[0].Budget.Equal(decimal.NewFromInt(150)))
}

// recordingBackend remembers every key read through it.
type recordingBackend struct {
	*MemoryBackend
	reads []string
}

func (b *recordingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.reads = append(b.reads, key)
	return b.MemoryBackend.Get(ctx, key)
}

func TestFindSessionReadsOnlyOwnerDocument(t *testing.T) {
	ctx := context.Background()
	backend := &recordingBackend{MemoryBackend: NewMemoryBackend()}
	store := New(backend)
	defer store.Close()

	var users []*models.User
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u := &models.User{FirstName: "U", LastName: "X", Email: email, PasswordHash: "hash"}
		u.ApplyDefaults()
		require.NoError(t, store.CreateUser(ctx, u))
		users = append(users, u)
	}
	owner := users[2]
	now := time.Now().UTC()
	require.NoError(t, store.CreateSession(ctx, &models.Session{
		ID: "s1", UserID: owner.ID, CreatedAt: now, LastActivity: now, ExpiresAt: now.Add(time.Hour),
	}))

	backend.reads = nil
	_, err := store.FindSession(ctx, owner.ID, "s1")
	require.NoError(t, err)
	assert.NotContains(t, backend.reads, userDataKey(users[0].ID))
	assert.NotContains(t, backend.reads, userDataKey(users[1].ID))
	assert.Contains(t, backend.reads, userDataKey(owner.ID))
}
