// Package repository defines the account store shared by every persistence
// backend. Records are partitioned by owning user; cross-entity cascades are
// left to the services.
package repository

import (
	"context"
	"iter"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/shopspring/decimal"
)

// Repository provides storage operations for every entity.
//
// List operations return lazy sequences: ranging over one runs the query,
// ranging again re-runs it against current state. Use Collect before issuing
// further store calls from inside a loop.
type Repository interface {
	// RunInTx runs fn with a context bound to a single store transaction.
	// Store calls made with that context participate in it; nested calls
	// join the outer transaction. fn returning an error rolls back.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// LockUserByEmail reads a user for update; the lock lasts until the
	// RunInTx call bound to ctx returns.
	LockUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	CreateSession(ctx context.Context, session *models.Session) error
	// Sessions are looked up within their owner's records; userID comes
	// from the token subject.
	FindSession(ctx context.Context, userID int64, id string) (*models.Session, error)
	TouchSession(ctx context.Context, userID int64, id string, at time.Time) error
	DeleteSession(ctx context.Context, userID int64, id string) error
	DeleteIdleSessions(ctx context.Context, idleBefore, now time.Time) (int64, error)

	CreateBank(ctx context.Context, bank *models.Bank) error
	FindBank(ctx context.Context, userID, id int64) (*models.Bank, error)
	Banks(ctx context.Context, userID int64) iter.Seq2[models.Bank, error]
	UpdateBank(ctx context.Context, userID, id int64, patch models.BankPatch) (*models.Bank, error)
	DeleteBank(ctx context.Context, userID, id int64) (*models.Bank, error)
	// AdjustBankBalance adds delta to the balance, failing with
	// models.ErrInsufficientFunds if the result would be negative.
	AdjustBankBalance(ctx context.Context, userID, id int64, delta decimal.Decimal) (*models.Bank, error)

	CreateCategory(ctx context.Context, category *models.Category) error
	FindCategory(ctx context.Context, userID, id int64) (*models.Category, error)
	FindCategoryByName(ctx context.Context, userID int64, name string) (*models.Category, error)
	Categories(ctx context.Context, userID int64) iter.Seq2[models.Category, error]
	UpdateCategory(ctx context.Context, userID, id int64, patch models.CategoryPatch) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, id int64) (*models.Category, error)
	// AddCategorySpent adds delta to the spent total of the category whose
	// name matches case-insensitively, clamping at zero. models.ErrNotFound
	// when no category matches.
	AddCategorySpent(ctx context.Context, userID int64, name string, delta decimal.Decimal) (*models.Category, error)
	SetCategorySpent(ctx context.Context, userID, id int64, spent decimal.Decimal) (*models.Category, error)

	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	FindSubscription(ctx context.Context, userID, id int64) (*models.Subscription, error)
	Subscriptions(ctx context.Context, userID int64) iter.Seq2[models.Subscription, error]
	UpdateSubscription(ctx context.Context, userID, id int64, patch models.SubscriptionPatch) (*models.Subscription, error)
	DeleteSubscription(ctx context.Context, userID, id int64) (*models.Subscription, error)
	// ActiveSubscriptionsDueBefore lists active subscriptions of every user
	// whose next payment is before t.
	ActiveSubscriptionsDueBefore(ctx context.Context, t time.Time) iter.Seq2[models.Subscription, error]

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error)
	// Transactions lists newest first (date, then id, descending).
	Transactions(ctx context.Context, userID int64, filter models.TransactionFilter) iter.Seq2[models.Transaction, error]
	DeleteTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error)
	RenameCategoryReferences(ctx context.Context, userID int64, oldName, newName string) (int64, error)

	Close() error
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := []T{}
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Error yields a single error; used by backends when a query cannot start.
func Error[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}
