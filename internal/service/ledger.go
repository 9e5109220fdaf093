package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/smartbank/internal/events"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Ledger owns every write that moves money: transactions, category spend
// and bank balances.
type Ledger struct {
	repo      repository.Repository
	log       *logrus.Logger
	publisher events.Publisher
	now       func() time.Time
}

func NewLedger(repo repository.Repository, log *logrus.Logger, publisher events.Publisher, now func() time.Time) *Ledger {
	return &Ledger{repo: repo, log: log, publisher: publisher, now: now}
}

// RecordTransaction validates and stores tx for userID. An expense adds to
// the spent total of the category with the same name, if any; a transfer
// from a bank debits it. All effects commit together.
func (l *Ledger) RecordTransaction(ctx context.Context, userID int64, tx *models.Transaction) (*models.Transaction, error) {
	tx.UserID = userID
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	err := l.repo.RunInTx(ctx, func(ctx context.Context) error {
		if tx.BankID != nil && tx.Type == models.TypeTransfer {
			if _, err := l.debit(ctx, userID, *tx.BankID, tx.Amount); err != nil {
				return err
			}
		} else if tx.BankID != nil {
			if _, err := l.repo.FindBank(ctx, userID, *tx.BankID); err != nil {
				return fmt.Errorf("failed to find bank: %w", err)
			}
		}
		return l.record(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	l.log.Infof("Transaction %d recorded for user %d: %s %s %s", tx.ID, userID, tx.Type, tx.Amount, tx.Category)
	l.publish(ctx, tx)
	return tx, nil
}

// record stores tx and applies its category effect. Must run inside RunInTx.
func (l *Ledger) record(ctx context.Context, tx *models.Transaction) error {
	if err := l.repo.CreateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	if tx.Type != models.TypeExpense {
		return nil
	}
	_, err := l.repo.AddCategorySpent(ctx, tx.UserID, tx.Category, tx.Amount)
	if errors.Is(err, models.ErrNotFound) {
		l.log.Debugf("Expense %d has no matching category %q", tx.ID, tx.Category)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update category spent: %w", err)
	}
	return nil
}

// debit takes amount from a bank, refusing to overdraw it.
func (l *Ledger) debit(ctx context.Context, userID, bankID int64, amount decimal.Decimal) (*models.Bank, error) {
	bank, err := l.repo.FindBank(ctx, userID, bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to find bank: %w", err)
	}
	if amount.GreaterThan(bank.Balance) {
		return nil, fmt.Errorf("bank %q holds %s: %w", bank.Name, bank.Balance.StringFixed(2), models.ErrInsufficientFunds)
	}
	return l.repo.AdjustBankBalance(ctx, userID, bankID, amount.Neg())
}

func (l *Ledger) publish(ctx context.Context, tx *models.Transaction) {
	if err := l.publisher.Publish(ctx, events.NewTransactionRecorded(tx, l.now())); err != nil {
		l.log.Warnf("Failed to publish event for transaction %d: %v", tx.ID, err)
	}
}

// DeleteTransaction removes a transaction. A deleted expense is taken back
// out of its category's spent total; bank balances are left as they are.
func (l *Ledger) DeleteTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	var deleted *models.Transaction
	err := l.repo.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = l.repo.DeleteTransaction(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		if deleted.Type != models.TypeExpense {
			return nil
		}
		_, err = l.repo.AddCategorySpent(ctx, userID, deleted.Category, deleted.Amount.Neg())
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("failed to update category spent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Infof("Transaction %d deleted for user %d", id, userID)
	return deleted, nil
}

// RecomputeCategorySpent rebuilds spent from the expenses tagged with the
// category's name.
func (l *Ledger) RecomputeCategorySpent(ctx context.Context, userID, categoryID int64) (*models.Category, error) {
	var out *models.Category
	err := l.repo.RunInTx(ctx, func(ctx context.Context) error {
		category, err := l.repo.FindCategory(ctx, userID, categoryID)
		if err != nil {
			return fmt.Errorf("failed to find category: %w", err)
		}
		txs, err := repository.Collect(l.repo.Transactions(ctx, userID, models.TransactionFilter{
			Type:     models.TypeExpense,
			Category: category.Name,
		}))
		if err != nil {
			return fmt.Errorf("failed to list transactions: %w", err)
		}
		total := decimal.Zero
		for _, tx := range txs {
			total = total.Add(tx.Amount)
		}
		out, err = l.repo.SetCategorySpent(ctx, userID, categoryID, total)
		if err != nil {
			return fmt.Errorf("failed to set category spent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Infof("Category %d spent recomputed for user %d: %s", categoryID, userID, out.Spent)
	return out, nil
}

// UpdateCategory edits a category. A rename carries over to the
// transactions tagged with the old name.
func (l *Ledger) UpdateCategory(ctx context.Context, userID, id int64, patch models.CategoryPatch) (*models.Category, error) {
	if patch.Budget != nil && patch.Budget.IsNegative() {
		return nil, models.Invalid("budget", "must not be negative")
	}
	var out *models.Category
	err := l.repo.RunInTx(ctx, func(ctx context.Context) error {
		before, err := l.repo.FindCategory(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("failed to find category: %w", err)
		}
		out, err = l.repo.UpdateCategory(ctx, userID, id, patch)
		if err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		if models.SameName(before.Name, out.Name) {
			return nil
		}
		n, err := l.repo.RenameCategoryReferences(ctx, userID, before.Name, out.Name)
		if err != nil {
			return fmt.Errorf("failed to rename category references: %w", err)
		}
		l.log.Infof("Category %q renamed to %q for user %d (%d transactions)", before.Name, out.Name, userID, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCategory removes a category. Its transactions keep the name and are
// shown with the fallback icon and color.
func (l *Ledger) DeleteCategory(ctx context.Context, userID, id int64) (*models.Category, error) {
	category, err := l.repo.DeleteCategory(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}
	l.log.Infof("Category %q deleted for user %d", category.Name, userID)
	return category, nil
}

// WithdrawFromBank moves amount out of a bank and records it as an expense.
func (l *Ledger) WithdrawFromBank(ctx context.Context, userID, bankID int64, amount decimal.Decimal) (*models.Bank, *models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, nil, models.Invalid("amount", "must be greater than zero")
	}
	if err := models.CheckMoney("amount", amount); err != nil {
		return nil, nil, err
	}

	var bank *models.Bank
	var tx *models.Transaction
	err := l.repo.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		bank, err = l.debit(ctx, userID, bankID, amount)
		if err != nil {
			return err
		}
		tx = l.transferExpense(userID, bank, amount, "Transferencia desde "+bank.Name)
		return l.record(ctx, tx)
	})
	if err != nil {
		return nil, nil, err
	}

	l.log.Infof("Withdrew %s from bank %d for user %d", amount, bankID, userID)
	l.publish(ctx, tx)
	return bank, tx, nil
}

// TransferBetweenBanks moves amount between two of the user's banks in the
// same currency. The debit is recorded as an expense on the source bank.
func (l *Ledger) TransferBetweenBanks(ctx context.Context, userID, fromID, toID int64, amount decimal.Decimal) (*models.Bank, *models.Bank, *models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, nil, nil, models.Invalid("amount", "must be greater than zero")
	}
	if err := models.CheckMoney("amount", amount); err != nil {
		return nil, nil, nil, err
	}
	if fromID == toID {
		return nil, nil, nil, models.Invalid("toBankId", "must differ from the source bank")
	}

	var from, to *models.Bank
	var tx *models.Transaction
	err := l.repo.RunInTx(ctx, func(ctx context.Context) error {
		dest, err := l.repo.FindBank(ctx, userID, toID)
		if err != nil {
			return fmt.Errorf("failed to find destination bank: %w", err)
		}
		src, err := l.repo.FindBank(ctx, userID, fromID)
		if err != nil {
			return fmt.Errorf("failed to find bank: %w", err)
		}
		if src.Currency != dest.Currency {
			return models.Invalid("currency", fmt.Sprintf("cannot transfer %s to a %s account", src.Currency, dest.Currency))
		}
		if from, err = l.debit(ctx, userID, fromID, amount); err != nil {
			return err
		}
		if to, err = l.repo.AdjustBankBalance(ctx, userID, toID, amount); err != nil {
			return fmt.Errorf("failed to credit bank: %w", err)
		}
		tx = l.transferExpense(userID, from, amount, fmt.Sprintf("Transferencia desde %s a %s", from.Name, to.Name))
		return l.record(ctx, tx)
	})
	if err != nil {
		return nil, nil, nil, err
	}

	l.log.Infof("Transferred %s from bank %d to bank %d for user %d", amount, fromID, toID, userID)
	l.publish(ctx, tx)
	return from, to, tx, nil
}

func (l *Ledger) transferExpense(userID int64, bank *models.Bank, amount decimal.Decimal, description string) *models.Transaction {
	bankID := bank.ID
	return &models.Transaction{
		UserID:      userID,
		Type:        models.TypeExpense,
		Amount:      amount,
		Category:    models.TransferCategory,
		Description: description,
		Date:        l.now(),
		Location:    "Transferencia Interna",
		Method:      "Transferencia",
		BankID:      &bankID,
	}
}
