package postgres

import (
	"context"
	"errors"
	"iter"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/shopspring/decimal"
)

const bankColumns = `id, user_id, name, type, balance, account_number, account_number_enc, currency,
	color, icon, is_active, created_at, updated_at`

func scanBank(s scanner) (models.Bank, error) {
	var b models.Bank
	err := s.Scan(&b.ID, &b.UserID, &b.Name, &b.Type, &b.Balance, &b.AccountNumber, &b.AccountNumberEnc,
		&b.Currency, &b.Color, &b.Icon, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateBank creates a new bank account in the database
func (r *Repository) CreateBank(ctx context.Context, bank *models.Bank) error {
	query := `
		INSERT INTO banks (user_id, name, type, balance, account_number, account_number_enc, currency,
			color, icon, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, bank.UserID, bank.Name, bank.Type, bank.Balance,
		bank.AccountNumber, bank.AccountNumberEnc, bank.Currency, bank.Color, bank.Icon, bank.IsActive).
		Scan(&bank.ID, &bank.CreatedAt, &bank.UpdatedAt)
	if err != nil {
		return mapError("create bank", err)
	}
	return nil
}

// FindBank retrieves one of the user's banks
func (r *Repository) FindBank(ctx context.Context, userID, id int64) (*models.Bank, error) {
	b, err := scanBank(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+bankColumns+` FROM banks WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		return nil, mapError("find bank", err)
	}
	return &b, nil
}

// Banks lists the user's banks in creation order.
func (r *Repository) Banks(ctx context.Context, userID int64) iter.Seq2[models.Bank, error] {
	return list(ctx, r.conn(ctx), "list banks", scanBank,
		`SELECT `+bankColumns+` FROM banks WHERE user_id = $1 ORDER BY id`, userID)
}

// UpdateBank applies patch to the locked row and stores the result.
func (r *Repository) UpdateBank(ctx context.Context, userID, id int64, patch models.BankPatch) (*models.Bank, error) {
	var out models.Bank
	err := r.RunInTx(ctx, func(ctx context.Context) error {
		b, err := scanBank(r.conn(ctx).QueryRowContext(ctx,
			`SELECT `+bankColumns+` FROM banks WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, id))
		if err != nil {
			return mapError("update bank", err)
		}
		patch.Apply(&b)
		if err := b.Validate(); err != nil {
			return err
		}
		query := `
			UPDATE banks SET name = $3, type = $4, balance = $5, currency = $6, color = $7, icon = $8,
				is_active = $9, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $1 AND id = $2
			RETURNING updated_at`
		err = r.conn(ctx).QueryRowContext(ctx, query, userID, id, b.Name, b.Type, b.Balance, b.Currency,
			b.Color, b.Icon, b.IsActive).Scan(&b.UpdatedAt)
		if err != nil {
			return mapError("update bank", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBank removes a bank and returns the removed record.
func (r *Repository) DeleteBank(ctx context.Context, userID, id int64) (*models.Bank, error) {
	b, err := scanBank(r.conn(ctx).QueryRowContext(ctx,
		`DELETE FROM banks WHERE user_id = $1 AND id = $2 RETURNING `+bankColumns, userID, id))
	if err != nil {
		return nil, mapError("delete bank", err)
	}
	return &b, nil
}

// AdjustBankBalance adds delta to the balance. A debit that would leave the
// balance negative is refused without touching the row.
func (r *Repository) AdjustBankBalance(ctx context.Context, userID, id int64, delta decimal.Decimal) (*models.Bank, error) {
	query := `
		UPDATE banks SET balance = balance + $3::numeric, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND id = $2 AND ($3::numeric >= 0 OR balance + $3::numeric >= 0)
		RETURNING ` + bankColumns
	b, err := scanBank(r.conn(ctx).QueryRowContext(ctx, query, userID, id, delta))
	if err == nil {
		return &b, nil
	}
	err = mapError("adjust bank balance", err)
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if _, findErr := r.FindBank(ctx, userID, id); findErr != nil {
		return nil, findErr
	}
	return nil, models.ErrInsufficientFunds
}
