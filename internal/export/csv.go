// Package export renders a user's records as CSV, XML and JSON documents and
// parses transaction files back.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/shopspring/decimal"
)

// DateLayout is the date format of every exported file.
const DateLayout = "2006-01-02"

var transactionHeader = []string{"date", "description", "category", "type", "amount", "location", "method", "notes"}

// WriteTransactionsCSV writes one row per transaction under a header row.
func WriteTransactionsCSV(w io.Writer, txs []models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return err
	}
	for _, t := range txs {
		err := cw.Write([]string{
			t.Date.Format(DateLayout),
			t.Description,
			t.Category,
			string(t.Type),
			t.Amount.String(),
			t.Location,
			t.Method,
			t.Notes,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTransactionsCSV parses a file written by WriteTransactionsCSV. Columns
// are matched by header name; location, method and notes may be absent.
func ReadTransactionsCSV(r io.Reader) ([]models.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, models.Invalid("csv", "file is empty")
	}
	if err != nil {
		return nil, readError(1, err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range transactionHeader[:5] {
		if _, ok := cols[required]; !ok {
			return nil, models.Invalid("csv", "missing column "+required)
		}
	}

	var txs []models.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(line, err)
		}
		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		date, err := parseDate(field("date"))
		if err != nil {
			return nil, models.Invalid("line "+strconv.Itoa(line), "bad date "+strconv.Quote(field("date")))
		}
		amount, err := decimal.NewFromString(field("amount"))
		if err != nil {
			return nil, models.Invalid("line "+strconv.Itoa(line), "bad amount "+strconv.Quote(field("amount")))
		}
		txs = append(txs, models.Transaction{
			Date:        date,
			Description: field("description"),
			Category:    field("category"),
			Type:        models.TransactionType(strings.ToLower(field("type"))),
			Amount:      amount,
			Location:    field("location"),
			Method:      field("method"),
			Notes:       field("notes"),
		})
	}
	return txs, nil
}

// readError reports malformed CSV as a validation error. Other read
// failures, such as an oversized body, are passed through wrapped.
func readError(line int, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return models.Invalid("csv", perr.Error())
	}
	return fmt.Errorf("failed to read CSV line %d: %w", line, err)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// WriteCategoriesCSV writes the budget categories.
func WriteCategoriesCSV(w io.Writer, categories []models.Category) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"name", "budget", "spent", "color", "icon"})
	for _, c := range categories {
		cw.Write([]string{c.Name, c.Budget.String(), c.Spent.String(), c.Color, c.Icon})
	}
	cw.Flush()
	return cw.Error()
}

// WriteSubscriptionsCSV writes the subscriptions.
func WriteSubscriptionsCSV(w io.Writer, subs []models.Subscription) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"name", "price", "billingCycle", "nextPayment", "active"})
	for _, s := range subs {
		cw.Write([]string{
			s.Name,
			s.Price.String(),
			string(s.BillingCycle),
			s.NextPayment.Format(DateLayout),
			strconv.FormatBool(s.Active),
		})
	}
	cw.Flush()
	return cw.Error()
}
