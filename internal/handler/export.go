package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/Dan9191/smartbank/internal/export"
	"github.com/Dan9191/smartbank/internal/middleware"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
)

// attachment writes a rendered file. Rendering goes to a buffer first so a
// failure can still produce a JSON error.
func (h *Handler) attachment(w http.ResponseWriter, r *http.Request, contentType, name string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *Handler) allTransactions(r *http.Request) ([]models.Transaction, error) {
	return repository.Collect(h.svc.Catalog.Transactions(r.Context(), userID(r), models.TransactionFilter{}))
}

func (h *Handler) ExportTransactionsCSV(w http.ResponseWriter, r *http.Request) {
	h.attachment(w, r, "text/csv; charset=utf-8", "transactions.csv", func(buf *bytes.Buffer) error {
		txs, err := h.allTransactions(r)
		if err != nil {
			return err
		}
		return export.WriteTransactionsCSV(buf, txs)
	})
}

func (h *Handler) ExportTransactionsXML(w http.ResponseWriter, r *http.Request) {
	h.attachment(w, r, "application/xml; charset=utf-8", "transactions.xml", func(buf *bytes.Buffer) error {
		txs, err := h.allTransactions(r)
		if err != nil {
			return err
		}
		return export.WriteStatementXML(buf, middleware.UserFromContext(r.Context()), txs, h.now())
	})
}

func (h *Handler) ExportCategoriesCSV(w http.ResponseWriter, r *http.Request) {
	h.attachment(w, r, "text/csv; charset=utf-8", "categories.csv", func(buf *bytes.Buffer) error {
		categories, err := h.svc.Catalog.Categories(r.Context(), userID(r))
		if err != nil {
			return err
		}
		return export.WriteCategoriesCSV(buf, categories)
	})
}

func (h *Handler) ExportSubscriptionsCSV(w http.ResponseWriter, r *http.Request) {
	h.attachment(w, r, "text/csv; charset=utf-8", "subscriptions.csv", func(buf *bytes.Buffer) error {
		subs, err := h.svc.Catalog.Subscriptions(r.Context(), userID(r))
		if err != nil {
			return err
		}
		return export.WriteSubscriptionsCSV(buf, subs)
	})
}

func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	h.attachment(w, r, "application/json", "smartbank-data.json", func(buf *bytes.Buffer) error {
		data, err := h.svc.Dashboard.Export(r.Context(), userID(r))
		if err != nil {
			return err
		}
		return export.WriteDataJSON(buf, middleware.UserFromContext(r.Context()), data, h.now())
	})
}

// ImportTransactionsCSV records every row of an uploaded CSV file. Rows are
// recorded one by one; the first failing row stops the import.
func (h *Handler) ImportTransactionsCSV(w http.ResponseWriter, r *http.Request) {
	txs, err := export.ReadTransactionsCSV(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	imported := 0
	for i := range txs {
		if _, err := h.svc.Ledger.RecordTransaction(r.Context(), userID(r), &txs[i]); err != nil {
			h.log.Warnf("Import stopped at row %d for user %d: %v", i+1, userID(r), err)
			writeJSON(w, statusFor(err), map[string]any{
				"error":    fmt.Sprintf("row %d: %v", i+1, err),
				"imported": imported,
			})
			return
		}
		imported++
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": imported})
}
