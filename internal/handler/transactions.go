package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/shopspring/decimal"
)

// transactionRequest accepts dates as YYYY-MM-DD or RFC 3339. A missing
// date means now.
type transactionRequest struct {
	Type        models.TransactionType `json:"type"`
	Amount      decimal.Decimal        `json:"amount"`
	Category    string                 `json:"category"`
	Description string                 `json:"description"`
	Date        string                 `json:"date"`
	Location    string                 `json:"location"`
	Method      string                 `json:"method"`
	Notes       string                 `json:"notes"`
	BankID      *int64                 `json:"bankId"`
}

func (req transactionRequest) transaction(now time.Time) (*models.Transaction, error) {
	date := now
	if req.Date != "" {
		var err error
		if date, err = parseDate(req.Date); err != nil {
			return nil, models.Invalid("date", "must be YYYY-MM-DD or RFC 3339")
		}
	}
	return &models.Transaction{
		Type:        req.Type,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		Method:      req.Method,
		Notes:       req.Notes,
		BankID:      req.BankID,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// parseFilter reads the listing filter from the query string.
func parseFilter(q url.Values) (models.TransactionFilter, error) {
	f := models.TransactionFilter{
		Type:     models.TransactionType(q.Get("type")),
		Category: q.Get("category"),
		Search:   strings.TrimSpace(q.Get("search")),
	}
	if f.Type != "" && !f.Type.Valid() {
		return f, models.Invalid("type", "must be income, expense or transfer")
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, models.Invalid("limit", "must be a non-negative number")
		}
		f.Limit = n
	}
	if v := q.Get("bankId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, models.Invalid("bankId", "must be a number")
		}
		f.BankID = &id
	}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		if v := q.Get(p.key); v != "" {
			t, err := parseDate(v)
			if err != nil {
				return f, models.Invalid(p.key, "must be YYYY-MM-DD or RFC 3339")
			}
			*p.dst = t
		}
	}
	return f, nil
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txs, err := repository.Collect(h.svc.Catalog.Transactions(r.Context(), userID(r), filter))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err := req.transaction(h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err = h.svc.Ledger.RecordTransaction(r.Context(), userID(r), tx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err := h.svc.Catalog.Transaction(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err := h.svc.Ledger.DeleteTransaction(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
