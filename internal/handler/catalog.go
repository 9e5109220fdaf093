package handler

import (
	"net/http"
	"strconv"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/service"
	"github.com/shopspring/decimal"
)

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Catalog.Categories(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var category models.Category
	if err := decode(w, r, &category); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.svc.Catalog.CreateCategory(r.Context(), userID(r), &category)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var patch models.CategoryPatch
	if err := decode(w, r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	category, err := h.svc.Ledger.UpdateCategory(r.Context(), userID(r), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	category, err := h.svc.Ledger.DeleteCategory(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) RecomputeCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	category, err := h.svc.Ledger.RecomputeCategorySpent(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.Catalog.Subscriptions(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var in service.SubscriptionInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.Catalog.CreateSubscription(r.Context(), userID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var patch models.SubscriptionPatch
	if err := decode(w, r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.Catalog.UpdateSubscription(r.Context(), userID(r), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.Catalog.DeleteSubscription(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.Catalog.ToggleSubscription(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.svc.Catalog.Banks(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, banks)
}

func (h *Handler) CreateBank(w http.ResponseWriter, r *http.Request) {
	var in service.BankInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	bank, err := h.svc.Catalog.CreateBank(r.Context(), userID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bank)
}

func (h *Handler) UpdateBank(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var patch models.BankPatch
	if err := decode(w, r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	bank, err := h.svc.Catalog.UpdateBank(r.Context(), userID(r), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *Handler) DeleteBank(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	bank, err := h.svc.Catalog.DeleteBank(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

// Withdraw moves money out of a bank, recording it as an expense.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	bank, tx, err := h.svc.Ledger.WithdrawFromBank(r.Context(), userID(r), id, in.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bank": bank, "transaction": tx})
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in struct {
		ToBankID int64           `json:"toBankId"`
		Amount   decimal.Decimal `json:"amount"`
	}
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	from, to, tx, err := h.svc.Ledger.TransferBetweenBanks(r.Context(), userID(r), id, in.ToBankID, in.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "transaction": tx})
}

func (h *Handler) BankHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txs, err := h.svc.Catalog.BankHistory(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// AccountNumber returns the full, decrypted account number of a bank.
func (h *Handler) AccountNumber(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	number, err := h.svc.Catalog.RevealAccountNumber(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accountNumber": number})
}

// Forecast projects a bank balance; months defaults to 12.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	months := 12
	if v := r.URL.Query().Get("months"); v != "" {
		if months, err = strconv.Atoi(v); err != nil {
			h.writeError(w, r, models.Invalid("months", "must be a number"))
			return
		}
	}
	forecast, err := h.svc.Forecast.Forecast(r.Context(), userID(r), id, months)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}
