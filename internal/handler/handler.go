package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/smartbank/internal/middleware"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes bounds JSON and CSV request bodies.
const maxBodyBytes = 5 << 20

type Handler struct {
	svc *service.Service
	log *logrus.Logger
	now func() time.Time
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log, now: time.Now}
}

// Router builds the HTTP routes. Everything under /api except register and
// login requires a bearer token.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(h.log))
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	// Public routes
	api.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)

	// Protected routes
	authRouter := api.NewRoute().Subrouter()
	authRouter.Use(middleware.AuthMiddleware(h.svc.Auth, h.log))
	authRouter.HandleFunc("/verify", h.Verify).Methods(http.MethodGet)
	authRouter.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	authRouter.HandleFunc("/user/data", h.UserData).Methods(http.MethodGet)
	authRouter.HandleFunc("/user/settings", h.UpdateSettings).Methods(http.MethodPut)
	authRouter.HandleFunc("/summary", h.Summary).Methods(http.MethodGet)

	authRouter.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	authRouter.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	authRouter.HandleFunc("/transactions/{id:[0-9]+}", h.GetTransaction).Methods(http.MethodGet)
	authRouter.HandleFunc("/transactions/{id:[0-9]+}", h.DeleteTransaction).Methods(http.MethodDelete)

	authRouter.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	authRouter.HandleFunc("/categories", h.CreateCategory).Methods(http.MethodPost)
	authRouter.HandleFunc("/categories/{id:[0-9]+}", h.UpdateCategory).Methods(http.MethodPut)
	authRouter.HandleFunc("/categories/{id:[0-9]+}", h.DeleteCategory).Methods(http.MethodDelete)
	authRouter.HandleFunc("/categories/{id:[0-9]+}/recompute", h.RecomputeCategory).Methods(http.MethodPost)

	authRouter.HandleFunc("/subscriptions", h.ListSubscriptions).Methods(http.MethodGet)
	authRouter.HandleFunc("/subscriptions", h.CreateSubscription).Methods(http.MethodPost)
	authRouter.HandleFunc("/subscriptions/{id:[0-9]+}", h.UpdateSubscription).Methods(http.MethodPut)
	authRouter.HandleFunc("/subscriptions/{id:[0-9]+}", h.DeleteSubscription).Methods(http.MethodDelete)
	authRouter.HandleFunc("/subscriptions/{id:[0-9]+}/toggle", h.ToggleSubscription).Methods(http.MethodPost)

	authRouter.HandleFunc("/banks", h.ListBanks).Methods(http.MethodGet)
	authRouter.HandleFunc("/banks", h.CreateBank).Methods(http.MethodPost)
	authRouter.HandleFunc("/banks/{id:[0-9]+}", h.UpdateBank).Methods(http.MethodPut)
	authRouter.HandleFunc("/banks/{id:[0-9]+}", h.DeleteBank).Methods(http.MethodDelete)
	authRouter.HandleFunc("/banks/{id:[0-9]+}/withdraw", h.Withdraw).Methods(http.MethodPost)
	authRouter.HandleFunc("/banks/{id:[0-9]+}/transfer", h.Transfer).Methods(http.MethodPost)
	authRouter.HandleFunc("/banks/{id:[0-9]+}/history", h.BankHistory).Methods(http.MethodGet)
	authRouter.HandleFunc("/banks/{id:[0-9]+}/account-number", h.AccountNumber).Methods(http.MethodGet)
	authRouter.HandleFunc("/banks/{id:[0-9]+}/forecast", h.Forecast).Methods(http.MethodGet)

	authRouter.HandleFunc("/export/transactions.csv", h.ExportTransactionsCSV).Methods(http.MethodGet)
	authRouter.HandleFunc("/export/transactions.xml", h.ExportTransactionsXML).Methods(http.MethodGet)
	authRouter.HandleFunc("/export/categories.csv", h.ExportCategoriesCSV).Methods(http.MethodGet)
	authRouter.HandleFunc("/export/subscriptions.csv", h.ExportSubscriptionsCSV).Methods(http.MethodGet)
	authRouter.HandleFunc("/export/data.json", h.ExportJSON).Methods(http.MethodGet)
	authRouter.HandleFunc("/import/transactions.csv", h.ImportTransactionsCSV).Methods(http.MethodPost)
	return r
}

// Health reports that the process is serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrWeakPassword),
		errors.Is(err, models.ErrDuplicateEmail):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrAccountLocked):
		return http.StatusLocked
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	var verr *models.ValidationError
	switch {
	case status == http.StatusInternalServerError:
		h.log.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
		msg = "internal server error"
	case errors.As(err, &verr):
		msg = verr.Error()
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return models.Invalid("body", err.Error())
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, models.Invalid("id", "must be a number")
	}
	return id, nil
}

func userID(r *http.Request) int64 {
	return middleware.UserFromContext(r.Context()).ID
}
