/*
handlers.go - HTTP API handlers for the benefits registry

PURPOSE:
  Exposes the applicant registry and the payout engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  the registry and payout packages.

ENDPOINTS:
  Auth:
    POST   /api/auth/login                     Exchange email/password for a token
    GET    /api/me                             Current actor

  Applicants:
    GET    /api/applicants?status=&q=          List (filter by status, search)
    POST   /api/applicants                     Register (starts pending)
    GET    /api/applicants/{id}                Details
    PUT    /api/applicants/{id}                Edit details
    DELETE /api/applicants/{id}                Delete (admin)
    POST   /api/applicants/{id}/status         Review (admin)
    GET    /api/stats                          Counts per status

  Payments:
    POST   /api/payments/calculate             Distribute an amount (admin)
    POST   /api/payments/export                Distribution as CSV (admin)
    POST   /api/payments/commit                Save a distribution for a date (admin)
    GET    /api/payments/history?date=&q=      History grouped by date
    GET    /api/payments/history/{householdID} One household's history

  Subadmins (admin):
    GET/POST /api/subadmins, PUT/DELETE /api/subadmins/{id},
    PUT /api/subadmins/{id}/password

REQUEST FLOW:
  1. Authenticate puts the Actor in the request context
  2. Parse and decode the request
  3. Call the domain service with the Actor
  4. Serialize response, or map the error to a status

ERROR HANDLING:
  - 400: Validation errors, invalid amount/date/status
  - 401: Missing/invalid token, bad credentials
  - 403: Role not allowed
  - 404: Resource not found
  - 409: Duplicate email
  - 500: Internal errors (logged)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/insafmmkurram-create/web/export"
	"github.com/insafmmkurram-create/web/payout"
	"github.com/insafmmkurram-create/web/registry"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Applicants *registry.Service
	Accounts   *registry.Accounts
	Engine     *payout.Engine
	Recorder   *payout.Recorder
	History    payout.HistoryStore
	Tokens     *TokenIssuer
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *Handler) log() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.Logger
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func actor(r *http.Request) registry.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	a, err := h.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	token, expires, err := h.Tokens.Issue(a)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires, User: toActorDTO(a)})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toActorDTO(actor(r)))
}

// =============================================================================
// APPLICANT HANDLERS
// =============================================================================

func (h *Handler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	filter := registry.ApplicantFilter{
		Status: registry.Status(r.URL.Query().Get("status")),
		Query:  r.URL.Query().Get("q"),
	}
	applicants, err := h.Applicants.List(r.Context(), actor(r), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if applicants == nil {
		applicants = []registry.Applicant{}
	}
	writeJSON(w, http.StatusOK, applicants)
}

func (h *Handler) CreateApplicant(w http.ResponseWriter, r *http.Request) {
	var req registry.Applicant
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	created, err := h.Applicants.Create(r.Context(), actor(r), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetApplicant(w http.ResponseWriter, r *http.Request) {
	a, err := h.Applicants.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) UpdateApplicant(w http.ResponseWriter, r *http.Request) {
	var req registry.Applicant
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	updated, err := h.Applicants.Update(r.Context(), actor(r), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteApplicant(w http.ResponseWriter, r *http.Request) {
	if err := h.Applicants.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	a, err := h.Applicants.ChangeStatus(r.Context(), actor(r), chi.URLParam(r, "id"), registry.Status(req.Status))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Applicants.Stats(r.Context(), actor(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// allocate runs the engine over the current accepted households.
func (h *Handler) allocate(r *http.Request, amount AmountInput) (decimal.Decimal, *payout.Allocation, error) {
	total, err := amount.Parse()
	if err != nil {
		return decimal.Zero, nil, err
	}
	households, err := h.Applicants.AcceptedHouseholds(r.Context())
	if err != nil {
		return decimal.Zero, nil, err
	}
	alloc, err := h.Engine.Allocate(total, households)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return total, alloc, nil
}

func householdIDs(ids []string) []payout.HouseholdID {
	out := make([]payout.HouseholdID, len(ids))
	for i, id := range ids {
		out[i] = payout.HouseholdID(id)
	}
	return out
}

func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	total, alloc, err := h.allocate(r, req.Amount)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(total, alloc))
}

// Export streams the (optionally selected) distribution as CSV.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	_, alloc, err := h.allocate(r, req.Amount)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	name := export.FileName(payout.DateOf(h.now()))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, alloc.Select(householdIDs(req.HouseholdIDs))); err != nil {
		h.log().Error("export failed", "error", err)
	}
}

// Commit recomputes the distribution server-side and saves it under the
// given date. Client-computed totals are never trusted.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	date, err := payout.ParseDate(req.Date)
	if err != nil {
		h.writeDomainError(w, r, fmt.Errorf("%w: %q is not YYYY-MM-DD", payout.ErrInvalidDate, req.Date))
		return
	}
	_, alloc, err := h.allocate(r, req.Amount)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	results := alloc.Select(householdIDs(req.HouseholdIDs))
	if err := h.Recorder.Commit(r.Context(), date, results); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	total := decimal.Zero
	for _, res := range results {
		total = total.Add(res.TotalAmount)
	}
	h.log().Info("payments committed",
		"date", date.String(), "households", len(results), "total", total.StringFixed(2), "by", actor(r).Email)
	writeJSON(w, http.StatusOK, CommitResponse{Date: date.String(), Households: len(results), Total: total.InexactFloat64()})
}

// PaymentHistory returns every record grouped by date, newest first.
// ?date= keeps one date and ?q= searches name, NIC, account, bank and status.
func (h *Handler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.History.AllPayments(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if ds := r.URL.Query().Get("date"); ds != "" {
		date, err := payout.ParseDate(ds)
		if err != nil {
			h.writeDomainError(w, r, fmt.Errorf("%w: %q is not YYYY-MM-DD", payout.ErrInvalidDate, ds))
			return
		}
		var onDate []payout.PaymentRecord
		for _, rec := range records {
			if rec.Date.Equal(date) {
				onDate = append(onDate, rec)
			}
		}
		records = onDate
	}
	records = payout.FilterRecords(records, r.URL.Query().Get("q"))

	writeJSON(w, http.StatusOK, toDateGroupDTOs(payout.GroupByDate(records)))
}

func (h *Handler) HouseholdHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.History.HouseholdPayments(r.Context(), payout.HouseholdID(chi.URLParam(r, "householdID")))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentRecordDTOs(records))
}

// =============================================================================
// SUBADMIN HANDLERS
// =============================================================================

func (h *Handler) ListSubadmins(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Accounts.ListSubadmins(r.Context(), actor(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) CreateSubadmin(w http.ResponseWriter, r *http.Request) {
	var req SubadminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	acc, err := h.Accounts.CreateSubadmin(r.Context(), actor(r), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

func (h *Handler) UpdateSubadmin(w http.ResponseWriter, r *http.Request) {
	var req SubadminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	acc, err := h.Accounts.UpdateSubadminEmail(r.Context(), actor(r), chi.URLParam(r, "id"), req.Email)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) UpdateSubadminPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if err := h.Accounts.UpdateSubadminPassword(r.Context(), actor(r), chi.URLParam(r, "id"), req.Password); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteSubadmin(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.DeleteSubadmin(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps registry and payout errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payout.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
	case payout.IsClientError(err), registry.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, registry.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password", nil)
	case registry.IsForbidden(err):
		writeError(w, http.StatusForbidden, "Forbidden", err)
	case registry.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, registry.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "Email already registered", err)
	default:
		h.log().Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}
