/*
handlers.go - HTTP API handlers for the client engine

PURPOSE:
  Exposes the segmentation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST /login                              Issue JWT access token

  Mortgage:
    POST /calculate-mortgage                 Proxy to external calculator

  Clients:
    GET  /api/clients                        Search clients (paginated)
    GET  /api/clients/sample                 Example client ids
    GET  /api/clients/{id}                   Full client record
    GET  /api/clients/{id}/products          Matched products
    GET  /api/clients/{id}/offers            Matched offers
    POST /api/clients/cache/invalidate       Drop cached records

  Statistics:
    GET  /api/clients/segments               Population per customer type
    GET  /api/clients/balances               Average balances per account type
    GET  /api/clients/transactions           Transaction count/amount averages
    GET  /api/clients/spending               Spend per merchant category
    GET  /api/clients/digital-engagement     Channel adoption percentages

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing or invalid token, bad credentials
  - 404: Unknown client
  - 502: Mortgage upstream failure
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Token issuance and middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vantage/client-engine/clients"
	"github.com/vantage/client-engine/segments"
	"github.com/vantage/client-engine/stats"
	"github.com/vantage/client-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Clients  *clients.Service
	Resolver *segments.Resolver
	Matcher  *segments.Matcher
	Stats    *stats.Service
	Auth     *Auth
	Mortgage *MortgageClient

	// Users are fixed operator credentials accepted at login.
	Users map[string]string
}

// NewHandler wires up all handler dependencies over the given store.
func NewHandler(store *sqlite.Store, statsSvc *stats.Service, auth *Auth, mortgage *MortgageClient, users map[string]string) *Handler {
	return &Handler{
		Store:    store,
		Clients:  clients.NewService(store),
		Resolver: segments.NewResolver(store),
		Matcher:  segments.NewMatcher(store),
		Stats:    statsSvc,
		Auth:     auth,
		Mortgage: mortgage,
		Users:    users,
	}
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Login authenticates and issues an access token.
// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	switch {
	case req.Username != "":
		if h.Users[req.Username] != req.Password || req.Password == "" {
			log.Printf("login failed for user %s", req.Username)
			writeError(w, http.StatusUnauthorized, "Bad credentials", nil)
			return
		}
		h.issueToken(w, req.Username)

	case req.ClientID != "":
		ok, err := h.Clients.Exists(r.Context(), req.ClientID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Authentication failed", err)
			return
		}
		if !ok {
			log.Printf("login failed for client id %s", req.ClientID)
			writeError(w, http.StatusUnauthorized, "Bad credentials", nil)
			return
		}
		h.issueToken(w, req.ClientID)

	default:
		writeError(w, http.StatusBadRequest, "username/password or client_id required", nil)
	}
}

func (h *Handler) issueToken(w http.ResponseWriter, subject string) {
	token, err := h.Auth.IssueToken(subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	log.Printf("user %s logged in", subject)
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token})
}

// =============================================================================
// MORTGAGE HANDLER
// =============================================================================

// CalculateMortgage validates the request and proxies it upstream.
// POST /calculate-mortgage
func (h *Handler) CalculateMortgage(w http.ResponseWriter, r *http.Request) {
	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, ok := params["interest_rate"]; !ok {
		writeError(w, http.StatusBadRequest, "interest_rate is required", nil)
		return
	}
	_, hasLoan := params["loan_amount"]
	_, hasValue := params["home_value"]
	_, hasDown := params["downpayment"]
	if !hasLoan && !(hasValue && hasDown) {
		writeError(w, http.StatusBadRequest,
			"Either loan_amount or both home_value and downpayment must be provided", nil)
		return
	}

	result, err := h.Mortgage.Calculate(r.Context(), params)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			log.Printf("mortgage API error: %s", upstream.Body)
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":   "External API error",
				"details": json.RawMessage(upstream.Body),
			})
			return
		}
		writeError(w, http.StatusBadGateway, "External API unreachable", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(result)
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients searches by exact-match query parameters with pagination.
// GET /api/clients?page=1&page_size=50&<column>=<value>...
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := intParam(query.Get("page"), 1)
	pageSize := intParam(query.Get("page_size"), 50)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	query.Del("page")
	query.Del("page_size")

	filters := make(map[string]string, len(query))
	for key := range query {
		filters[key] = query.Get(key)
	}

	records, err := h.Store.Search(r.Context(), filters)
	if err != nil {
		if segments.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Invalid search filter", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to search clients", err)
		return
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}

	paged := records[start:end]
	if paged == nil {
		paged = []clients.Record{}
	}

	writeJSON(w, http.StatusOK, ClientListResponse{
		Data:       paged,
		Total:      len(records),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (len(records) + pageSize - 1) / pageSize,
	})
}

// GetClient returns the full record for one client.
// GET /api/clients/{id}
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.Clients.Fetch(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get client", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// GetClientProducts returns the products matching the client's segments.
// GET /api/clients/{id}/products
func (h *Handler) GetClientProducts(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, segments.Products)
}

// GetClientOffers returns the offers matching the client's segments.
// GET /api/clients/{id}/offers
func (h *Handler) GetClientOffers(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, segments.Offers)
}

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request, kind segments.CatalogKind) {
	id := chi.URLParam(r, "id")

	profile, err := h.Resolver.Resolve(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to resolve client segments", err)
		return
	}

	matches, err := h.Matcher.Match(r.Context(), profile, kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to match catalog", err)
		return
	}

	resp := RecommendationsResponse{ClientID: id}
	if kind == segments.Products {
		resp.Products = matches
	} else {
		resp.Offers = matches
	}
	writeJSON(w, http.StatusOK, resp)
}

// SampleClients returns example client ids.
// GET /api/clients/sample?count=10
func (h *Handler) SampleClients(w http.ResponseWriter, r *http.Request) {
	count := intParam(r.URL.Query().Get("count"), 10)
	if count < 1 {
		count = 10
	}

	ids, err := h.Store.SampleIDs(r.Context(), count)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sample ids", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, SampleIDsResponse{IDs: ids})
}

// InvalidateCache drops one cached client record, or all of them.
// POST /api/clients/cache/invalidate
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req InvalidateCacheRequest
	json.NewDecoder(r.Body).Decode(&req)

	if req.ClientID != "" {
		h.Clients.Invalidate(req.ClientID)
	} else {
		h.Clients.InvalidateAll()
	}

	writeJSON(w, http.StatusOK, CacheStatusResponse{Cached: h.Clients.CachedCount()})
}

// =============================================================================
// STATISTICS HANDLERS
// =============================================================================

// GetSegmentCounts returns the population per customer-type description.
// GET /api/clients/segments
func (h *Handler) GetSegmentCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Stats.SegmentCounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get segment counts", err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// GetAverageBalances returns the mean balance per account type.
// GET /api/clients/balances
func (h *Handler) GetAverageBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Stats.AverageBalances(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get balance statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

// GetTransactionStatistics returns per-type transaction averages.
// GET /api/clients/transactions
func (h *Handler) GetTransactionStatistics(w http.ResponseWriter, r *http.Request) {
	txStats, err := h.Stats.TransactionStatistics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get transaction statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, txStats)
}

// GetSpending returns total spend per merchant category group.
// GET /api/clients/spending
func (h *Handler) GetSpending(w http.ResponseWriter, r *http.Request) {
	spending, err := h.Stats.SpendingByCategory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get spending patterns", err)
		return
	}
	writeJSON(w, http.StatusOK, spending)
}

// GetDigitalEngagement returns channel adoption percentages.
// GET /api/clients/digital-engagement
func (h *Handler) GetDigitalEngagement(w http.ResponseWriter, r *http.Request) {
	engagement, err := h.Stats.DigitalEngagement(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get digital engagement", err)
		return
	}
	writeJSON(w, http.StatusOK, engagement)
}

// =============================================================================
// HELPERS
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

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case segments.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Client not found", nil)
	case segments.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
