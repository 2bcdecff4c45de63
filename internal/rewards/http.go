package rewards

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// HTTPHandler handles HTTP requests for the reward service.
// This is self-contained within the service package.
type HTTPHandler struct {
	svc *Service
}

// NewHTTPHandler creates a new HTTP handler for the reward service.
func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// RegisterRoutes registers the reward service routes on the given mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/rewards", h.handleRewards)
	mux.HandleFunc("/rewards/grants", h.handleGrants)
	mux.HandleFunc("/healthz", h.handleHealth)
}

func (h *HTTPHandler) handleRewards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleProcessReward(w, r)
	case http.MethodGet:
		h.handleQuery(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *HTTPHandler) handleProcessReward(w http.ResponseWriter, r *http.Request) {
	var req RewardRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	result, err := h.svc.ProcessReward(r.Context(), req)
	if err != nil {
		var limitErr *DailyLimitError
		switch {
		case errors.Is(err, ErrValidation):
			writeError(w, http.StatusBadRequest, err)
		case errors.As(err, &limitErr):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   limitErr.Error(),
				"data": map[string]interface{}{
					"remaining": limitErr.Remaining,
					"resetAt":   limitErr.ResetAt,
				},
			})
		case errors.Is(err, ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Reward processed successfully",
		"data":    result,
	})
}

// handleQuery serves the action-style read API:
// GET /rewards?action=balance&userWalletAddress=...
func (h *HTTPHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action := q.Get("action")
	wallet := q.Get("userWalletAddress")

	if action != "treasury-balance" && wallet == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("userWalletAddress parameter is required"))
		return
	}

	switch action {
	case "balance":
		balance, err := h.svc.Balance(r.Context(), wallet)
		if err != nil {
			writeQueryError(w, err)
			return
		}
		writeData(w, map[string]interface{}{"balance": balance})

	case "daily-limit":
		info, err := h.svc.DailyLimit(r.Context(), wallet)
		if err != nil {
			writeQueryError(w, err)
			return
		}
		writeData(w, info)

	case "treasury-balance":
		balances, err := h.svc.TreasuryBalances(r.Context())
		if err != nil {
			writeQueryError(w, err)
			return
		}
		writeData(w, balances)

	case "transaction-history":
		limit, err := parseLimitParam(q.Get("limit"), 10)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		history, err := h.svc.TransactionHistory(r.Context(), wallet, limit)
		if err != nil {
			writeQueryError(w, err)
			return
		}
		writeData(w, history)

	default:
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("invalid action, supported actions: balance, daily-limit, treasury-balance, transaction-history"))
	}
}

func (h *HTTPHandler) handleGrants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	wallet := r.URL.Query().Get("userWalletAddress")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("userWalletAddress parameter is required"))
		return
	}
	limit, err := parseLimitParam(r.URL.Query().Get("limit"), 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	grants, err := h.svc.Grants(r.Context(), wallet, limit)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if grants == nil {
		grants = []Grant{}
	}
	writeData(w, grants)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

func writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrValidation) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func parseLimitParam(value string, defaultLimit int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > 1000 {
		limit = 1000
	}
	return limit, nil
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
}
