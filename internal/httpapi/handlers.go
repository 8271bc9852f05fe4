package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/eights-gg/eights-backend/internal/queue"
	"github.com/eights-gg/eights-backend/internal/store"
	"github.com/eights-gg/eights-backend/internal/wager"
)

type userBody struct {
	User string `json:"user"`
}

func QueueJoin(m *queue.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body userBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.User == "" {
			http.Error(w, "missing user", http.StatusBadRequest)
			return
		}
		if err := m.Join(chi.URLParam(r, "venue"), body.User); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func QueueLeave(m *queue.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body userBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.User == "" {
			http.Error(w, "missing user", http.StatusBadRequest)
			return
		}
		if err := m.Leave(chi.URLParam(r, "venue"), body.User); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetMatch(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
		if err != nil {
			http.Error(w, "bad match number", http.StatusBadRequest)
			return
		}
		rec, err := st.Match(r.Context(), number)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, rec)
	}
}

func Leaderboard(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 100 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		profiles, err := st.TopProfiles(r.Context(), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, profiles)
	}
}

func Balance(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := st.Profile(r.Context(), chi.URLParam(r, "user"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, struct {
			User    string          `json:"user"`
			Balance decimal.Decimal `json:"balance"`
		}{p.UserID, p.Balance})
	}
}

func Transfer(ledger *wager.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			From   string          `json:"from"`
			To     string          `json:"to"`
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.From == "" || body.To == "" {
			http.Error(w, "missing from/to", http.StatusBadRequest)
			return
		}
		if body.From == body.To {
			http.Error(w, "cannot send to yourself", http.StatusBadRequest)
			return
		}
		if err := ledger.Transfer(r.Context(), body.From, body.To, body.Amount); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AdminAdjust patches a profile directly. Zero fields are left alone;
// balance adjustments go through the atomic increment.
func AdminAdjust(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			User    string           `json:"user"`
			Rating  *int             `json:"rating,omitempty"`
			Wins    *int             `json:"wins,omitempty"`
			Losses  *int             `json:"losses,omitempty"`
			Balance *decimal.Decimal `json:"balance_delta,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.User == "" {
			http.Error(w, "missing user", http.StatusBadRequest)
			return
		}

		p, err := st.Profile(r.Context(), body.User)
		if err != nil {
			writeError(w, err)
			return
		}
		if body.Rating != nil {
			p.Rating = *body.Rating
		}
		if body.Wins != nil {
			p.Wins = *body.Wins
		}
		if body.Losses != nil {
			p.Losses = *body.Losses
		}
		if err := st.SaveProfiles(r.Context(), []store.Profile{p}); err != nil {
			writeError(w, err)
			return
		}
		if body.Balance != nil {
			if p.Balance.Add(*body.Balance).IsNegative() {
				http.Error(w, "balance would go negative", http.StatusConflict)
				return
			}
			if err := st.AddBalance(r.Context(), body.User, *body.Balance); err != nil {
				writeError(w, err)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, queue.ErrMatchNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, queue.ErrAlreadyActive),
		errors.Is(err, queue.ErrAlreadyQueued),
		errors.Is(err, queue.ErrQueueFull),
		errors.Is(err, queue.ErrNotQueued),
		errors.Is(err, store.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, wager.ErrInvalidAmount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
