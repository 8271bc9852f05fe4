// Package ws bridges websocket clients to live matches: events stream
// out, wire actions are validated and converted to typed match actions on
// the way in.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/shopspring/decimal"

	"github.com/eights-gg/eights-backend/internal/draft"
	"github.com/eights-gg/eights-backend/internal/events"
	"github.com/eights-gg/eights-backend/internal/mapflow"
	"github.com/eights-gg/eights-backend/internal/match"
	"github.com/eights-gg/eights-backend/internal/queue"
	"github.com/eights-gg/eights-backend/internal/rps"
	"github.com/eights-gg/eights-backend/internal/types"
)

// Registry tracks connected users and backs liveness checks.
type Registry struct {
	mu    sync.Mutex
	conns map[string]int
}

func NewRegistry() *Registry {
	return &Registry{conns: map[string]int{}}
}

func (r *Registry) add(user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[user]++
}

func (r *Registry) remove(user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[user] <= 1 {
		delete(r.conns, user)
	} else {
		r.conns[user]--
	}
}

func (r *Registry) Connected(user string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[user] > 0
}

// Handler serves /ws?match=N&user=U: subscribes the connection to the
// match's event stream and forwards client actions to it. Actions the
// match refuses come back through the surface so every subscriber of
// that user sees the rejection.
func Handler(m *queue.Manager, bus *events.Bus, reg *Registry, surface match.Surface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		if user == "" {
			http.Error(w, "missing user", http.StatusBadRequest)
			return
		}
		matchID, err := strconv.ParseInt(r.URL.Query().Get("match"), 10, 64)
		if err != nil {
			http.Error(w, "missing or bad match", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		reg.add(user)
		defer reg.remove(user)

		sub, cancel := bus.Subscribe()
		defer cancel()

		// Writer goroutine: match-scoped events plus venue-wide ones.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for ev := range sub {
				if ev.Match != 0 && ev.Match != matchID {
					continue
				}
				msg := types.ServerMessage{Type: "Event", Event: &ev}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			action, ok := toAction(cm)
			if !ok {
				writeError(r.Context(), conn, "unknown or malformed action")
				continue
			}

			if err := m.Submit(matchID, user, action); err != nil {
				surface.Reject(matchID, user, err)
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: msg})
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

// toAction validates the wire message and builds the typed action. Enum
// and amount parsing happens here so core code never sees raw strings.
func toAction(m types.ClientMessage) (match.Action, bool) {
	switch m.Type {
	case "CaptainVote":
		return match.CaptainVote{Target: m.Target}, m.Target != ""
	case "DraftTypeVote":
		t := draft.Type(m.Choice)
		return match.DraftTypeVote{Type: t}, draft.ValidType(t)
	case "RPS":
		c := rps.Choice(m.Choice)
		return match.RPSChoice{Choice: c}, rps.Valid(c)
	case "Pick":
		return match.Pick{Target: m.Target}, m.Target != ""
	case "MapVote":
		s := mapflow.Style(m.Style)
		return match.MapStyleVote{Style: s}, mapflow.ValidStyle(s)
	case "MapChoice":
		s := mapflow.Style(m.Style)
		return match.MapStyleChoice{Style: s}, mapflow.ValidStyle(s)
	case "Veto":
		return match.MapVeto{}, true
	case "PlaceWager", "AcceptWager", "CancelWager":
		amount, err := decimal.NewFromString(m.Amount)
		if err != nil {
			return nil, false
		}
		switch m.Type {
		case "PlaceWager":
			return match.PlaceWager{Amount: amount}, true
		case "AcceptWager":
			return match.AcceptWager{Amount: amount}, true
		default:
			return match.CancelWager{Amount: amount}, true
		}
	case "Chalk":
		return match.ChalkVote{}, true
	case "Substitute":
		return match.Substitute{Out: m.Target, In: m.Replacement}, m.Target != "" && m.Replacement != ""
	case "Promote":
		return match.PromoteCaptain{Target: m.Target}, m.Target != ""
	case "Report":
		return match.ReportResult{Winner: m.Winner}, m.Winner == 1 || m.Winner == 2
	default:
		return nil, false
	}
}
