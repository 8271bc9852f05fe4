package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eights-gg/eights-backend/internal/events"
	"github.com/eights-gg/eights-backend/internal/match"
	"github.com/eights-gg/eights-backend/internal/queue"
	"github.com/eights-gg/eights-backend/internal/store"
	"github.com/eights-gg/eights-backend/internal/wager"
	"github.com/eights-gg/eights-backend/internal/ws"
)

func SetupRoutes(m *queue.Manager, st store.Store, ledger *wager.Ledger, bus *events.Bus, reg *ws.Registry, surface match.Surface) http.Handler {
	r := chi.NewRouter()

	r.Post("/queues/{venue}/join", QueueJoin(m))
	r.Post("/queues/{venue}/leave", QueueLeave(m))
	r.Get("/matches/{number}", GetMatch(st))
	r.Get("/leaderboard", Leaderboard(st))
	r.Get("/balance/{user}", Balance(st))
	r.Post("/transfer", Transfer(ledger))
	r.Post("/admin/adjust", AdminAdjust(st))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(m, bus, reg, surface))
	return r
}
