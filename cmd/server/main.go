package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/eights-gg/eights-backend/internal/config"
	"github.com/eights-gg/eights-backend/internal/events"
	"github.com/eights-gg/eights-backend/internal/httpapi"
	"github.com/eights-gg/eights-backend/internal/match"
	"github.com/eights-gg/eights-backend/internal/queue"
	"github.com/eights-gg/eights-backend/internal/store"
	"github.com/eights-gg/eights-backend/internal/wager"
	"github.com/eights-gg/eights-backend/internal/ws"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("opening postgres", zap.Error(err))
		}
		st = pg
		log.Info("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	var upstream events.Upstream
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSPrefix)
		if err != nil {
			log.Fatal("connecting nats", zap.Error(err))
		}
		defer nc.Close()
		upstream = nc
		log.Info("publishing events to nats", zap.String("url", cfg.NATSURL))
	}
	bus := events.NewBus(log, upstream)

	reg := ws.NewRegistry()
	ledger := wager.NewLedger(st)
	surface := match.NewBusSurface(bus, reg)
	manager := queue.NewManager(match.Deps{
		Store:   st,
		Ledger:  ledger,
		Bus:     bus,
		Surface: surface,
		Log:     log,
	}, cfg.Match())

	ctx := context.Background()
	go manager.Run(ctx)

	handler := httpapi.SetupRoutes(manager, st, ledger, bus, reg, surface)
	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
