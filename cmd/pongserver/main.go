// Package main provides the Pong server binary: the websocket endpoint for
// players, the fixed-rate game scheduler, and the admin health service.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pong/internal/admin"
	"github.com/cory-johannsen/pong/internal/config"
	"github.com/cory-johannsen/pong/internal/frontend/ws"
	"github.com/cory-johannsen/pong/internal/game/pong"
	"github.com/cory-johannsen/pong/internal/game/session"
	"github.com/cory-johannsen/pong/internal/gameserver"
	"github.com/cory-johannsen/pong/internal/observability"
	"github.com/cory-johannsen/pong/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (e.g. configs/pong.yaml); empty uses defaults and environment")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "pongserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting pong server",
		zap.String("ws_addr", cfg.WebSocket.Addr()),
		zap.String("ws_path", cfg.WebSocket.Path),
		zap.Duration("tick_interval", cfg.Game.TickInterval),
	)

	hub := ws.NewHub(logger.Named("hub"))
	sessions := session.NewManager(session.NewStore(), hub, logger.Named("session"))
	scheduler := gameserver.NewScheduler(cfg.Game.TickInterval, sessions, hub,
		pong.NewCryptoSource(), logger.Named("scheduler"))
	dispatcher := gameserver.NewDispatcher(sessions, logger.Named("dispatcher"))
	acceptor := ws.NewAcceptor(cfg.WebSocket, hub, dispatcher, logger.Named("ws"))

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("scheduler", server.NewLoopService(scheduler.Run))
	lifecycle.Add("websocket", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	if cfg.Admin.Enabled {
		healthSrv := admin.NewHealthServer(cfg.Admin.Addr(), logger.Named("admin"))
		lifecycle.Add("admin", &server.FuncService{
			StartFn: healthSrv.ListenAndServe,
			StopFn:  healthSrv.Stop,
		})
	}

	logger.Info("pong server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
