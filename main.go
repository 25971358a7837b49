package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wfunc/hangman/broadcast"
	"github.com/wfunc/hangman/config"
	"github.com/wfunc/hangman/idgen"
	"github.com/wfunc/hangman/logger"
	"github.com/wfunc/hangman/monitor"
	"github.com/wfunc/hangman/persistence"
	"github.com/wfunc/hangman/room"
	"github.com/wfunc/hangman/rpc"
	"github.com/wfunc/hangman/server"
	"github.com/wfunc/hangman/services"
	"github.com/wfunc/hangman/session"
	"github.com/wfunc/hangman/timer"
)

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to open %s database: %v", cfg.Database.Driver, err)
	}
	defer db.Close()
	logger.Log.Infof("Database %s ready.", cfg.Database.Driver)

	timers := timer.NewTimerManager(timer.DefaultResolution)
	defer timers.Stop()
	registry := room.NewRegistry(idgen.New(cfg.Game.RoomIDLength), timers, cfg.Game.TeardownGrace)

	sessions := session.NewManager()
	mon := monitor.NewMonitor(cfg.Metrics.Namespace, registry.RoomCount)
	games := services.NewGameService(registry, broadcast.NewRoomBroadcaster(registry, sessions), db, mon)

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, games)
	if err != nil {
		logger.Log.Fatalf("Failed to listen for rpc on %s: %v", cfg.Server.RPCAddress, err)
	}
	gameServer := server.NewGameServer(cfg.Server, games, sessions, mon, rpcServer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Log.Infof("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Shutdown failed: %v", err)
	}
}
