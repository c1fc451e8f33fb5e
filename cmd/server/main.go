package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"spark-arena/internal/api"
	"spark-arena/internal/config"
	"spark-arena/internal/game"
	"spark-arena/internal/render"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  SPARK ARENA")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	simCfg := appConfig.Sim
	serverCfg := appConfig.Server

	gameCfg := game.DefaultConfig()
	gameCfg.Player.Speed = simCfg.PlayerSpeed

	engine, err := game.NewEngine(game.EngineConfig{
		TickRate: simCfg.TickRate,
		Game:     gameCfg,
		Observer: api.Metrics{},
	})
	if err != nil {
		log.Fatalf("❌ Failed to create game engine: %v", err)
	}
	log.Printf("🎮 Config: %d TPS, player speed %.1f", simCfg.TickRate, simCfg.PlayerSpeed)

	// Event log; an empty path keeps events in memory for /api/events
	if err := engine.StartEventLog(simCfg.EventLogPath); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else if simCfg.EventLogPath != "" {
		log.Printf("📝 Event log: %s", simCfg.EventLogPath)
	}

	if err := api.StartDebugServer(api.ObservabilityConfig{
		Enabled:    appConfig.Debug.Enabled,
		ListenAddr: appConfig.Debug.Addr,
	}); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	server := api.NewServer(engine, api.ServerOptions{
		Renderer: render.NewRenderer(render.DefaultScale),
		RateLimit: api.RateLimitConfig{
			Read:  api.BudgetFor(serverCfg.ReadRate),
			Input: api.BudgetFor(serverCfg.InputRate),
			World: api.BudgetFor(serverCfg.WorldRate),
		},
		MaxClients: serverCfg.MaxClients,
	})

	engine.Start()

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}
