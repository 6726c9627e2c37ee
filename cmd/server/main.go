package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/lensdesk/lensdesk/internal/api"
	"github.com/lensdesk/lensdesk/internal/campaign"
	"github.com/lensdesk/lensdesk/internal/config"
	"github.com/lensdesk/lensdesk/internal/consent"
	"github.com/lensdesk/lensdesk/internal/dispatch"
	"github.com/lensdesk/lensdesk/internal/engine"
	"github.com/lensdesk/lensdesk/internal/notify"
	"github.com/lensdesk/lensdesk/internal/pkg/runlock"
	"github.com/lensdesk/lensdesk/internal/segment"
	"github.com/lensdesk/lensdesk/internal/template"
	"github.com/lensdesk/lensdesk/internal/transport"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("Starting LensDesk API server...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unavailable (%v), run leases fall back to advisory locks", err)
			redisClient = nil
		} else {
			log.Println("Connected to Redis")
		}
	}

	senders := make(map[campaign.Channel]transport.Sender)
	if cfg.Twilio.Enabled {
		senders[campaign.ChannelSMS] = transport.NewTwilioSender(cfg.Twilio)
		log.Println("Twilio SMS sender initialized")
	}
	if cfg.SES.Enabled {
		sesSender, err := transport.NewSESSender(context.Background(), cfg.SES)
		if err != nil {
			log.Fatalf("Failed to initialize SES sender: %v", err)
		}
		senders[campaign.ChannelEmail] = sesSender
		log.Println("SES email sender initialized")
	}

	store := campaign.NewStore(db)
	evaluator := segment.NewEvaluator(db, cfg.Engine.PreviewSampleLimit)
	resolver := template.NewResolver(db, cfg.Store.Name, cfg.Store.Phone)
	gate := consent.NewGate(db)
	notifier := notify.NewPGNotifier(db)
	dispatcher := dispatch.NewDispatcher(db, senders, cfg.Engine.DispatchTimeout())
	locks := runlock.NewFactory(redisClient, db, cfg.Engine.LockTTL())

	eng := engine.New(store, evaluator, resolver, gate, dispatcher, notifier, locks)

	handlers := api.NewHandlers(db, store, evaluator, eng, gate, notifier)
	healthChecker := api.NewHealthChecker(db, redisClient)
	server := api.NewServer(handlers, healthChecker)

	addr := fmt.Sprintf("%s:%d", host, port)
	go func() {
		log.Printf("API server listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
