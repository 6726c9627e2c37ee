package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

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

func main() {
	once := flag.Bool("once", false, "run a single processing pass and exit")
	flag.Parse()

	log.Println("Starting LensDesk campaign engine...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
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
	if len(senders) == 0 {
		log.Println("WARNING: no senders configured, every dispatch will fail")
	}

	store := campaign.NewStore(db)
	evaluator := segment.NewEvaluator(db, cfg.Engine.PreviewSampleLimit)
	resolver := template.NewResolver(db, cfg.Store.Name, cfg.Store.Phone)
	gate := consent.NewGate(db)
	notifier := notify.NewPGNotifier(db)
	dispatcher := dispatch.NewDispatcher(db, senders, cfg.Engine.DispatchTimeout())
	locks := runlock.NewFactory(redisClient, db, cfg.Engine.LockTTL())

	eng := engine.New(store, evaluator, resolver, gate, dispatcher, notifier, locks)

	if *once {
		results := eng.ProcessAllCampaigns(context.Background())
		var errs int
		for _, res := range results {
			if res.Err != nil {
				errs++
			}
		}
		log.Printf("Single pass complete: %d campaigns, %d errors", len(results), errs)
		if errs > 0 {
			os.Exit(1)
		}
		return
	}

	runner := engine.NewRunner(eng, cfg.Engine.TickInterval())
	if err := runner.Start(); err != nil {
		log.Fatalf("Failed to start runner: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down engine...")
	runner.Stop()
	log.Println("Engine stopped")
}
