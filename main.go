package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"padwatch/buildings"
	"padwatch/checker"
	"padwatch/config"
	"padwatch/httputil"
	"padwatch/logging"
	"padwatch/migrations"
	"padwatch/notify"
	"padwatch/scheduler"
	"padwatch/services"
	"padwatch/storage"
	"padwatch/workers"
)

var (
	checkNow = flag.Bool("check", false, "Run one check pass and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("daemon.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting padwatch...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d source configs", len(cfg.Sources))
	for id, source := range cfg.Sources {
		log.Printf("  - %s (%s)", source.Name, id)
	}

	clients := httputil.NewClients()

	ctx := context.Background()

	if cfg.Database.Migrate {
		if err := migrations.Run(cfg.Database.URL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Migrations up to date")
	}

	// Postgres holds the domain data (alerts, listings, notifications)
	pgStore, err := storage.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Database.URL))

	// SQLite holds operational data (commands, run history, source stats)
	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	listingService := services.NewListingService(pgStore)
	resolver := buildings.NewResolver(cfg.Registry, clients.Registry)

	var emailSender notify.EmailSender
	if cfg.Notify.EmailFrom != "" {
		ses, err := notify.NewSESSender(ctx, cfg.Notify)
		if err != nil {
			log.Fatalf("Failed to set up SES: %v", err)
		}
		emailSender = ses
	} else {
		log.Println("EMAIL_FROM not set, email channel disabled")
	}

	var smsSender notify.SMSSender
	if cfg.Notify.AccessKeyID != "" {
		sns, err := notify.NewSNSSender(ctx, cfg.Notify)
		if err != nil {
			log.Fatalf("Failed to set up SNS: %v", err)
		}
		smsSender = sns
	} else {
		log.Println("AWS credentials not set, sms channel disabled")
	}
	dispatcher := notify.NewDispatcher(emailSender, smsSender)

	srcs, err := checker.BuildSources(cfg.Sources)
	if err != nil {
		log.Fatalf("Failed to build sources: %v", err)
	}

	chk := checker.New(pgStore, sqliteStore, srcs, listingService, resolver, dispatcher,
		cfg.Checker.Concurrency, cfg.Checker.RunBudget)

	if *checkNow {
		log.Println("Running check pass...")
		stats := chk.Run(ctx).Snapshot()
		if stats.Errors > 0 {
			log.Printf("Check pass finished with %d errors", stats.Errors)
			os.Exit(1)
		}
		log.Println("Check pass complete!")
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg, chk, sqliteStore)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	enrichmentWorker := workers.NewEnrichmentWorker(pgStore, resolver)
	go enrichmentWorker.Run(ctx, 25, 5*time.Minute)

	livenessWorker := workers.NewLivenessWorker(pgStore, clients.Liveness)
	go livenessWorker.Run(ctx, 20, 30*time.Minute)

	sched.SetWorkers(enrichmentWorker, livenessWorker)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
