package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aquastack/aquameter/internal/alerting"
	"github.com/aquastack/aquameter/internal/api"
	"github.com/aquastack/aquameter/internal/auth"
	"github.com/aquastack/aquameter/internal/config"
	"github.com/aquastack/aquameter/internal/ledger"
	"github.com/aquastack/aquameter/internal/migrate"
	"github.com/aquastack/aquameter/internal/notification"
	"github.com/aquastack/aquameter/internal/storage"
	"github.com/aquastack/aquameter/internal/telemetry"
)

func main() {
	cfg := config.FromEnv()
	ctx := context.Background()

	if cfg.AutoMigrate && cfg.DBDriver != "memory" {
		if err := migrate.Up(ctx, cfg.DBDriver, cfg.DBDSN); err != nil {
			log.Printf("auto-migration failed: %v", err)
		}
	}

	st, err := storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer st.Close()

	tokens, err := ledger.InitializeTokens(ctx, st)
	if err != nil {
		log.Fatalf("initialize tokens: %v", err)
	}

	svc := ledger.NewService(st, tokens)
	notifier := notification.NewService(st)

	var authSvc *auth.Service
	if cfg.AuthEnabled {
		authSvc, err = auth.NewService(st)
		if err != nil {
			log.Fatalf("init auth: %v", err)
		}
	}

	if cfg.TelemetryWorker {
		alerter := alerting.NewAlerter(alerting.DefaultAlertConfig())
		worker := telemetry.NewWorker(st, svc, alerter, notifier)
		go func() {
			if err := worker.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("telemetry worker stopped: %v", err)
			}
		}()
	}

	mux := api.NewMux(svc, st, authSvc, notifier)

	addr := ":" + cfg.Port
	log.Printf("aquameter listening on %s (driver=%s auth=%t)", addr, cfg.DBDriver, cfg.AuthEnabled)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
