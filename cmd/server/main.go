package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	emailPkg "mms/internal/adapters/email"
	web "mms/internal/adapters/http"
	"mms/internal/adapters/storage"
	eventStore "mms/internal/adapters/storage/event"
	memberStore "mms/internal/adapters/storage/member"
	"mms/internal/application/activity"
	"mms/internal/application/realtime"
	eventDomain "mms/internal/domain/event"
	memberDomain "mms/internal/domain/member"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

type config struct {
	Addr           string        `env:"MMS_ADDR" envDefault:":8080"`
	MongoURI       string        `env:"MMS_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB        string        `env:"MMS_MONGO_DB" envDefault:"mms"`
	ResendKey      string        `env:"MMS_RESEND_KEY"`
	ImportReportTo string        `env:"MMS_IMPORT_REPORT_TO"`
	FetchCooldown  time.Duration `env:"MMS_FETCH_COOLDOWN" envDefault:"2m"`
	IdleDelay      time.Duration `env:"MMS_IDLE_DELAY" envDefault:"10m"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := storage.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("failed to connect to document store: %v", err)
	}
	defer client.Disconnect(context.Background())
	log.Println("Document store connected")

	db := client.Database(cfg.MongoDB)
	stores := &web.Stores{
		MemberStore: memberStore.NewMongoStore(db),
		EventStore:  eventStore.NewMongoStore(db),
	}

	// Realtime cache per collection, gated on operator activity
	managers := &web.Managers{
		Members: realtime.NewManager[memberDomain.Member](memberStore.CollectionName, stores.MemberStore, cfg.FetchCooldown),
		Events:  realtime.NewManager[eventDomain.Event](eventStore.CollectionName, stores.EventStore, cfg.FetchCooldown),
	}
	registry := activity.NewRegistry()
	defer managers.Members.BindActivity(ctx, registry)()
	defer managers.Events.BindActivity(ctx, registry)()
	managers.Members.Start(ctx)
	managers.Events.Start(ctx)
	defer managers.Members.Stop()
	defer managers.Events.Stop()

	watchdog := activity.NewWatchdog(registry, cfg.IdleDelay)
	go watchdog.Run(ctx)

	// Configure email sender
	if cfg.ResendKey != "" {
		web.SetEmailSender(emailPkg.NewResendSender(cfg.ResendKey, "Membership Dashboard <noreply@mms.local>"), cfg.ImportReportTo)
		log.Println("Email sender configured (Resend)")
	} else {
		web.SetEmailSender(emailPkg.NewNoopSender(), cfg.ImportReportTo)
		log.Println("Email sender configured (noop — set MMS_RESEND_KEY for real delivery)")
	}

	mux := web.NewMux(ctx, stores, managers, registry)

	// Every request counts as operator activity
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		watchdog.Touch()
		mux.ServeHTTP(w, r)
	}))

	server := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("mms %s starting on %s (db=%s)", version, cfg.Addr, cfg.MongoDB)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
