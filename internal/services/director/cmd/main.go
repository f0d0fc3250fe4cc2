package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/fleetsim/emergency-brake/internal/model/messages"
	"github.com/fleetsim/emergency-brake/internal/services/director"
	"github.com/fleetsim/emergency-brake/internal/storage"
	"github.com/fleetsim/emergency-brake/pkg/rabbitmq"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	cfg := struct {
		Rabbit     rabbitmq.Config
		DBPath     string
		TrackerURL string
		Port       string
		CooldownS  int
	}{
		Rabbit: rabbitmq.Config{
			Host:           envStr("RABBITMQ_HOST", "localhost"),
			Port:           envInt("RABBITMQ_PORT", 1883),
			User:           envStr("RABBITMQ_USER", "guest"),
			Password:       envStr("RABBITMQ_PASS", "guest"),
			ClientID:       envStr("HOSTNAME", "central-director"),
			ReconnectDelay: time.Duration(envInt("RABBITMQ_RECONNECT_DELAY", 5)) * time.Second,
		},
		DBPath:     envStr("DB_PATH", "/data/cd_events.db"),
		TrackerURL: envStr("LT_SERVICE_URL", "http://location-tracker"),
		Port:       envStr("PORT", "5000"),
		CooldownS:  envInt("BRAKE_COOLDOWN_SECONDS", 10),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events, err := storage.NewEventStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("open event store: %v", err)
	}
	defer events.Close()

	conn := rabbitmq.NewConn(&cfg.Rabbit)
	defer conn.Close()
	publisher := rabbitmq.NewPublisher(conn)
	tracker := director.NewTrackerClient(cfg.TrackerURL)

	svc := director.NewService(events, publisher, tracker,
		director.WithCooldown(time.Duration(cfg.CooldownS)*time.Second))

	distances := rabbitmq.NewConsumer(conn, svc.HandleDistance, messages.QueueDistanceData)
	statuses := rabbitmq.NewConsumer(conn, svc.HandleStatus, messages.QueueBrakeStatus)
	auditable := rabbitmq.NewConsumer(conn, svc.HandleEvent, messages.QueueEvents)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: svc.NewRouter()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { distances.Consume(gctx); return nil })
	g.Go(func() error { statuses.Consume(gctx); return nil })
	g.Go(func() error { auditable.Consume(gctx); return nil })
	g.Go(func() error {
		log.Printf("director: listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("director: %v", err)
	}
}
