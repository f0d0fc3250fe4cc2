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

	"github.com/fleetsim/emergency-brake/internal/model/messages"
	"github.com/fleetsim/emergency-brake/internal/services/persistence"
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
	rcfg := rabbitmq.Config{
		Host:           envStr("RABBITMQ_HOST", "localhost"),
		Port:           envInt("RABBITMQ_PORT", 1883),
		User:           envStr("RABBITMQ_USER", "guest"),
		Password:       envStr("RABBITMQ_PASS", "guest"),
		ClientID:       envStr("HOSTNAME", "distance-persistence"),
		ReconnectDelay: time.Duration(envInt("RABBITMQ_RECONNECT_DELAY", 5)) * time.Second,
	}
	icfg := persistence.InfluxConfig{
		URL:    envStr("INFLUX_URL", "http://localhost:8086"),
		Token:  os.Getenv("INFLUX_TOKEN"),
		Org:    envStr("INFLUX_ORG", "fleet"),
		Bucket: envStr("INFLUX_BUCKET", "distances"),
	}
	port := envStr("PORT", "5008")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn := rabbitmq.NewConn(&rcfg)
	defer conn.Close()

	consumer := rabbitmq.NewConsumer(conn, nil, messages.QueueDistanceData)
	svc, err := persistence.NewService(consumer, icfg)
	if err != nil {
		log.Fatalf("persistence: %v", err)
	}

	connState := func() string { return conn.State().String() }
	mux := http.NewServeMux()
	mux.Handle("/healthz", svc.HealthHandler(connState))
	mux.Handle("/readyz", svc.ReadyHandler(connState, 30*time.Second))
	srv := &http.Server{Addr: ":" + port, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { svc.Start(gctx); return nil })
	g.Go(func() error {
		log.Printf("persistence: listening on :%s", port)
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
		log.Fatalf("persistence: %v", err)
	}
}
