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
	"github.com/fleetsim/emergency-brake/internal/services/monitor"
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
		Rabbit rabbitmq.Config
		Port   string
	}{
		Rabbit: rabbitmq.Config{
			Host:           envStr("RABBITMQ_HOST", "localhost"),
			Port:           envInt("RABBITMQ_PORT", 1883),
			User:           envStr("RABBITMQ_USER", "guest"),
			Password:       envStr("RABBITMQ_PASS", "guest"),
			ClientID:       envStr("HOSTNAME", "distance-monitor"),
			ReconnectDelay: time.Duration(envInt("RABBITMQ_RECONNECT_DELAY", 5)) * time.Second,
		},
		Port: envStr("PORT", "5000"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn := rabbitmq.NewConn(&cfg.Rabbit)
	defer conn.Close()

	publisher := rabbitmq.NewPublisher(conn)
	consumer := rabbitmq.NewConsumer(conn, nil, messages.QueueSensorData)
	svc := monitor.NewService(consumer, publisher, monitor.NewFuser())

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: svc.NewRouter()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { svc.Start(gctx); return nil })
	g.Go(func() error {
		log.Printf("monitor: listening on :%s", cfg.Port)
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
		log.Fatalf("monitor: %v", err)
	}
}
