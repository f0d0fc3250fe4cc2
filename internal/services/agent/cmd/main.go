package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fleetsim/emergency-brake/internal/model/messages"
	"github.com/fleetsim/emergency-brake/internal/services/agent"
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
	vehicleID := envStr("VEHICLE_ID", "unknown")
	cfg := rabbitmq.Config{
		Host:           envStr("RABBITMQ_HOST", "localhost"),
		Port:           envInt("RABBITMQ_PORT", 1883),
		User:           envStr("RABBITMQ_USER", "guest"),
		Password:       envStr("RABBITMQ_PASS", "guest"),
		ClientID:       "agent-" + vehicleID,
		ReconnectDelay: time.Duration(envInt("RABBITMQ_RECONNECT_DELAY", 5)) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn := rabbitmq.NewConn(&cfg)
	defer conn.Close()

	publisher := rabbitmq.NewPublisher(conn)
	consumer := rabbitmq.NewConsumer(conn, nil, messages.QueueBrakeCommands)
	svc := agent.NewService(vehicleID, consumer, publisher, agent.NoopBrake{})

	log.Printf("agent: emergency brake agent for %s running", vehicleID)
	svc.Start(ctx)
}
