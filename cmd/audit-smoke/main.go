// Package main is a manual smoke test for the audit pipeline: it publishes
// a handful of registry write events to Kafka and reports delivery. Run it
// against a local broker before trusting the audit trail in an environment.
//
//	KAFKA_BROKERS=localhost:9092 go run ./cmd/audit-smoke
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"docseal/internal/audit"
	"docseal/internal/platform/config"
	"docseal/internal/platform/kafka/producer"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := config.FromEnv()

	if cfg.Kafka.Brokers == "" {
		fmt.Fprintln(os.Stderr, "KAFKA_BROKERS is not set")
		os.Exit(1)
	}

	kafkaProducer, err := producer.New(producer.Config{
		Brokers:         cfg.Kafka.Brokers,
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create producer: %v\n", err)
		os.Exit(1)
	}
	defer kafkaProducer.Close()

	publisher := audit.NewKafkaPublisher(kafkaProducer, cfg.Kafka.AuditTopic)
	ctx := context.Background()

	fmt.Printf("publishing to %s (topic %s)\n", cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)

	delivered := 0
	for i := 0; i < 5; i++ {
		commitment := smokeCommitment(i)
		event := audit.NewEvent(audit.ActionStoreInitial, commitment, "audit-smoke", "0xsmoke", uint64(i+1))
		if err := publisher.Emit(ctx, event); err != nil {
			fmt.Printf("  event %d failed: %v\n", i+1, err)
			continue
		}
		delivered++
		fmt.Printf("  event %d delivered (commitment %s)\n", i+1, commitment[:18])
	}

	fmt.Printf("done: %d/5 delivered\n", delivered)
	if delivered < 5 {
		os.Exit(1)
	}
}

// smokeCommitment derives a distinct well-formed commitment per event so the
// events spread across partitions like real traffic.
func smokeCommitment(i int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("audit-smoke-%d", i)))
	return "0x" + hex.EncodeToString(sum[:])
}
