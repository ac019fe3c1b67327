package main

import (
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/onepuzle/puzle-ai/internal/config"
	"github.com/onepuzle/puzle-ai/internal/db"
	"github.com/onepuzle/puzle-ai/internal/events"
	"github.com/onepuzle/puzle-ai/internal/logging"
)

var workerConcurrencyFlag int

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.RabbitURL == "" {
		return errors.New("RABBIT_URL is not set")
	}

	handle := events.LogHandler(log)
	if cfg.DBConfigured() {
		gdb, err := db.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := db.Migrate(gdb); err != nil {
			return err
		}
		handle = events.NewRecorder(gdb).Record
		log.Info().Msg("recording turn events to the database")
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	consumer, err := events.NewConsumer(ch, cfg.RabbitQueue, events.ConsumerOptions{
		Concurrency: workerConcurrencyFlag,
	}, handle, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return consumer.Run(ctx)
}
