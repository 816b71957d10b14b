// Command eventlog consumes booking events from RabbitMQ and appends them
// to a log file.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/iliyamo/lodge-booking/internal/config"
	"github.com/iliyamo/lodge-booking/internal/queue"
)

func main() {
	path := flag.String("out", "logs/booking.log", "file the events are appended to")
	flag.Parse()

	if err := config.LoadDotenv(".env"); err != nil {
		log.Printf("warning: %v", err)
	}
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		log.Fatal("RABBITMQ_URL is not set")
	}

	if err := os.MkdirAll(filepath.Dir(*path), 0o755); err != nil {
		log.Fatalf("mkdir logs: %v", err)
	}
	f, err := os.OpenFile(*path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("booking-consumer: writing events to %s", *path)
	c := queue.NewConsumer(url, f, log.Default())
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Print(err)
	}
}
