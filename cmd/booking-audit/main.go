// Command booking-audit consumes booking events and appends them to an
// audit log, one line per event.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/queue"
)

func main() {
	config.LoadDotenv()

	consumer := queue.NewConsumer(queue.BrokerURL(), os.Getenv("BOOKING_AUDIT_LOG"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("booking-audit: writing to %s", consumer.LogPath)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("booking-audit: %v", err)
	}
	log.Printf("booking-audit: stopped")
}
