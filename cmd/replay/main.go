// Replay re-posts failed webhook events from the audit log back to the
// local webhook endpoint. Handlers are idempotent, so replaying an event
// that later succeeded through another path is harmless.
package main

import (
	"bytes"
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/meridianpay/custodyops/internal/store"
)

var (
	targetURL string
	limit     int
	dryRun    bool
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&limit, "limit", 100, "Maximum failed events to replay")
	flag.BoolVar(&dryRun, "dry-run", false, "List failed events without replaying")
}

func main() {
	flag.Parse()

	dbURL := os.Getenv("DB_SOURCE")
	if dbURL == "" {
		log.Fatal("DB_SOURCE environment variable is required")
	}

	mirror, err := store.NewStore(dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer mirror.Close()

	ctx := context.Background()
	entries, err := mirror.ListFailedWebhookEntries(ctx, limit)
	if err != nil {
		log.Fatalf("Failed to load audit entries: %v", err)
	}
	log.Printf("Found %d failed webhook events", len(entries))

	if dryRun {
		for _, e := range entries {
			log.Printf("  %s  %s  %s", e.CreatedAt.Format(time.RFC3339), e.EventType, e.Error)
		}
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	var replayed, failed int
	for _, e := range entries {
		resp, err := client.Post(targetURL+"/webhooks/provider", "application/json", bytes.NewReader(e.Payload))
		if err != nil {
			log.Printf("Replay failed for %s: %v", e.ID, err)
			failed++
			continue
		}
		resp.Body.Close()
		replayed++
	}

	log.Printf("Replayed %d events (%d delivery failures)", replayed, failed)
}
