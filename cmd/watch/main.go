// cmd/watch/main.go
//
// Terminal companion to the server: keeps a live local view of the note list
// over the websocket stream and prints the aggregate stats as they change.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskpulse/internal/config"
	"taskpulse/internal/logger"
	"taskpulse/internal/realtime"

	"golang.org/x/sync/errgroup"
)

var (
	baseURL  = flag.String("url", envOr("API_BASE_URL", "http://localhost:8080"), "Server base URL")
	wsURL    = flag.String("ws", envOr("WS_URL", "ws://localhost:8080/ws/notes"), "WebSocket stream URL")
	interval = flag.Duration("interval", 2*time.Second, "How often to print stats")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logg, err := logger.Init(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	client := realtime.New(*baseURL, *wsURL, logg,
		realtime.WithRecentLimit(cfg.RecentNotesLimit))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.Run(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s := client.Stats()
				fmt.Printf("total=%d completed=%d pending=%d recent=%d\n",
					s.Total, s.Completed, s.Pending, len(s.Recent))
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logg.Error("watch failed", "err", err)
		os.Exit(1)
	}
}
