package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/gesture.report/internal/config"
	"github.com/banshee-data/gesture.report/internal/events"
	"github.com/banshee-data/gesture.report/internal/vision/detect"
	"github.com/banshee-data/gesture.report/internal/vision/frame"
	"github.com/banshee-data/gesture.report/internal/vision/pipeline"
	"github.com/banshee-data/gesture.report/internal/vision/storage/sqlite"
	"github.com/banshee-data/gesture.report/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	natsURL       = flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
	dbPath        = flag.String("db", "persons.db", "SQLite database path")
	detectURL     = flag.String("detect-url", "http://127.0.0.1:9090/detect", "Keypoint detection service URL")
	configPath    = flag.String("config", config.DefaultConfigPath, "Tuning config JSON path")
	sensorID      = flag.String("sensor", "default", "Sensor identifier for frame subscription")
	migrationsDir = flag.String("migrations", "migrations", "Schema migrations directory")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("gesture-report %s", version.String())

	cfg, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	pub, err := events.NewNATSPublisher(*natsURL)
	if err != nil {
		log.Fatalf("Failed to connect NATS publisher: %v", err)
	}
	defer pub.Close()

	sub, err := events.NewNATSSubscriber(*natsURL)
	if err != nil {
		log.Fatalf("Failed to connect NATS subscriber: %v", err)
	}
	defer sub.Close()

	detector := detect.NewHTTPDetector(*detectURL, cfg.GetDetectTimeout())

	pipe, err := pipeline.New(detector, cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	pipe.Persistence = store
	pipe.Publisher = events.NewPersonPublisher(pub)

	frames, unsubscribe, err := sub.Subscribe(events.FramesSubject(*sensorID))
	if err != nil {
		log.Fatalf("Failed to subscribe to frames: %v", err)
	}
	defer unsubscribe()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Frame loop. Frames are processed one at a time in arrival order;
	// the subscriber drops frames when processing falls behind.
	wg.Add(1)
	go func() {
		defer wg.Done()
		var lastFrame time.Time
		minInterval := frameInterval(cfg.GetMaxFrameRate())
		for {
			select {
			case payload, ok := <-frames:
				if !ok {
					log.Print("frame subscription closed")
					return
				}
				if minInterval > 0 && time.Since(lastFrame) < minInterval {
					continue
				}
				lastFrame = time.Now()

				b, err := frame.UnmarshalBundle(payload)
				if err != nil {
					log.Printf("discarding malformed frame: %v", err)
					continue
				}
				pipe.ProcessFrame(ctx, b)
			case <-ctx.Done():
				log.Print("frame loop terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		srv := NewServer(cfg, store)
		server := &http.Server{
			Addr:    *listen,
			Handler: srv.ServeMux(),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// frameInterval converts a frames-per-second cap to a minimum spacing
// between processed frames. Zero means no cap.
func frameInterval(maxRate float64) time.Duration {
	if maxRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / maxRate)
}
