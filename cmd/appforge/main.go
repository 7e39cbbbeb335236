package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"appforge/internal/artifactstore"
	"appforge/internal/builder"
	"appforge/internal/events"
	"appforge/internal/llm"
	"appforge/internal/orchestrator"
	"appforge/internal/runstore"
)

func main() {
	goal := flag.String("goal", "", "build goal to orchestrate")
	offline := flag.Bool("offline", false, "use the deterministic backend instead of an LLM")
	model := flag.String("model", "gemini-2.5-flash", "Gemini model id")
	outDir := flag.String("out", "out", "artifact output directory (ignored when S3 is configured)")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-task timeout")
	watch := flag.String("watch", "", "address for the run event websocket server (e.g. :8080)")
	taskType := flag.String("task-type", "", "goal type template (default build_saas_app)")
	flag.Parse()
	if strings.TrimSpace(*goal) == "" {
		log.Fatal("--goal is required")
	}

	_ = godotenv.Load()
	ctx := context.Background()

	backend, closeBackend, err := buildBackend(ctx, *offline, *model)
	if err != nil {
		log.Fatal(err)
	}
	defer closeBackend()

	store, err := buildArtifactStore(*outDir)
	if err != nil {
		log.Fatal(err)
	}

	runs, err := runstore.NewFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()
	if *watch != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/watch", events.WatchHandler(hub))
		go func() {
			log.Printf("event server listening on %s", *watch)
			if err := http.ListenAndServe(*watch, mux); err != nil {
				log.Printf("event server: %v", err)
			}
		}()
	}

	o := &orchestrator.Orchestrator{
		Builder:     backend,
		GoalType:    *taskType,
		TaskTimeout: *timeout,
		Emitter:     hubEmitter(hub),
		Artifacts:   store,
		Runs:        runs,
	}

	sol, err := o.Solve(ctx, *goal)
	if err != nil {
		log.Fatal(err)
	}

	b, _ := json.MarshalIndent(sol, "", "  ")
	os.Stdout.Write(append(b, '\n'))

	if sol.Success {
		log.Printf("run %s completed", sol.RunID)
		return
	}
	log.Printf("run %s failed: %s", sol.RunID, sol.Reason)
	os.Exit(1)
}

func buildBackend(ctx context.Context, offline bool, model string) (builder.Interface, func(), error) {
	if offline {
		return &builder.Static{}, func() {}, nil
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Fatal("GEMINI_API_KEY is not set (use --offline for the deterministic backend)")
	}
	gemini, err := llm.NewGeminiClient(ctx, model)
	if err != nil {
		return nil, nil, err
	}
	client := llm.Wrap(gemini, llm.Retry(3, 500*time.Millisecond))
	return &builder.LLM{Client: client, ScaffoldParallel: 4}, func() { _ = client.Close() }, nil
}

// buildArtifactStore prefers S3 when the environment configures it,
// falling back to a per-run directory tree on disk. Either origin is
// wrapped in the read-through cache.
func buildArtifactStore(outDir string) (artifactstore.Store, error) {
	var origin artifactstore.Store
	if endpoint := strings.TrimSpace(os.Getenv("APPFORGE_S3_ENDPOINT")); endpoint != "" {
		s3, err := artifactstore.NewS3Store(artifactstore.S3Config{
			Endpoint:  endpoint,
			Region:    os.Getenv("APPFORGE_S3_REGION"),
			AccessKey: os.Getenv("APPFORGE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("APPFORGE_S3_SECRET_KEY"),
			Bucket:    os.Getenv("APPFORGE_S3_BUCKET"),
			UseSSL:    os.Getenv("APPFORGE_S3_USE_SSL") == "true",
		})
		if err != nil {
			return nil, err
		}
		origin = s3
	} else {
		origin = artifactstore.NewDiskStore(filepath.Clean(outDir))
	}
	return artifactstore.NewCachedStore(origin, artifactstore.DefaultCacheConfig()), nil
}

// hubEmitter adapts the hub for a CLI run: allocate the run's channel
// on the first event and schedule cleanup when the run completes, so
// a watcher attaching mid-run still sees the tail.
func hubEmitter(hub *events.Hub) events.Emitter {
	return events.EmitterFunc(func(ev events.Event) {
		if ev.Type == events.RunStarted {
			hub.Allocate(ev.RunID, 256)
		}
		hub.Emit(ev)
		if ev.Type == events.RunCompleted {
			hub.ScheduleCleanup(ev.RunID)
		}
	})
}
