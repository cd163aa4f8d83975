package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "aethernexus.forge/internal/persistence/log"
	"aethernexus.forge/internal/persistence/savedb"
	"aethernexus.forge/internal/persistence/snapshot"
	"aethernexus.forge/internal/sim/catalogs"
	"aethernexus.forge/internal/sim/forge"
	"aethernexus.forge/internal/sim/tuning"
	"aethernexus.forge/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.String("seed", "forge-1", "session seed (used only when starting fresh)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite save/event index")

		savePath   = flag.String("save", "", "path to save file to load (optional)")
		loadLatest = flag.Bool("load_latest_save", true, "load latest save from data dir if present (when -save is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Default()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	var idx *savedb.SQLiteIndex
	if !*disableDB {
		idx, err = savedb.Open(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open save index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats); err != nil {
			logger.Printf("save index: upsert catalogs: %v", err)
		}
	}

	saveToLoad := strings.TrimSpace(*savePath)
	if saveToLoad == "" && *loadLatest {
		saveToLoad = latestSave(*dataDir)
	}

	var sess *forge.Session
	if saveToLoad != "" {
		snap, digest, err := snapshot.Read(saveToLoad)
		if err != nil {
			logger.Fatalf("read save: %v", err)
		}
		sess, err = forge.Restore(&tune, cats, snap)
		if err != nil {
			logger.Fatalf("restore save: %v", err)
		}
		if digest != "" && sess.StateDigest() != digest {
			logger.Printf("save digest mismatch (file=%s); state was normalized on restore", filepath.Base(saveToLoad))
		}
		logger.Printf("resumed from save=%s tick=%d level=%d", filepath.Base(saveToLoad), sess.Tick, sess.Level)
	} else {
		sess = forge.NewSession(&tune, cats, *seed)
		logger.Printf("fresh session seed=%q", *seed)
	}

	ctx, cancel := signalContext()
	defer cancel()

	eventLog := persistlog.NewEventLogger(*dataDir)
	defer eventLog.Close()

	// Save writer: the engine hands exported snapshots over a channel so
	// disk and sqlite work never happens on the sim goroutine.
	type saveJob struct {
		snap   *snapshot.SessionV1
		digest string
	}
	saveCh := make(chan saveJob, 2)
	engine := forge.NewEngine(sess, func(snap *snapshot.SessionV1, digest string) {
		select {
		case saveCh <- saveJob{snap: snap, digest: digest}:
		default:
		}
	})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-saveCh:
				dir := filepath.Join(*dataDir, "saves")
				_ = os.MkdirAll(dir, 0o755)
				path := filepath.Join(dir, fmt.Sprintf("%d.save.zst", job.snap.Tick))
				if err := snapshot.Write(path, job.snap, job.digest); err != nil {
					logger.Printf("save write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSave(path, job.digest, job.snap.Seed, job.snap.Tick,
						job.snap.Level, float64(job.snap.DCoin)/10000, job.snap.RP)
				}
			}
		}
	}()

	// Event ledger tap.
	events, cancelSub := engine.Subscribe()
	defer cancelSub()
	go func() {
		for ev := range events {
			if err := eventLog.WriteEvent(ev); err != nil {
				logger.Printf("event log: %v", err)
			}
			if idx != nil {
				_ = idx.WriteEvent(ev)
			}
		}
	}()

	go func() {
		if err := engine.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	wsServer := ws.NewServer(engine, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", wsServer.Handler())

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSave(dataDir string) string {
	dir := filepath.Join(dataDir, "saves")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".save.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".save.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			best = filepath.Join(dir, name)
			bestTick = tick
		}
	}
	return best
}
