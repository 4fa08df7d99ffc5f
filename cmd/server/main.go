package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"freightgrid.dev/internal/persistence/ledgerdb"
	persistlog "freightgrid.dev/internal/persistence/log"
	"freightgrid.dev/internal/sim/catalogs"
	"freightgrid.dev/internal/sim/tuning"
	"freightgrid.dev/internal/sim/world"
	"freightgrid.dev/internal/transport/ws"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		configDir    = flag.String("configs", "./configs", "config directory")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		seed         = flag.Int64("seed", 1337, "world seed")
		width        = flag.Int("width", 64, "map width in tiles")
		height       = flag.Int("height", 64, "map height in tiles")
		tuningPath   = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		scenarioPath = flag.String("scenario", "", "path to scenario.yaml (optional)")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite ledger index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	w, err := world.New(world.WorldConfig{
		Width:      *width,
		Height:     *height,
		Seed:       *seed,
		TickRateHz: tune.TickRateHz,
	}, tune, cats)
	if err != nil {
		logger.Fatalf("create world: %v", err)
	}

	if sp := strings.TrimSpace(*scenarioPath); sp != "" {
		sc, err := world.LoadScenario(sp)
		if err != nil {
			logger.Fatalf("load scenario: %v", err)
		}
		if err := w.ApplyScenario(sc); err != nil {
			logger.Fatalf("apply scenario: %v", err)
		}
		logger.Printf("scenario %q applied", sc.Name)
	}

	_ = os.MkdirAll(*dataDir, 0o755)
	tickLog := persistlog.NewTickLogger(*dataDir)
	defer tickLog.Close()
	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer auditLog.Close()

	var txnSink world.TransactionSink
	if *disableDB {
		txnLog := persistlog.NewTransactionLogger(*dataDir)
		defer txnLog.Close()
		txnSink = txnLog
	} else {
		ledger, err := ledgerdb.Open(filepath.Join(*dataDir, "ledger.db"))
		if err != nil {
			logger.Fatalf("open ledger: %v", err)
		}
		defer ledger.Close()
		if err := ledger.UpsertCatalogs(cats); err != nil {
			logger.Fatalf("record catalogs: %v", err)
		}
		txnSink = ledger
	}
	w.SetSinks(tickLog, auditLog, txnSink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(w.Metrics())
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s (seed=%d, %dx%d tiles, %d Hz)",
			*addr, *seed, *width, *height, tune.TickRateHz)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Printf("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
}
