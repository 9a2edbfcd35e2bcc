package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamkeys/position-engine/internal/bridge"
	"github.com/streamkeys/position-engine/internal/browser"
	"github.com/streamkeys/position-engine/internal/config"
	"github.com/streamkeys/position-engine/internal/db"
	"github.com/streamkeys/position-engine/internal/sse"
)

func main() {
	// ── Flags ───────────────────────────────────────────
	addr := flag.String("addr", ":8091", "HTTP listen address")
	dbPath := flag.String("db", "position-engine.db", "SQLite database path")
	debug := flag.Bool("debug", false, "Enable debug logging")
	noBrowser := flag.Bool("no-browser", false, "Do not open the debug dashboard in a browser on startup")
	flag.Parse()

	// ── Logger ──────────────────────────────────────────
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println("\x1b[1mposition-engine\x1b[0m — playback-time observer daemon")
	} else {
		fmt.Println("position-engine — playback-time observer daemon")
	}

	// ── Database ────────────────────────────────────────
	database, err := db.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// ── Config ──────────────────────────────────────────
	cfg := config.New(database)

	// ── SSE Hub ─────────────────────────────────────────
	hub := sse.NewHub()
	go hub.Run()

	// ── Bridge ──────────────────────────────────────────
	br := bridge.New(cfg, hub)

	// ── Routes ──────────────────────────────────────────
	mux := http.NewServeMux()

	// SSE – extension popup subscribes here for history-updated,
	// restore-outcome and seek-command events.
	mux.HandleFunc("GET /events", br.HandleSSE)

	// Session lifecycle + telemetry, reported by the content script.
	mux.HandleFunc("POST /api/register", br.HandleRegister)
	mux.HandleFunc("POST /api/telemetry", br.HandleTelemetry)

	// Keyboard dispatch + manual save + restore dialog, relayed from the
	// (out-of-scope) keyboard layer.
	mux.HandleFunc("POST /api/keyboard-seek", br.HandleMarkKeyboardSeek)
	mux.HandleFunc("POST /api/save", br.HandleSaveManualPosition)
	mux.HandleFunc("POST /api/dialog/open", br.HandleOpenDialog)
	mux.HandleFunc("POST /api/dialog/close", br.HandleCloseDialog)
	mux.HandleFunc("POST /api/dialog/key", br.HandleDialogKeys)

	// Tunable configuration.
	mux.HandleFunc("GET /api/config", br.HandleGetConfig)
	mux.HandleFunc("POST /api/config", br.HandleSetConfig)

	// Debug dashboard + metrics.
	mux.HandleFunc("GET /debug", br.HandleDebug)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Graceful shutdown channel (created early so /api/shutdown can use it)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// Shutdown endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"shutting down"}`))
		go func() {
			time.Sleep(500 * time.Millisecond)
			done <- os.Interrupt
		}()
	})

	// ── HTTP Server ────────────────────────────────────────
	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs unlimited write time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── Auto-open debug dashboard ───────────────────────────
	if !*noBrowser && !*debug {
		host, port, _ := net.SplitHostPort(*addr)
		if host == "" {
			host = "localhost"
		}
		dashURL := fmt.Sprintf("http://%s/debug", net.JoinHostPort(host, port))
		slog.Info("opening debug dashboard in browser", "url", dashURL)
		browser.Open(dashURL)
	}

	<-done
	slog.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Close()
	_ = srv.Shutdown(ctx)
}
