// Command gateway hosts the session room bus and proxies sign
// requests to the upstream participant, so external callers need a
// single endpoint.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ruocuoguo23/wallet-mpc/internal/bus"
	"github.com/ruocuoguo23/wallet-mpc/pkg/sigserv"
)

type config struct {
	// ListenAddr is the bind address, e.g. ":8000".
	ListenAddr string `json:"listenAddr"`
	// UpstreamURL is the participant the sign surface proxies to;
	// empty serves the bus only.
	UpstreamURL string `json:"upstreamUrl"`
	// RoomHistoryLimit bounds each room's replay window.
	RoomHistoryLimit int `json:"roomHistoryLimit"`
	// RoomIdleMinutes is the reap window for abandoned rooms.
	RoomIdleMinutes int `json:"roomIdleMinutes"`
	// LogLevel is a logrus level name.
	LogLevel string `json:"logLevel"`
}

func loadConfig(path string) (*config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg := &config{ListenAddr: ":8000", LogLevel: "info"}
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "config/gateway.json", "path to the gateway config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	registry := bus.NewRegistry(bus.Options{
		HistoryLimit: cfg.RoomHistoryLimit,
		IdleWindow:   time.Duration(cfg.RoomIdleMinutes) * time.Minute,
	})
	defer registry.Shutdown()

	mux := http.NewServeMux()
	busServer := bus.NewServer(registry)
	mux.Handle("/rooms/", busServer)
	mux.Handle("/metrics", busServer)
	if cfg.UpstreamURL != "" {
		mux.Handle("/v1/sign_tx", sigserv.ProxyHandler(&sigserv.PeerClient{BaseURL: cfg.UpstreamURL}))
	}

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	go func() {
		log.WithField("listen", cfg.ListenAddr).Info("gateway starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("gateway server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}
