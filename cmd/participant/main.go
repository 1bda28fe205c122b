// Command participant runs one MPC signing participant: it loads the
// decrypted key-share document, connects to the gateway's room bus and
// serves the SignTx RPC.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ruocuoguo23/wallet-mpc/internal/bus"
	"github.com/ruocuoguo23/wallet-mpc/pkg/keyshare"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
	"github.com/ruocuoguo23/wallet-mpc/pkg/sigserv"
)

type config struct {
	// ListenAddr is the RPC bind address, e.g. ":9000".
	ListenAddr string `json:"listenAddr"`
	// GatewayURL is the room bus root, e.g. "http://gateway:8000".
	GatewayURL string `json:"gatewayUrl"`
	// PeerURL is the remote participant; empty for a pure responder.
	PeerURL string `json:"peerUrl"`
	// ShareFile is the decrypted share document path.
	ShareFile string `json:"shareFile"`
	// SessionTimeoutSeconds bounds one signing session.
	SessionTimeoutSeconds int `json:"sessionTimeoutSeconds"`
	// LogLevel is a logrus level name.
	LogLevel string `json:"logLevel"`
}

func loadConfig(path string) (*config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg := &config{
		ListenAddr:            ":9000",
		SessionTimeoutSeconds: 30,
		LogLevel:              "info",
	}
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "config/participant.json", "path to the participant config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	store, err := keyshare.LoadStoreFile(cfg.ShareFile)
	if err != nil {
		// a corrupt share document refuses to start
		log.WithError(err).Fatal("failed to load share store")
	}
	log.WithField("accounts", store.Len()).Info("share store loaded")

	var peer *sigserv.PeerClient
	if cfg.PeerURL != "" {
		peer = &sigserv.PeerClient{BaseURL: cfg.PeerURL}
	}

	pl := pool.NewPool(0)
	defer pl.TearDown()

	svc, err := sigserv.NewService(sigserv.Config{
		Store:          store,
		Dialer:         &bus.HTTPDialer{BaseURL: cfg.GatewayURL},
		Peer:           peer,
		SessionTimeout: time.Duration(cfg.SessionTimeoutSeconds) * time.Second,
		Pool:           pl,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build signing service")
	}

	log.WithFields(log.Fields{
		"listen":  cfg.ListenAddr,
		"gateway": cfg.GatewayURL,
	}).Info("participant starting")
	if err := http.ListenAndServe(cfg.ListenAddr, sigserv.Handler(svc)); err != nil {
		log.WithError(err).Fatal("participant server failed")
	}
}
