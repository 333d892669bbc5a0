package server

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

//go:embed test-nats-config.conf
var natsConfig []byte

// NatsServer is a wrapper around the nats lib server so that its lifecycle can be defined
// in terms of the Server interface.
type NatsServer struct {
	nsvr     *server.Server
	storeDir string
}

// NewNatsServer starts an in process nats server with JetStream enabled.
// A port of -1 picks a free port.
func NewNatsServer(natsHost string, natsPort int) (*NatsServer, error) {
	n := &NatsServer{}
	if err := n.listen(natsHost, natsPort); err != nil {
		return nil, err
	}
	return n, nil
}

func (natserver *NatsServer) listen(natsHost string, natsPort int) error {
	dir, err := os.MkdirTemp("", "zeebe-nats-")
	if err != nil {
		return fmt.Errorf("create nats store dir: %w", err)
	}
	natsConfigPath := filepath.Join(dir, "test-nats-config.conf")
	if err := os.WriteFile(natsConfigPath, natsConfig, 0644); err != nil {
		return fmt.Errorf("failed writing nats config %w", err)
	}
	natsOptions, err := server.ProcessConfigFile(natsConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load conf with err %w", err)
	}
	natsOptions.Host = natsHost
	natsOptions.Port = natsPort
	natsOptions.StoreDir = filepath.Join(dir, "jetstream")

	nsvr, err := server.NewServer(natsOptions)
	if err != nil {
		return fmt.Errorf("create a new server instance: %w", err)
	}

	go nsvr.Start()
	if !nsvr.ReadyForConnections(5 * time.Second) {
		nsvr.Shutdown()
		return fmt.Errorf("start NATS: not ready for connections")
	}
	slog.Info("NATS started", slog.String("url", nsvr.ClientURL()))

	natserver.nsvr = nsvr
	natserver.storeDir = dir
	return nil
}

// URL returns the client URL of the server.
func (natserver *NatsServer) URL() string {
	return natserver.nsvr.ClientURL()
}

// Shutdown shuts down an in process nats server and removes its storage.
func (natserver *NatsServer) Shutdown() {
	natserver.nsvr.Shutdown()
	natserver.nsvr.WaitForShutdown()
	if err := os.RemoveAll(natserver.storeDir); err != nil {
		slog.Warn("remove nats store dir", "error", err)
	}
}
