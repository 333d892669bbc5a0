package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Settings is the settings provider for a partition processor.
type Settings struct {
	NatsURL               string        `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	JetStreamDomain       string        `env:"JETSTREAM_DOMAIN"`
	PartitionID           int32         `env:"ZEEBE_PARTITION_ID" envDefault:"1"`
	PartitionCount        int32         `env:"ZEEBE_PARTITION_COUNT" envDefault:"1"`
	Topic                 string        `env:"ZEEBE_TOPIC" envDefault:"default-topic"`
	PayloadCacheSize      int           `env:"ZEEBE_PAYLOAD_CACHE_SIZE" envDefault:"1000"`
	WorkflowCacheSize     int64         `env:"ZEEBE_WORKFLOW_CACHE_SIZE" envDefault:"1000"`
	CorrelationKeyFailure string        `env:"ZEEBE_CORRELATION_KEY_FAILURE" envDefault:"incident"`
	LookupTimeout         time.Duration `env:"ZEEBE_LOOKUP_TIMEOUT" envDefault:"10s"`
	EphemeralStorage      bool          `env:"ZEEBE_EPHEMERAL_STORAGE" envDefault:"false"`
	LogLevel              string        `env:"ZEEBE_LOG_LEVEL" envDefault:"info"`
	LogHandler            string        `env:"ZEEBE_LOG_HANDLER" envDefault:"text"`
	TelemetryEndpoint     string        `env:"ZEEBE_TELEMETRY_ENDPOINT"`
	ShowSplash            bool          `env:"ZEEBE_SHOW_SPLASH" envDefault:"true"`
}

// GetEnvironment pulls the active settings into a settings struct.
func GetEnvironment() (*Settings, error) {
	cfg := &Settings{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment settings: %w", err)
	}
	if cfg.PartitionCount < 1 {
		return nil, fmt.Errorf("parse environment settings: partition count %d must be positive", cfg.PartitionCount)
	}
	if cfg.PartitionID < 1 || cfg.PartitionID > cfg.PartitionCount {
		return nil, fmt.Errorf("parse environment settings: partition id %d is outside 1..%d", cfg.PartitionID, cfg.PartitionCount)
	}
	return cfg, nil
}

// Partitions lists the ids of every partition of the cluster.
func (s *Settings) Partitions() []int32 {
	ret := make([]int32, 0, s.PartitionCount)
	for i := int32(1); i <= s.PartitionCount; i++ {
		ret = append(ret, i)
	}
	return ret
}
