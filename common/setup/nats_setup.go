package setup

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-version"
	"github.com/nats-io/nats.go/jetstream"
	zeebeVersion "github.com/rtenhove/zeebe/common/version"
)

// VersionMetadataKey is the metadata key stamped onto every JetStream object the processor creates.
const VersionMetadataKey = "zeebe_version"

// NatsConfig is the NATS configuration format
type NatsConfig struct {
	Streams  []NatsStream   `json:"streams"`
	KeyValue []NatsKeyValue `json:"buckets"`
}

// NatsKeyValue holds information about a NATS Key-Value store (bucket)
type NatsKeyValue struct {
	Config jetstream.KeyValueConfig `json:"nats-config"`
}

// NatsStream holds information about a NATS Stream.
// A stream marked per-partition is a template: its name and subjects are formatted with each partition id.
type NatsStream struct {
	Config       jetstream.StreamConfig `json:"nats-config"`
	PerPartition bool                   `json:"per-partition"`
}

// Parse reads a YAML NATS configuration.
func Parse(config string) (*NatsConfig, error) {
	cfg := &NatsConfig{}
	if err := yaml.Unmarshal([]byte(config), cfg); err != nil {
		return nil, fmt.Errorf("parse nats-config.yaml: %w", err)
	}
	return cfg, nil
}

// Nats sets up nats server objects for the given partitions.
func Nats(ctx context.Context, js jetstream.JetStream, storageType jetstream.StorageType, config string, partitions []int32) error {
	cfg, err := Parse(config)
	if err != nil {
		return err
	}

	for _, stream := range cfg.Streams {
		if !stream.PerPartition {
			if err := EnsureStream(ctx, js, stream.Config, storageType); err != nil {
				return fmt.Errorf("ensure stream: %w", err)
			}
			continue
		}
		for _, p := range partitions {
			if err := EnsureStream(ctx, js, ForPartition(stream.Config, p), storageType); err != nil {
				return fmt.Errorf("ensure partition %d stream: %w", p, err)
			}
		}
	}

	return EnsureBuckets(ctx, cfg, js, storageType)
}

// ForPartition formats a per-partition stream template for one partition.
func ForPartition(cfg jetstream.StreamConfig, partition int32) jetstream.StreamConfig {
	cfg.Name = fmt.Sprintf(cfg.Name, partition)
	subjects := make([]string, 0, len(cfg.Subjects))
	for _, s := range cfg.Subjects {
		if strings.Contains(s, "%d") {
			s = fmt.Sprintf(s, partition)
		}
		subjects = append(subjects, s)
	}
	cfg.Subjects = subjects
	return cfg
}

// EnsureStream creates a new stream stamping the current semantic version number into its metadata.  If the stream exists and has a previous version, it is updated.
func EnsureStream(ctx context.Context, js jetstream.JetStream, streamConfig jetstream.StreamConfig, storageType jetstream.StorageType) error {
	streamConfig.Storage = storageType
	var exists bool
	var streamInfo *jetstream.StreamInfo
	stream, serr := js.Stream(ctx, streamConfig.Name)
	if errors.Is(serr, jetstream.ErrStreamNotFound) {
		// This is fine
	} else if serr != nil {
		return fmt.Errorf("get stream: %w", serr)
	} else {
		exists = true
		var err error
		streamInfo, err = stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("get stream info: %w", err)
		}
	}
	if streamConfig.Metadata == nil {
		streamConfig.Metadata = make(map[string]string)
	}
	streamConfig.Metadata[VersionMetadataKey] = zeebeVersion.Version
	if !exists {
		if _, err := js.CreateStream(ctx, streamConfig); err != nil {
			return fmt.Errorf("create stream %s: %w", streamConfig.Name, err)
		}
		return nil
	}
	if requiresUpgrade(streamInfo.Config.Metadata[VersionMetadataKey], zeebeVersion.Version) {
		if _, err := js.UpdateStream(ctx, streamConfig); err != nil {
			return fmt.Errorf("ensure stream updating stream configuration: %w", err)
		}
	}
	return nil
}

// EnsureBuckets creates a list of buckets if they do not exist
func EnsureBuckets(ctx context.Context, cfg *NatsConfig, js jetstream.JetStream, storageType jetstream.StorageType) error {
	for i := range cfg.KeyValue {
		if err := EnsureBucket(ctx, js, cfg.KeyValue[i].Config, storageType); err != nil {
			return fmt.Errorf("ensure key-value: %w", err)
		}
	}
	return nil
}

// EnsureBucket creates a bucket if it does not exist
func EnsureBucket(ctx context.Context, js jetstream.JetStream, cfg jetstream.KeyValueConfig, storageType jetstream.StorageType) error {
	cfg.Storage = storageType

	if _, err := js.KeyValue(ctx, cfg.Bucket); errors.Is(err, jetstream.ErrBucketNotFound) {
		if _, err := js.CreateKeyValue(ctx, cfg); err != nil {
			return fmt.Errorf("ensure buckets: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("obtain bucket: %w", err)
	}
	return nil
}

// upgradeExpr is the version check regex
var upgradeExpr = regexp.MustCompilePOSIX(`([0-9])*\.([0-9])*\.([0-9])*$`)

// requiresUpgrade compares the version stamped on an existing JetStream object with the running version and returns true if an update is needed.
func requiresUpgrade(existing string, newVersion string) bool {
	v := upgradeExpr.FindString(existing)
	if len(v) == 0 {
		return true
	}
	v1, err := version.NewVersion(v)
	if err != nil {
		return true
	}
	v2, err := version.NewVersion(newVersion)
	if err != nil {
		return true
	}
	return v2.GreaterThan(v1)
}
