package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := GetEnvironment()
	require.NoError(t, err)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NatsURL)
	assert.Equal(t, int32(1), cfg.PartitionID)
	assert.Equal(t, "incident", cfg.CorrelationKeyFailure)
	assert.Equal(t, 10*time.Second, cfg.LookupTimeout)
	assert.Equal(t, []int32{1}, cfg.Partitions())
}

func TestOverrides(t *testing.T) {
	t.Setenv("ZEEBE_PARTITION_ID", "2")
	t.Setenv("ZEEBE_PARTITION_COUNT", "3")
	t.Setenv("ZEEBE_LOOKUP_TIMEOUT", "250ms")
	t.Setenv("ZEEBE_EPHEMERAL_STORAGE", "true")
	cfg, err := GetEnvironment()
	require.NoError(t, err)
	assert.Equal(t, int32(2), cfg.PartitionID)
	assert.Equal(t, 250*time.Millisecond, cfg.LookupTimeout)
	assert.True(t, cfg.EphemeralStorage)
	assert.Equal(t, []int32{1, 2, 3}, cfg.Partitions())
}

func TestPartitionOutOfRange(t *testing.T) {
	t.Setenv("ZEEBE_PARTITION_ID", "4")
	t.Setenv("ZEEBE_PARTITION_COUNT", "3")
	_, err := GetEnvironment()
	assert.ErrorContains(t, err, "partition id 4 is outside 1..3")
}

func TestBadDuration(t *testing.T) {
	t.Setenv("ZEEBE_LOOKUP_TIMEOUT", "soon")
	_, err := GetEnvironment()
	assert.Error(t, err)
}
