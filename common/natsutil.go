package common

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	version2 "github.com/hashicorp/go-version"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rtenhove/zeebe/common/logx"
	version3 "github.com/rtenhove/zeebe/common/version"
)

// NatsConn is the trimmed down NATS Connection interface that only encompasses the methods used by the processor
type NatsConn interface {
	Publish(subj string, bytes []byte) error
	PublishMsg(msg *nats.Msg) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	QueueSubscribe(subj string, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error)
}

const jsErrCodeStreamWrongLastSequence = 10071

// Save saves a value to a key value store
func Save(ctx context.Context, kv jetstream.KeyValue, k string, v []byte) error {
	log := logx.FromContext(ctx)
	if log.Enabled(ctx, slog.LevelDebug) {
		log.Debug("Set KV", slog.String("bucket", kv.Bucket()), slog.String("key", k), slog.Int("len", len(v)))
	}
	if _, err := kv.Put(ctx, k, v); err != nil {
		return fmt.Errorf("save kv: %w", err)
	}
	return nil
}

// Load loads a value from a key value store
func Load(ctx context.Context, kv jetstream.KeyValue, k string) ([]byte, error) {
	log := logx.FromContext(ctx)
	if log.Enabled(ctx, slog.LevelDebug) {
		log.Debug("Get KV", slog.String("bucket", kv.Bucket()), slog.String("key", k))
	}
	b, err := kv.Get(ctx, k)
	if err == nil {
		return b.Value(), nil
	}
	return nil, fmt.Errorf("load value from KV: %w", err)
}

// Create stores a value only if the key does not exist yet. It returns the revision of the new entry.
func Create(ctx context.Context, kv jetstream.KeyValue, k string, v []byte) (uint64, error) {
	rev, err := kv.Create(ctx, k, v)
	if err != nil {
		return 0, fmt.Errorf("create kv %s: %w", k, err)
	}
	return rev, nil
}

// UpdateKV applies updateFn to the current value of k and stores the result, retrying with jitter while other writers race it.
// A missing key is passed to updateFn as nil.
func UpdateKV(ctx context.Context, kv jetstream.KeyValue, k string, updateFn func(v []byte) ([]byte, error)) error {
	for {
		var (
			current []byte
			rev     uint64
		)
		entry, err := kv.Get(ctx, k)
		if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return fmt.Errorf("get value to update: %w", err)
		}
		if err == nil {
			current, rev = entry.Value(), entry.Revision()
		}
		uv, err := updateFn(current)
		if err != nil {
			return fmt.Errorf("update function: %w", err)
		}
		if rev == 0 {
			_, err = kv.Create(ctx, k, uv)
		} else {
			_, err = kv.Update(ctx, k, uv, rev)
		}
		if err != nil {
			testErr := &jetstream.APIError{}
			if errors.Is(err, jetstream.ErrKeyExists) || (errors.As(err, &testErr) && testErr.ErrorCode == jsErrCodeStreamWrongLastSequence) {
				if err := jitter(ctx); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("update kv: %w", err)
		}
		return nil
	}
}

func jitter(ctx context.Context) error {
	maxJitter := big.NewInt(5000)
	dur, err := rand.Int(rand.Reader, maxJitter)
	if err != nil {
		return fmt.Errorf("read random: %w", err)
	}
	select {
	case <-time.After(time.Duration(dur.Int64())):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("update kv: %w", ctx.Err())
	}
}

var lockVal = make([]byte, 0)

// Lock ensures a lock on a given ID, it returns true if a lock was granted.
func Lock(ctx context.Context, kv jetstream.KeyValue, lockID string) (bool, error) {
	_, err := kv.Create(ctx, lockID, lockVal)
	if errors.Is(err, jetstream.ErrKeyExists) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("querying lock: %w", err)
	}
	return true, nil
}

// ExtendLock extends the lock past its stale time.
func ExtendLock(ctx context.Context, kv jetstream.KeyValue, lockID string) error {
	v, err := kv.Get(ctx, lockID)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("hold lock found no lock: %w", err)
	} else if err != nil {
		return fmt.Errorf("querying lock: %w", err)
	}
	rev := v.Revision()
	_, err = kv.Update(ctx, lockID, lockVal, rev)
	testErr := &jetstream.APIError{}
	if errors.As(err, &testErr) {
		if testErr.ErrorCode == jsErrCodeStreamWrongLastSequence {
			return nil
		}
		return fmt.Errorf("extend lock: %w", err)
	} else if err != nil {
		return fmt.Errorf("extend lock: %w", err)
	}
	return nil
}

// UnLock closes an existing lock.
func UnLock(ctx context.Context, kv jetstream.KeyValue, lockID string) error {
	_, err := kv.Get(ctx, lockID)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("unlocking found no lock: %w", err)
	} else if err != nil {
		return fmt.Errorf("unlocking get lock: %w", err)
	}
	if err := kv.Delete(ctx, lockID); err != nil {
		return fmt.Errorf("unlocking: %w", err)
	}
	return nil
}

// CheckVersion checks the NATS server version against the minimum supported version
func CheckVersion(ctx context.Context, nc *nats.Conn) error {
	nvStr := nc.ConnectedServerVersion()
	nv, err := version2.NewVersion(nvStr)
	if err != nil {
		return fmt.Errorf("parse nats version: %w", err)
	}
	if nv.LessThan(version3.NatsVersion) {
		return fmt.Errorf("nats version %s not supported.  The minimum supported version is %s", nvStr, version3.NatsVersion)
	}
	return nil
}
