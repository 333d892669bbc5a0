package deployment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/rtenhove/zeebe/common"
	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/common/telemetry"
	"github.com/rtenhove/zeebe/server/errors/keys"
	"github.com/rtenhove/zeebe/server/messages"
	"github.com/vmihailenco/msgpack/v5"
)

// Responder answers deployment lookups from the partitions.
type Responder struct {
	nc   common.NatsConn
	repo *Repository
	sub  *nats.Subscription
}

// NewResponder creates a responder for a repository.
func NewResponder(nc common.NatsConn, repo *Repository) *Responder {
	return &Responder{nc: nc, repo: repo}
}

// Listen subscribes to lookup requests. Responders share a queue group so that any number of them can run.
func (s *Responder) Listen(ctx context.Context) error {
	sub, err := s.nc.QueueSubscribe(messages.DeploymentLookup, messages.DeploymentLookupQueue, func(msg *nats.Msg) {
		mctx, log := logx.NatsMessageLoggingEntrypoint(ctx, "deployment", msg.Header)
		mctx = telemetry.NatsMsgToCtx(mctx, msg)
		res, err := s.answer(mctx, msg.Data)
		if err != nil {
			log.Error("answer deployment lookup", "error", err)
			if err := msg.Respond(nil); err != nil {
				log.Error("respond", "error", err)
			}
			return
		}
		if err := msg.Respond(res); err != nil {
			log.Error("respond", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", messages.DeploymentLookup, err)
	}
	s.sub = sub
	return nil
}

func (s *Responder) answer(ctx context.Context, b []byte) ([]byte, error) {
	req := &Request{}
	if err := msgpack.Unmarshal(b, req); err != nil {
		return nil, fmt.Errorf("decode lookup request: %w", err)
	}
	res, err := s.repo.Lookup(ctx, *req)
	if err != nil {
		return nil, err
	}
	log := logx.FromContext(ctx)
	if log.Enabled(ctx, slog.LevelDebug) {
		log.Debug("deployment lookup", slog.Int64(keys.WorkflowKey, req.Key), slog.String(keys.ProcessID, req.BpmnProcessID), slog.Int(keys.Version, int(req.Version)), slog.Bool("found", res.Found))
	}
	ret, err := msgpack.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode lookup response: %w", err)
	}
	return ret, nil
}

// Shutdown stops answering lookups.
func (s *Responder) Shutdown() error {
	if s.sub == nil {
		return nil
	}
	if err := s.sub.Drain(); err != nil {
		return fmt.Errorf("drain lookup subscription: %w", err)
	}
	return nil
}
