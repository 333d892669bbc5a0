package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rtenhove/zeebe/common"
	"github.com/rtenhove/zeebe/common/expression"
	"github.com/rtenhove/zeebe/common/logx"
	"github.com/rtenhove/zeebe/common/telemetry"
	version2 "github.com/rtenhove/zeebe/common/version"
	"github.com/rtenhove/zeebe/internal/server/workflow"
	"github.com/rtenhove/zeebe/server/errors/keys"
	"github.com/rtenhove/zeebe/server/server/option"
	"github.com/rtenhove/zeebe/server/services/deployment"
	"github.com/rtenhove/zeebe/server/services/logstream"
	"github.com/rtenhove/zeebe/server/services/natz"
	"github.com/rtenhove/zeebe/server/services/response"
	"github.com/rtenhove/zeebe/server/services/subscription"
)

// Server hosts the workflow instance processor of one partition together with the deployment lookup responder.
type Server struct {
	options          *option.ServerOptions
	ProcessorVersion *version.Version
	sig              chan os.Signal
	conn             *nats.Conn
	ns               *natz.NatsService
	responder        *deployment.Responder
	processor        *workflow.Processor
	telemetryDown    telemetry.ShutdownFunc
	cancel           context.CancelFunc
	lockWg           sync.WaitGroup
	shutdownOnce     sync.Once
	ready            bool
	readyMx          sync.Mutex
}

// New creates a new partition server.
func New(options ...option.Option) *Server {
	currentVer, err := version.NewVersion(version2.Version)
	if err != nil {
		panic(err)
	}
	opts := option.Defaults()
	for _, i := range options {
		i.Configure(opts)
	}
	s := &Server{
		options:          opts,
		ProcessorVersion: currentVer,
		sig:              make(chan os.Signal, 10),
	}

	if opts.ShowSplash {
		// Show some details about the newly configured server:
		fmt.Printf(`
	███████╗███████╗███████╗██████╗ ███████╗
	╚══███╔╝██╔════╝██╔════╝██╔══██╗██╔════╝
	  ███╔╝ █████╗  █████╗  ██████╔╝█████╗
	 ███╔╝  ██╔══╝  ██╔══╝  ██╔══██╗██╔══╝
	███████╗███████╗███████╗██████╔╝███████╗
	╚══════╝╚══════╝╚══════╝╚═════╝ ╚══════╝
	` + "\n")

		s.Details()
	}
	return s
}

// The following variables are set by -ldflags at build time.
var (
	VersionTag string
	CommitHash string
	BuildDate  string
)

// Details prints the details to stdout of the current server.
func (s *Server) Details() {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ZEEBE PARTITION CONFIGURATION", "VALUE"})
	t.Style().Options.SeparateRows = true
	t.AppendRows([]table.Row{
		{"Version                ", version2.Version},
		{"Build Time             ", BuildDate},
		{"Commit SHA             ", CommitHash},
		{"Nats URL               ", s.options.NatsUrl},
		{"Nats Client Version    ", version2.NatsVersion},
		{"Partition              ", fmt.Sprintf("%d of %d", s.options.PartitionID, s.options.PartitionCount)},
		{"Topic                  ", s.options.Topic},
		{"Payload Cache Size     ", s.options.PayloadCacheSize},
		{"Workflow Cache Size    ", s.options.WorkflowCacheSize},
		{"Correlation Key Failure", s.options.CorrelationKeyFailure},
		{"Lookup Timeout         ", s.options.LookupTimeout},
		{"Ephemeral Storage      ", s.options.EphemeralStorage},
		{"Telemetry Endpoint     ", s.options.TelemetryEndpoint},
	}, table.RowConfig{AutoMerge: false})
	t.AppendSeparator()
	t.Render()
}

// Listen starts the server and blocks until it receives SIGTERM or SIGINT, or the processor stops on an error.
func (s *Server) Listen() error {
	ctx := context.Background()
	if s.options.HandleSignals {
		// Capture SIGTERM and SIGINT
		signal.Notify(s.sig, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(s.sig)
	}
	if err := s.Start(ctx); err != nil {
		s.Shutdown()
		return err
	}
	select {
	case <-s.processor.Done():
		err := s.processor.Err()
		s.Shutdown()
		if err != nil {
			return fmt.Errorf("partition %d processor: %w", s.options.PartitionID, err)
		}
	case <-s.sig:
		s.Shutdown()
	}
	return nil
}

// Start connects to NATS, takes the partition lock and starts processing. It returns once the processor runs.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	ctx, log := logx.ContextWith(ctx, "server")

	down, err := telemetry.SetUp(ctx, s.options.TelemetryEndpoint, "zeebe")
	if err != nil {
		return fmt.Errorf("set up telemetry: %w", err)
	}
	s.telemetryDown = down

	nc, err := s.ConnectNats(ctx)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	ns, err := natz.NewNatsService(ctx, nc)
	if err != nil {
		return fmt.Errorf("create nats service: %w", err)
	}
	s.ns = ns

	if err := s.lockPartition(ctx); err != nil {
		return fmt.Errorf("lock partition %d: %w", s.options.PartitionID, err)
	}

	eng := expression.NewExprEngine()
	s.responder = deployment.NewResponder(s.conn, deployment.NewRepository(ns.Workflow, eng))
	if err := s.responder.Listen(ctx); err != nil {
		return fmt.Errorf("start deployment responder: %w", err)
	}

	p, err := workflow.New(workflow.ProcessorConfig{
		Stream:                logstream.NewJetStream(ns.Js, s.options.PartitionID),
		Fetcher:               deployment.NewClient(s.conn, s.options.LookupTimeout),
		Subscriptions:         subscription.NewSender(ns.Js, s.options.PartitionID),
		Responses:             response.NewWriter(s.conn, s.options.PartitionID),
		Conditions:            eng,
		PayloadCacheSize:      s.options.PayloadCacheSize,
		WorkflowCacheSize:     s.options.WorkflowCacheSize,
		CorrelationKeyFailure: s.options.CorrelationKeyFailure,
		Topic:                 s.options.Topic,
	})
	if err != nil {
		return fmt.Errorf("create processor: %w", err)
	}
	s.processor = p
	p.Start(ctx)
	s.setReady(true)
	log.Info("partition processor started", slog.Int(keys.Partition, int(s.options.PartitionID)))
	return nil
}

// lockPartition waits until this server holds the partition lock and keeps extending it in the background.
func (s *Server) lockPartition(ctx context.Context) error {
	kv := s.ns.PartitionLock
	lockID := partitionLockID(s.options.PartitionID)
	log := logx.FromContext(ctx)
	for {
		ok, err := common.Lock(ctx, kv, lockID)
		if err != nil {
			return fmt.Errorf("take lock: %w", err)
		}
		if ok {
			break
		}
		log.Info("partition is locked by another processor, waiting", slog.Int(keys.Partition, int(s.options.PartitionID)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.options.LockInterval):
		}
	}

	s.lockWg.Add(1)
	go func() {
		defer s.lockWg.Done()
		ticker := time.NewTicker(s.options.LockInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := common.ExtendLock(ctx, kv, lockID); err != nil && ctx.Err() == nil {
					log.Error("extend partition lock", "error", err, slog.Int(keys.Partition, int(s.options.PartitionID)))
				}
			}
		}
	}()
	return nil
}

func partitionLockID(partitionID int32) string {
	return "partition-" + strconv.Itoa(int(partitionID))
}

// Shutdown stops the processor, releases the partition lock and closes the NATS connection.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.setReady(false)
		ctx := context.Background()
		if s.processor != nil {
			s.processor.Shutdown()
		}
		if s.responder != nil {
			if err := s.responder.Shutdown(); err != nil {
				slog.Error("stop deployment responder", "error", err)
			}
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.lockWg.Wait()
		if s.ns != nil && s.processor != nil {
			if err := common.UnLock(ctx, s.ns.PartitionLock, partitionLockID(s.options.PartitionID)); err != nil {
				slog.Warn("release partition lock", "error", err)
			}
		}
		if s.conn != nil {
			s.conn.Close()
		}
		if s.telemetryDown != nil {
			if err := s.telemetryDown(ctx); err != nil {
				slog.Warn("shut down telemetry", "error", err)
			}
		}
		slog.Info("partition processor stopped", slog.Int(keys.Partition, int(s.options.PartitionID)))
	})
}

// ConnectNats establishes a connection to the NATS server, checks its version and JetStream account.
// It returns the NATS connection configuration that includes the connection,
// the storage type for JetStream and the partitions whose logs must exist.
func (s *Server) ConnectNats(ctx context.Context) (*natz.NatsConnConfiguration, error) {
	conn, err := nats.Connect(s.options.NatsUrl, s.options.NatsConnOptions...)
	if err != nil {
		slog.Error("connect to NATS", slog.String("error", err.Error()), slog.String("url", s.options.NatsUrl))
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	s.conn = conn
	if err := common.CheckVersion(ctx, conn); err != nil {
		return nil, fmt.Errorf("check NATS version: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("connect to JetStream: %w", err)
	}
	if _, err := js.AccountInfo(ctx); err != nil {
		return nil, fmt.Errorf("get NATS account information: %w", err)
	}
	store := jetstream.FileStorage
	if s.options.EphemeralStorage {
		store = jetstream.MemoryStorage
	}
	partitions := make([]int32, 0, s.options.PartitionCount)
	for i := int32(1); i <= s.options.PartitionCount; i++ {
		partitions = append(partitions, i)
	}
	return &natz.NatsConnConfiguration{
		Conn:            conn,
		StorageType:     store,
		JetStreamDomain: s.options.JetStreamDomain,
		Partitions:      partitions,
	}, nil
}

// Ready returns true while the partition processor is running.
func (s *Server) Ready() bool {
	s.readyMx.Lock()
	defer s.readyMx.Unlock()
	return s.ready
}

func (s *Server) setReady(ready bool) {
	s.readyMx.Lock()
	defer s.readyMx.Unlock()
	s.ready = ready
}
