package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/rtenhove/zeebe/cli/commands/instance"
	"github.com/rtenhove/zeebe/cli/commands/job"
	logcmd "github.com/rtenhove/zeebe/cli/commands/log"
	"github.com/rtenhove/zeebe/cli/commands/workflow"
	"github.com/rtenhove/zeebe/cli/flag"
	"github.com/rtenhove/zeebe/cli/output"
	"github.com/rtenhove/zeebe/common/logx"
	wf "github.com/rtenhove/zeebe/internal/server/workflow"
	show_nats_config "github.com/rtenhove/zeebe/server/commands/show-nats-config"
	"github.com/rtenhove/zeebe/server/commands/teardown"
	"github.com/rtenhove/zeebe/server/config"
	"github.com/rtenhove/zeebe/server/server"
	"github.com/rtenhove/zeebe/server/server/option"
	"github.com/rtenhove/zeebe/server/services/natz"
	zensvr "github.com/rtenhove/zeebe/zen/server"
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands.
// On its own it runs the processor of one partition.
var RootCmd = &cobra.Command{
	Use:   "zeebe",
	Short: "Zeebe workflow instance partition processor",
	Long:  ``,
	RunE:  serve,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flag.Value.Json {
			output.Current = &output.Json{}
		} else {
			output.Current = &output.Text{}
		}
		if flag.Value.LogLevel != "" {
			lev, addSource := logx.ParseLevel(flag.Value.LogLevel)
			logx.SetDefault("text", lev, addSource, "zeebe-cli")
		}
	},
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetEnvironment()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if flag.Value.LogLevel != "" {
		level = flag.Value.LogLevel
	}
	lev, addSource := logx.ParseLevel(level)
	logx.SetDefault(cfg.LogHandler, lev, addSource, "zeebe")

	if flag.Value.NatsConfig != "" {
		b, err := os.ReadFile(flag.Value.NatsConfig)
		if err != nil {
			return fmt.Errorf("read nats configuration file: %w", err)
		}
		natz.NatsConfig = string(b)
	}

	natsURL := cfg.NatsURL
	if flag.Value.Embedded {
		ns, err := zensvr.NewNatsServer("127.0.0.1", nats.DefaultPort)
		if err != nil {
			return fmt.Errorf("start embedded nats: %w", err)
		}
		defer ns.Shutdown()
		natsURL = ns.URL()
	}

	opts := []option.Option{
		option.NatsUrl(natsURL),
		option.WithJetStreamDomain(cfg.JetStreamDomain),
		option.EphemeralStorage(cfg.EphemeralStorage || flag.Value.Embedded),
		option.Partition(cfg.PartitionID, cfg.PartitionCount),
		option.Topic(cfg.Topic),
		option.PayloadCacheSize(cfg.PayloadCacheSize),
		option.WorkflowCacheSize(cfg.WorkflowCacheSize),
		option.WithCorrelationKeyFailure(wf.CorrelationKeyFailure(cfg.CorrelationKeyFailure)),
		option.LookupTimeout(cfg.LookupTimeout),
		option.WithTelemetryEndpoint(cfg.TelemetryEndpoint),
	}
	if cfg.ShowSplash {
		opts = append(opts, option.WithShowSplash())
	}
	if err := server.New(opts...).Listen(); err != nil {
		slog.Error("server stopped", "error", err)
		return err
	}
	return nil
}

// Execute adds all child commands to the root command and sets flag appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(show_nats_config.RootCmd)
	RootCmd.AddCommand(teardown.Cmd)
	RootCmd.AddCommand(workflow.Cmd)
	RootCmd.AddCommand(instance.Cmd)
	RootCmd.AddCommand(job.Cmd)
	RootCmd.AddCommand(logcmd.Cmd)
	RootCmd.Flags().StringVar(&flag.Value.NatsConfig, flag.NatsConfig, "", "provides a path to a nats configuration file.  The current config file can be obtained using 'show-nats-config'")
	RootCmd.Flags().BoolVar(&flag.Value.Embedded, flag.Embedded, false, "runs an in process NATS server with ephemeral storage")
	RootCmd.PersistentFlags().StringVarP(&flag.Value.Server, flag.Server, flag.ServerShort, nats.DefaultURL, "sets the address of a NATS server")
	RootCmd.PersistentFlags().StringVarP(&flag.Value.LogLevel, flag.LogLevel, flag.LogLevelShort, "", "sets the logging level")
	RootCmd.PersistentFlags().BoolVarP(&flag.Value.Json, flag.JsonOutput, flag.JsonOutputShort, false, "sets the CLI output to json")
	RootCmd.PersistentFlags().Int32Var(&flag.Value.PartitionCount, flag.PartitionCount, 1, "the number of partitions of the cluster")
	RootCmd.PersistentFlags().Int32VarP(&flag.Value.Partition, flag.Partition, flag.PartitionShort, 0, "the partition to address, round robin for new instances when unset")
	RootCmd.PersistentFlags().StringVar(&flag.Value.JetStreamDomain, flag.JetStreamDomain, "", "the JetStream domain of the cluster")
	RootCmd.PersistentFlags().StringVar(&flag.Value.Timeout, flag.Timeout, "30s", "how long to wait for the processor's response")
}
