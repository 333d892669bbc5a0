package complete

import (
	"context"
	"fmt"

	"github.com/rtenhove/zeebe/cli/flag"
	"github.com/rtenhove/zeebe/cli/output"
	"github.com/rtenhove/zeebe/cli/util"
	"github.com/spf13/cobra"
)

// Cmd is the cobra command object
var Cmd = &cobra.Command{
	Use:   "complete",
	Short: "Completes the job created at a log position",
	Long: `Completes a job. The position names either a job create command, which is accepted first,
or a job created event.`,
	RunE: run,
	Args: cobra.NoArgs,
}

func run(cmd *cobra.Command, args []string) error {
	if err := cmd.ValidateArgs(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	ctx := context.Background()
	var doc []byte
	if flag.Value.Payload != "" {
		d, err := util.Payload(ctx)
		if err != nil {
			return err
		}
		doc = d
	}
	cl, err := util.GetClient(ctx)
	if err != nil {
		return err
	}
	defer cl.Close()
	partition := flag.Value.Partition
	if partition < 1 {
		partition = 1
	}
	jobKey, err := cl.CompleteJob(ctx, partition, flag.Value.Position, doc)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	output.Current.OutputJobCompleted(jobKey)
	return nil
}

func init() {
	Cmd.Flags().Int64Var(&flag.Value.Position, flag.Position, 0, "the log position of the job record")
	Cmd.Flags().StringVarP(&flag.Value.Payload, flag.Payload, flag.PayloadShort, "", "the JSON payload the job completes with, the job payload when empty")
	_ = Cmd.MarkFlagRequired(flag.Position)
}
