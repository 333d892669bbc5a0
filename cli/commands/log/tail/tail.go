package tail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rtenhove/zeebe/cli/flag"
	"github.com/rtenhove/zeebe/cli/output"
	"github.com/rtenhove/zeebe/cli/util"
	"github.com/rtenhove/zeebe/server/tools/tracer"
	"github.com/spf13/cobra"
)

// Cmd is the cobra command object
var Cmd = &cobra.Command{
	Use:   "tail",
	Short: "Prints the records of a partition log and follows new ones",
	Long:  ``,
	RunE:  run,
	Args:  cobra.NoArgs,
}

func run(cmd *cobra.Command, args []string) error {
	if err := cmd.ValidateArgs(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cl, err := util.GetClient(ctx)
	if err != nil {
		return err
	}
	defer cl.Close()
	partition := flag.Value.Partition
	if partition < 1 {
		partition = 1
	}
	err = tracer.Trace(ctx, cl.Stream(partition), tracer.Filter{WorkflowInstanceKey: flag.Value.WorkflowInstanceKey}, output.Current.OutputEntry)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tail partition %d: %w", partition, err)
	}
	return nil
}

func init() {
	Cmd.Flags().Int64VarP(&flag.Value.WorkflowInstanceKey, flag.WorkflowInstanceKey, flag.WorkflowInstanceKeyShort, 0, "only print the records of this workflow instance")
}
