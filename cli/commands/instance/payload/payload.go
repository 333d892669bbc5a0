package payload

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
	Use:   "update-payload",
	Short: "Replaces the payload of an open activity instance",
	Long:  ``,
	RunE:  run,
	Args:  cobra.NoArgs,
}

func run(cmd *cobra.Command, args []string) error {
	if err := cmd.ValidateArgs(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	ctx := context.Background()
	doc, err := util.Payload(ctx)
	if err != nil {
		return err
	}
	cl, err := util.GetClient(ctx)
	if err != nil {
		return err
	}
	defer cl.Close()
	res, err := cl.UpdatePayload(ctx, flag.Value.WorkflowInstanceKey, flag.Value.ActivityInstanceKey, doc)
	if err != nil {
		return fmt.Errorf("update payload: %w", err)
	}
	return output.Current.OutputResponse(res)
}

func init() {
	Cmd.Flags().Int64VarP(&flag.Value.WorkflowInstanceKey, flag.WorkflowInstanceKey, flag.WorkflowInstanceKeyShort, 0, "the workflow instance key")
	Cmd.Flags().Int64VarP(&flag.Value.ActivityInstanceKey, flag.ActivityInstanceKey, flag.ActivityInstanceKeyShort, 0, "the activity instance key")
	Cmd.Flags().StringVarP(&flag.Value.Payload, flag.Payload, flag.PayloadShort, "", "the new JSON payload")
	_ = Cmd.MarkFlagRequired(flag.WorkflowInstanceKey)
	_ = Cmd.MarkFlagRequired(flag.ActivityInstanceKey)
}
