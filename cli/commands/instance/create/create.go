package create

import (
	"context"
	"fmt"

	"github.com/rtenhove/zeebe/cli/flag"
	"github.com/rtenhove/zeebe/cli/output"
	"github.com/rtenhove/zeebe/cli/util"
	"github.com/rtenhove/zeebe/client"
	"github.com/rtenhove/zeebe/server/services/response"
	"github.com/spf13/cobra"
)

// Cmd is the cobra command object
var Cmd = &cobra.Command{
	Use:   "create [process id]",
	Short: "Creates a workflow instance of a process id, or of a workflow key",
	Long:  ``,
	RunE:  run,
	Args:  cobra.MaximumNArgs(1),
}

func run(cmd *cobra.Command, args []string) error {
	if err := cmd.ValidateArgs(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if len(args) == 0 && flag.Value.WorkflowKey <= 0 {
		return fmt.Errorf("invalid arguments: a process id or --%s is required", flag.WorkflowKey)
	}
	ctx := context.Background()
	payload, err := util.Payload(ctx)
	if err != nil {
		return err
	}
	cl, err := util.GetClient(ctx)
	if err != nil {
		return err
	}
	defer cl.Close()
	res, err := create(ctx, cl, args, payload)
	if err != nil {
		return fmt.Errorf("create workflow instance: %w", err)
	}
	return output.Current.OutputResponse(res)
}

func create(ctx context.Context, cl *client.Client, args []string, payload []byte) (*response.Response, error) {
	if len(args) == 0 {
		return cl.CreateInstanceByKey(ctx, flag.Value.WorkflowKey, payload)
	}
	return cl.CreateInstance(ctx, args[0], flag.Value.Version, payload)
}

func init() {
	Cmd.Flags().Int32VarP(&flag.Value.Version, flag.Version, flag.VersionShort, -1, "the workflow version, -1 for the latest")
	Cmd.Flags().Int64VarP(&flag.Value.WorkflowKey, flag.WorkflowKey, flag.WorkflowKeyShort, 0, "the key of a deployed workflow, instead of a process id")
	Cmd.Flags().StringVarP(&flag.Value.Payload, flag.Payload, flag.PayloadShort, "", "the JSON payload of the instance")
}
