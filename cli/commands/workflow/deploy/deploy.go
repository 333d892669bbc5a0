package deploy

import (
	"context"
	"fmt"
	"os"

	"github.com/rtenhove/zeebe/cli/output"
	"github.com/rtenhove/zeebe/cli/util"
	"github.com/spf13/cobra"
)

// Cmd is the cobra command object
var Cmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploys the executable processes of a BPMN file",
	Long:  ``,
	RunE:  run,
	Args:  cobra.ExactArgs(1),
}

func run(cmd *cobra.Command, args []string) error {
	if err := cmd.ValidateArgs(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	resource, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read bpmn file: %w", err)
	}
	ctx := context.Background()
	cl, err := util.GetClient(ctx)
	if err != nil {
		return err
	}
	defer cl.Close()
	res, err := cl.Deploy(ctx, resource)
	if err != nil {
		return fmt.Errorf("deploy %s: %w", args[0], err)
	}
	output.Current.OutputDeployResult(res)
	return nil
}
