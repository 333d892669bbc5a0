package cancel

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rtenhove/zeebe/cli/output"
	"github.com/rtenhove/zeebe/cli/util"
	"github.com/spf13/cobra"
)

// Cmd is the cobra command object
var Cmd = &cobra.Command{
	Use:   "cancel [workflow instance key]",
	Short: "Cancels a running workflow instance",
	Long:  ``,
	RunE:  run,
	Args:  cobra.ExactArgs(1),
}

func run(cmd *cobra.Command, args []string) error {
	if err := cmd.ValidateArgs(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	key, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid workflow instance key: %w", err)
	}
	ctx := context.Background()
	cl, err := util.GetClient(ctx)
	if err != nil {
		return err
	}
	defer cl.Close()
	res, err := cl.CancelInstance(ctx, key)
	if err != nil {
		return fmt.Errorf("cancel workflow instance: %w", err)
	}
	return output.Current.OutputResponse(res)
}
