package instance

import (
	"github.com/rtenhove/zeebe/cli/commands/instance/cancel"
	"github.com/rtenhove/zeebe/cli/commands/instance/create"
	"github.com/rtenhove/zeebe/cli/commands/instance/payload"
	"github.com/spf13/cobra"
)

// Cmd is the cobra command object
var Cmd = &cobra.Command{
	Use:   "instance",
	Short: "Commands for workflow instances",
	Long:  ``,
}

func init() {
	Cmd.AddCommand(create.Cmd)
	Cmd.AddCommand(cancel.Cmd)
	Cmd.AddCommand(payload.Cmd)
}
