package workflow

import (
	"github.com/rtenhove/zeebe/cli/commands/workflow/deploy"
	"github.com/spf13/cobra"
)

// Cmd is the cobra command object
var Cmd = &cobra.Command{
	Use:   "workflow",
	Short: "Commands for deploying workflows",
	Long:  ``,
}

func init() {
	Cmd.AddCommand(deploy.Cmd)
}
