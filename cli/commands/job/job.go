package job

import (
	"github.com/rtenhove/zeebe/cli/commands/job/complete"
	"github.com/spf13/cobra"
)

// Cmd is the cobra command object
var Cmd = &cobra.Command{
	Use:   "job",
	Short: "Commands that stand in for a job worker",
	Long:  ``,
}

func init() {
	Cmd.AddCommand(complete.Cmd)
}
