package log

import (
	"github.com/rtenhove/zeebe/cli/commands/log/tail"
	"github.com/spf13/cobra"
)

// Cmd is the cobra command object
var Cmd = &cobra.Command{
	Use:   "log",
	Short: "Commands for reading partition logs",
	Long:  ``,
}

func init() {
	Cmd.AddCommand(tail.Cmd)
}
