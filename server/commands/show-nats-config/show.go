package show_nats_config

import (
	"fmt"

	"github.com/rtenhove/zeebe/common/setup"
	"github.com/rtenhove/zeebe/server/services/natz"
	"github.com/spf13/cobra"
)

// RootCmd prints the NATS configuration the processor creates its streams and buckets from.
var RootCmd = &cobra.Command{
	Use:   "show-nats-config",
	Short: "Shows the current NATS configuration",
	Long:  ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup.Parse(natz.NatsConfig); err != nil {
			return fmt.Errorf("embedded nats config: %w", err)
		}
		cmd.Println(natz.NatsConfig)
		return nil
	},
}
