package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/records-service/internal/backend"
	"github.com/spec-kit/records-service/internal/config"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the storage backends supported per record type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %s\n", config.RecordTypeItems, strings.Join(backend.ItemBackends().Names(), ", "))
		fmt.Fprintf(out, "%s: %s\n", config.RecordTypeTickets, strings.Join(backend.TicketBackends().Names(), ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}
