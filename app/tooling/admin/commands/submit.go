package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
	"github.com/ardanlabs/provenance/foundation/blockchain/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func submitCmd(log *zap.SugaredLogger, cfg *Config) *cobra.Command {
	var tx struct {
		role      string
		actorName string
		location  string
		status    string
		notes     string
	}

	cmd := &cobra.Command{
		Use:   "submit <product-id>",
		Short: "Record an event for an item and seal it into a new block.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := strings.TrimSpace(tx.role)
			if !slices.Contains(database.Roles, role) {
				return fmt.Errorf("role %q is not one of %s", role, strings.Join(database.Roles, ", "))
			}

			dbTx, err := database.NewTransaction(
				strings.TrimSpace(args[0]),
				role,
				strings.TrimSpace(tx.actorName),
				strings.TrimSpace(tx.location),
				strings.TrimSpace(tx.status),
				strings.TrimSpace(tx.notes),
				database.Now(),
			)
			if err != nil {
				return err
			}

			return withState(log, cfg, true, func(st *state.State) error {
				block, err := st.SubmitTransaction(context.Background(), dbTx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), block)
			})
		},
	}

	cmd.Flags().StringVarP(&tx.role, "role", "r", database.RoleFarmer, "Role of the actor recording the event.")
	cmd.Flags().StringVarP(&tx.actorName, "actor", "a", "", "Name of the actor recording the event.")
	cmd.Flags().StringVarP(&tx.location, "location", "l", "", "Where the event happened.")
	cmd.Flags().StringVar(&tx.status, "status", "", "Status of the item after the event.")
	cmd.Flags().StringVarP(&tx.notes, "notes", "n", "", "Free form notes for the event.")

	return cmd
}
