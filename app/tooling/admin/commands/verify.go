package commands

import (
	"fmt"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
	"github.com/ardanlabs/provenance/foundation/blockchain/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func verifyCmd(log *zap.SugaredLogger, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute every block hash and check the chain links.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withState(log, cfg, false, func(st *state.State) error {
				blocks := len(st.QueryRawChain())

				if err := st.Verify(); err != nil {
					result := struct {
						Valid  bool   `json:"valid"`
						Blocks int    `json:"blocks"`
						Block  uint64 `json:"block,omitempty"`
						Error  string `json:"error"`
					}{
						Blocks: blocks,
						Error:  err.Error(),
					}
					if be := database.GetBlockError(err); be != nil {
						result.Block = be.Index
					}

					if err := printJSON(cmd.OutOrStdout(), result); err != nil {
						return err
					}
					return fmt.Errorf("chain is not valid: %w", err)
				}

				result := struct {
					Valid  bool `json:"valid"`
					Blocks int  `json:"blocks"`
				}{
					Valid:  true,
					Blocks: blocks,
				}

				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}
