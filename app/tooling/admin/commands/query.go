package commands

import (
	"github.com/ardanlabs/provenance/foundation/blockchain/database"
	"github.com/ardanlabs/provenance/foundation/blockchain/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func historyCmd(log *zap.SugaredLogger, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "history <product-id>",
		Short: "Print every event recorded for an item.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withState(log, cfg, false, func(st *state.State) error {
				return printJSON(cmd.OutOrStdout(), st.QueryHistory(args[0]))
			})
		},
	}
}

func flattenCmd(log *zap.SugaredLogger, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "flatten",
		Short: "Print every event in the chain with its block.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withState(log, cfg, false, func(st *state.State) error {
				return printJSON(cmd.OutOrStdout(), st.QueryFlatten())
			})
		},
	}
}

func chainCmd(log *zap.SugaredLogger, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "chain",
		Short: "Print the chain in its storage form.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withState(log, cfg, false, func(st *state.State) error {
				return printJSON(cmd.OutOrStdout(), database.NewChainFS(st.QueryRawChain()))
			})
		},
	}
}

func tipCmd(log *zap.SugaredLogger, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tip",
		Short: "Print the latest block.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withState(log, cfg, false, func(st *state.State) error {
				return printJSON(cmd.OutOrStdout(), st.RetrieveLatestBlock())
			})
		},
	}
}
