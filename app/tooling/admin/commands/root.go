// Package commands contains the admin commands for inspecting a ledger
// without running the service.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
	"github.com/ardanlabs/provenance/foundation/blockchain/state"
	"github.com/ardanlabs/provenance/foundation/blockchain/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Config contains the values shared by every command.
type Config struct {
	Storage string
	DBPath  string
}

// New constructs the root command with every admin command attached. The
// logger receives the ledger events, command output is written as JSON to
// the command's output.
func New(log *zap.SugaredLogger) *cobra.Command {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Inspect and maintain a provenance ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfg.Storage, "storage", "s", storage.Disk, "Storage implementation: disk, bolt or memory.")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBPath, "db-path", "d", "zblock/chain_store.json", "Path to the persisted chain.")

	rootCmd.AddCommand(
		verifyCmd(log, &cfg),
		historyCmd(log, &cfg),
		flattenCmd(log, &cfg),
		chainCmd(log, &cfg),
		tipCmd(log, &cfg),
		submitCmd(log, &cfg),
	)

	return rootCmd
}

// =============================================================================

// withState opens the ledger for the duration of the function. Only when
// create is set is a new ledger started for storage that holds no chain,
// otherwise database.ErrNoChain is returned and nothing is written.
func withState(log *zap.SugaredLogger, cfg *Config, create bool, fn func(st *state.State) error) error {
	if !create && cfg.Storage != storage.Memory {
		if _, err := os.Stat(cfg.DBPath); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", cfg.DBPath, database.ErrNoChain)
		}
	}

	strg, err := storage.Open(cfg.Storage, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	if !create {
		if _, err := strg.Read(); errors.Is(err, database.ErrNoChain) {
			strg.Close()
			return fmt.Errorf("%s: %w", cfg.DBPath, err)
		}
	}

	ev := func(v string, args ...any) {
		log.Debugw(fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		Storage:   strg,
		EvHandler: ev,
	})
	if err != nil {
		strg.Close()
		return fmt.Errorf("loading ledger: %w", err)
	}

	if err := fn(st); err != nil {
		st.Shutdown()
		return err
	}

	return st.Shutdown()
}

// printJSON writes the value as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
