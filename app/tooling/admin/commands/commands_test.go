package commands_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/provenance/app/tooling/admin/commands"
	"github.com/ardanlabs/provenance/foundation/blockchain/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const goldenPath = "../../../../foundation/blockchain/storage/disk/testdata/chain_store.json"

func Test_Commands(t *testing.T) {
	dbPath := copyGolden(t, nil)

	out := execute(t, dbPath, "verify")
	var verify struct {
		Valid  bool `json:"valid"`
		Blocks int  `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(out, &verify))
	require.True(t, verify.Valid)
	require.Equal(t, 3, verify.Blocks)

	out = execute(t, dbPath, "history", "PROD-001")
	var history []map[string]any
	require.NoError(t, json.Unmarshal(out, &history))
	require.Len(t, history, 2)
	require.Equal(t, database.RoleFarmer, history[0]["role"])
	require.Equal(t, database.RoleRetailer, history[1]["role"])

	out = execute(t, dbPath, "flatten")
	var flat []map[string]any
	require.NoError(t, json.Unmarshal(out, &flat))
	require.Len(t, flat, 2)

	out = execute(t, dbPath, "submit", "PROD-001", "--role", "Customer", "--status", "Delivered")
	var block database.Block
	require.NoError(t, json.Unmarshal(out, &block))
	require.Equal(t, uint64(4), block.Index)

	out = execute(t, dbPath, "tip")
	var tip database.Block
	require.NoError(t, json.Unmarshal(out, &tip))
	require.Equal(t, block.Hash, tip.Hash)

	out = execute(t, dbPath, "chain")
	var chainFS database.ChainFS
	require.NoError(t, json.Unmarshal(out, &chainFS))
	require.Len(t, chainFS.Chain, 4)
	require.NoError(t, database.VerifyChain(chainFS.Blocks(), nil))
}

func Test_VerifyTampered(t *testing.T) {
	dbPath := copyGolden(t, func(data string) string {
		return strings.Replace(data, `"late"`, `"early"`, 1)
	})

	cmd := commands.New(zap.NewNop().Sugar())
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"verify", "--db-path", dbPath})

	err := cmd.Execute()
	require.Error(t, err)

	be := database.GetBlockError(err)
	require.NotNil(t, be)
	require.Equal(t, uint64(2), be.Index)
	require.Contains(t, buf.String(), `"valid": false`)
}

func Test_SubmitBadRole(t *testing.T) {
	dbPath := copyGolden(t, nil)

	cmd := commands.New(zap.NewNop().Sugar())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"submit", "PROD-001", "--role", "Pirate", "--db-path", dbPath})

	require.Error(t, cmd.Execute())
}

func Test_ReadOnlyMissingLedger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "typo")
	dbPath := filepath.Join(dir, "chain_store.json")

	tt := [][]string{
		{"verify"},
		{"history", "PROD-001"},
		{"flatten"},
		{"chain"},
		{"tip"},
	}

	for _, args := range tt {
		t.Run(args[0], func(t *testing.T) {
			cmd := commands.New(zap.NewNop().Sugar())
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs(append(args, "--db-path", dbPath))

			err := cmd.Execute()
			require.True(t, errors.Is(err, database.ErrNoChain), "got %v", err)

			_, err = os.Stat(dir)
			require.True(t, errors.Is(err, os.ErrNotExist), "directory should not be created")
		})
	}
}

func Test_SubmitStartsLedger(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "new", "chain_store.json")

	out := execute(t, dbPath, "submit", "PROD-009", "--role", "Farmer", "--actor", "Ana")
	var block database.Block
	require.NoError(t, json.Unmarshal(out, &block))
	require.Equal(t, uint64(2), block.Index)

	out = execute(t, dbPath, "chain")
	var chainFS database.ChainFS
	require.NoError(t, json.Unmarshal(out, &chainFS))
	require.Len(t, chainFS.Chain, 2)
	require.NoError(t, database.VerifyChain(chainFS.Blocks(), nil))
}

// =============================================================================

func copyGolden(t *testing.T, change func(data string) string) string {
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)

	if change != nil {
		data = []byte(change(string(data)))
	}

	dbPath := filepath.Join(t.TempDir(), "chain_store.json")
	require.NoError(t, os.WriteFile(dbPath, data, 0600))

	return dbPath
}

func execute(t *testing.T, dbPath string, args ...string) []byte {
	cmd := commands.New(zap.NewNop().Sugar())

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(append(args, "--db-path", dbPath))

	require.NoError(t, cmd.Execute())

	return buf.Bytes()
}
