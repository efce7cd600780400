// This program performs administrative tasks for the provenance ledger.
package main

import (
	"fmt"
	"os"

	"github.com/ardanlabs/provenance/app/tooling/admin/commands"
	"github.com/ardanlabs/provenance/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger. Logs go to stderr so the command
	// output can be piped.
	log, err := logger.New("ADMIN", "stderr")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the command.
	if err := run(log); err != nil {
		log.Errorw("admin", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	rootCmd := commands.New(log)
	rootCmd.Version = build

	return rootCmd.Execute()
}
