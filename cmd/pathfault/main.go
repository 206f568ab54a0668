// Command pathfault synthesizes path-confusion exploit URLs across an
// HTTP intermediary chain. CLI wiring stays out of the core packages:
// this entrypoint only calls exported pathfault/internal library
// functions through internal/cli.Runner.
package main

import (
	"context"
	"os"

	"github.com/koreacsl/pathfault-go/internal/cli"
	"github.com/koreacsl/pathfault-go/internal/logger"
)

func main() {
	logger.Info().Msgf("Initializing pathfault...")

	runner := cli.NewRunner()
	if err := runner.Initialize(); err != nil {
		logger.Error().Msgf("initialization failed: %v", err)
		os.Exit(1)
	}
	defer runner.Close()

	summary, err := runner.Run(context.Background())
	if err != nil {
		logger.Error().Msgf("run failed: %v", err)
		os.Exit(1)
	}

	logger.Success().Msgf("run %s: %d/%d candidates passed, stored at %s",
		summary.RunID, summary.PassedCandidates, summary.TotalCandidates, runner.Config.StorePath)
}
