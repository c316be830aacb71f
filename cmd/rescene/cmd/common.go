package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/rescene-go/rescene/internal/config"
	"github.com/rescene-go/rescene/internal/progress"
	"github.com/rescene-go/rescene/internal/slogutil"
)

// loadLogger loads the configuration at configFile (falling back to
// defaults when it doesn't exist) and sets up a logger from its Log
// section, matching the teacher's "load config, then configure logging
// from it" startup order.
func loadLogger() (*config.Manager, *slog.Logger, error) {
	mgr, err := config.NewManager(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := slogutil.SetupLogRotation(mgr.GetConfig().Log)
	slog.SetDefault(logger)
	return mgr, logger, nil
}

// cliFs is the afero.Fs every subcommand operates through.
func cliFs() afero.Fs {
	return afero.NewOsFs()
}

// stderrReporter prints a single progress line to stderr per update,
// overwriting the current line, for interactive CLI use.
func stderrReporter() progress.Reporter {
	return progress.ReporterFunc(func(info progress.Info) {
		if info.Total > 0 {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] %s", info.Current, info.Total, info.Message)
		} else {
			fmt.Fprintf(os.Stderr, "\r%s", info.Message)
		}
	})
}

// printWarnings writes each warning to stderr, prefixed for scannability.
func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}
