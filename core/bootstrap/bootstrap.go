// Package bootstrap prepares process-wide infrastructure before the bot starts.
package bootstrap

import (
	"fmt"
	"os"

	coreconfig "github.com/m3rciful/photodesk/core/config"
	"github.com/m3rciful/photodesk/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
}

// Run initializes the logger and ensures the temporary photo directory exists.
func Run(opts Options) error {
	if opts.Config == nil {
		return fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	if err := os.MkdirAll(opts.Config.Intake.TempDir, 0o700); err != nil {
		return fmt.Errorf("bootstrap: temp dir: %w", err)
	}
	return nil
}
