package main

import (
	"os"

	"github.com/firefly-engineering/devel79ctl/cmd"
	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/logging"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logging.UserError("%s", errors.UserMessage(err))
		logging.Debug("command failed", "error", err)
		os.Exit(errors.GetExitCode(err))
	}
}
