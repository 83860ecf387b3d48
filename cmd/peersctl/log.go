package main

import (
	"github.com/decred/slog"

	"example.com/peersgate/internal/common"
	"example.com/peersgate/internal/peersdat"
)

var (
	ctlLog  = common.NewSubsystemLogger("CTL")
	pdatLog = common.NewSubsystemLogger("PDAT")
)

func init() {
	peersdat.UseLogger(pdatLog)
}

// setLogLevels applies level to every logger used by the tool.
func setLogLevels(level string) error {
	return common.SetLogLevels(level, []slog.Logger{ctlLog, pdatLog}...)
}
