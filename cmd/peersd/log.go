package main

import (
	"sort"

	"github.com/decred/slog"

	"example.com/peersgate/internal/common"
	"example.com/peersgate/internal/peersdat"
	"example.com/peersgate/internal/server"
	"example.com/peersgate/internal/store"
)

var (
	pdsdLog = common.NewSubsystemLogger("PDSD")
	pdatLog = common.NewSubsystemLogger("PDAT")
	srvrLog = common.NewSubsystemLogger("SRVR")
	storLog = common.NewSubsystemLogger("STOR")
)

// Initialize package-global logger variables.
func init() {
	peersdat.UseLogger(pdatLog)
	server.UseLogger(srvrLog)
	store.UseLogger(storLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]slog.Logger{
	"PDSD": pdsdLog,
	"PDAT": pdatLog,
	"SRVR": srvrLog,
	"STOR": storLog,
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// setLogLevels sets the log level for all subsystem loggers.
func setLogLevels(level string) error {
	loggers := make([]slog.Logger, 0, len(subsystemLoggers))
	for _, id := range supportedSubsystems() {
		loggers = append(loggers, subsystemLoggers[id])
	}
	return common.SetLogLevels(level, loggers...)
}
