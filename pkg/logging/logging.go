// Package logging provides the single shared logger used by every
// subsystem in coredb.
package logging

import (
	"os"

	logger "github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// L is the process-wide logger. The engine is single-threaded (spec §5),
// so no locking is required around reconfiguration at startup.
var L = &logger.Logger{
	Out:   os.Stderr,
	Level: logger.InfoLevel,
	Formatter: &prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	},
}

// SetDebug toggles verbose logging, used by the CLI at startup when
// COREDB_DEBUG is set.
func SetDebug(on bool) {
	if on {
		L.Level = logger.DebugLevel
	} else {
		L.Level = logger.InfoLevel
	}
}
