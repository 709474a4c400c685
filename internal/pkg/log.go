package pkg

import (
	"io"
	"os"
	"path/filepath"

	"github.com/powerman/structlog"
)

// InitLog configures the default logger for console output at level
// (debug, info, warn or err; empty keeps debug).
func InitLog(level string) {
	l := structlog.DefaultLogger.
		SetPrefixKeys(
			structlog.KeyApp, structlog.KeyPID, structlog.KeyLevel, structlog.KeyUnit, structlog.KeyTime,
		).
		SetDefaultKeyvals(
			structlog.KeyApp, filepath.Base(os.Args[0]),
			structlog.KeySource, structlog.Auto,
		).
		SetSuffixKeys(structlog.KeySource, structlog.KeyStack).
		SetKeysFormat(map[string]string{
			structlog.KeyTime:   " %[2]s",
			structlog.KeySource: " %6[2]s",
			structlog.KeyUnit:   " %6[2]s",
		})
	if level != "" {
		l.SetLogLevel(structlog.ParseLevel(level))
	}
}

// TeeLog duplicates the default logger output to w.
func TeeLog(w io.Writer) {
	structlog.DefaultLogger.SetOutput(io.MultiWriter(os.Stderr, w))
}
