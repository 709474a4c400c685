// Package logfile opens daily log files in the logs directory.
package logfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// New opens the log file of the current day for appending.
func New(filenameSuffix string) (*os.File, error) {
	if err := ensureDir(); err != nil {
		return nil, err
	}
	return os.OpenFile(Filename(time.Now(), filenameSuffix), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

func Filename(t time.Time, suffix string) string {
	return filepath.Join(LogDir, fmt.Sprintf("%s%s.log", daytime(t).Format("2006-01-02"), suffix))
}

func daytime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

func ensureDir() error {
	_, err := os.Stat(LogDir)
	if os.IsNotExist(err) {
		err = os.MkdirAll(LogDir, os.ModePerm)
	}
	return err
}

var (
	LogDir = filepath.Join(filepath.Dir(os.Args[0]), "logs")
)
