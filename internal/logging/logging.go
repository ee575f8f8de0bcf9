package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath returns the log file for a process started at start.
func LogFilePath(logsDir, name string, start time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, start.Format("20060102_150405")),
	)
}
