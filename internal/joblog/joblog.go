// Package joblog appends structured execution records to the per-job log
// file. It is the only entry point onto that file, so an external log
// rotator can sit in front of the log directory without touching this
// package.
package joblog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record is one execution attempt's contribution to a job's log file.
type Record struct {
	JobID    string
	At       time.Time
	Command  string
	ExitLine string // "Exit Code: 0", "Timeout after 10s", "Command not found: ...", etc.
	Stdout   string
	Stderr   string
}

// Append opens (creating if absent) <dataDir>/logs/job_<id>.log and writes
// one delimited record to it.
func Append(dataDir string, rec Record) error {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("joblog: create log dir: %w", err)
	}

	path := filepath.Join(logDir, fmt.Sprintf("job_%s.log", rec.JobID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("joblog: open: %w", err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f,
		"=== Job %s executed at %s ===\nCommand: %s\n%s\n----- STDOUT -----\n%s\n----- STDERR -----\n%s\n\n",
		rec.JobID, rec.At.UTC().Format("2006-01-02 15:04:05"), rec.Command, rec.ExitLine, rec.Stdout, rec.Stderr,
	)
	if err != nil {
		return fmt.Errorf("joblog: write: %w", err)
	}
	return nil
}
