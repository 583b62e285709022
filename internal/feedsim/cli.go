package feedsim

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/standings/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends log output to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "feedsim_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the feed simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Standings Feed Simulator
========================

Serves simulated advisor and technician sheets for the standings board and
optionally checks a running board against them.

Usage:
  go run ./cmd/feed-sim [options]

Options:
  -addr string
        Listen address (default ":9090")
  -advisors int
        Number of simulated advisors (default 25)
  -technicians int
        Number of simulated technicians (default 40)
  -drift duration
        How often work is added to the sheets, 0 disables (default 20s)
  -board string
        Base URL of a running board to verify, empty skips
  -timeout duration
        HTTP request timeout for verification (default 10s)
  -messy
        Add an unnamed row and an unparseable cell
  -log string
        Log file (default: feedsim_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Feeds:
  GET  /feeds/{advisor|technician}.{csv|json|yaml|xlsx}
  POST /control/fail?dataset=advisor&on=true
  POST /control/drift

Examples:
  # Serve feeds for a board on the default port
  go run ./cmd/feed-sim

  # Verify a running board, then drift every 5s
  go run ./cmd/feed-sim -board http://localhost:9080 -drift 5s
`)
}
