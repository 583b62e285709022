// Package feedsim serves simulated advisor and technician sheets so the
// board can be run and checked end to end without a real spreadsheet.
package feedsim

import (
	"sync/atomic"
	"time"
)

// Config holds configuration for the feed simulator.
type Config struct {
	Addr          string        // Listen address of the feed server
	Advisors      int           // Number of simulated advisors
	Technicians   int           // Number of simulated technicians
	DriftInterval time.Duration // How often work is added; 0 disables drift
	BoardURL      string        // Base URL of a running board to verify; empty skips
	Timeout       time.Duration // HTTP request timeout for verification
	Messy         bool          // Add unnamed rows and bad cells
	LogFile       string        // Log file for simulator output
	Verbose       bool          // Enable verbose logging
}

// Entry is one expected leaderboard position.
type Entry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Stats holds simulator counters.
type Stats struct {
	Requests      atomic.Int64
	Failures      atomic.Int64
	Drifts        atomic.Int64
	Verifications atomic.Int64
	Mismatches    atomic.Int64
	StartTime     time.Time
}
